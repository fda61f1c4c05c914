// Package discord posts sync summaries to a Discord channel via the
// REST API. Summaries are plain channel messages, so no gateway
// connection is opened.
package discord

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/rwielk/cardbridge/internal/notify"
)

const (
	// maxRetries is the max number of retries for rate-limited API calls.
	maxRetries = 3
	// baseBackoff is the initial backoff for rate-limited retries.
	baseBackoff = 2 * time.Second
	// maxBackoff caps the retry backoff.
	maxBackoff = 2 * time.Minute
)

// session abstracts the discordgo methods we use, enabling test mocks.
// *discordgo.Session satisfies it.
type session interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier posts summaries to one Discord channel. It implements
// notify.Notifier.
type Notifier struct {
	sess      session
	channelID string
}

// Opts holds parameters for creating a Notifier.
type Opts struct {
	BotToken  string // Discord bot token
	ChannelID string
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// New creates a Discord Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("discord: channel id is required")
	}

	n := &Notifier{sess: opts.Session, channelID: opts.ChannelID}
	if n.sess == nil {
		dg, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		n.sess = dg
	}
	return n, nil
}

// Notify posts one summary as an embed.
func (n *Notifier) Notify(ctx context.Context, s notify.Summary) error {
	embed := buildEmbed(s)
	err := retryOnRateLimit(ctx, func() error {
		_, sendErr := n.sess.ChannelMessageSendEmbed(n.channelID, embed, discordgo.WithContext(ctx))
		return sendErr
	})
	if err != nil {
		return fmt.Errorf("discord: send summary: %w", err)
	}
	return nil
}

// buildEmbed translates a Summary into a Discord embed.
func buildEmbed(s notify.Summary) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       s.Title(),
		Description: s.Body(),
		Color:       embedColor(s),
	}
	for _, f := range s.FieldList() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Short,
		})
	}
	return embed
}

// embedColor maps the summary sidebar color to Discord's integer form.
func embedColor(s notify.Summary) int {
	switch s.Color() {
	case notify.ColorError:
		return 0xe53935
	case notify.ColorWarning:
		return 0xff9800
	case notify.ColorSuccess:
		return 0x36a64f
	default:
		return 0x2196f3
	}
}

// retryOnRateLimit calls fn and retries with exponential backoff on
// Discord rate limit errors. It respects context cancellation.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		restErr, ok := err.(*discordgo.RESTError)
		if !ok || restErr.Response == nil || restErr.Response.StatusCode != 429 {
			return err // not a rate limit error
		}

		if attempt == maxRetries {
			return err
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * baseBackoff
		if wait > maxBackoff {
			wait = maxBackoff
		}

		log.Printf("discord: rate limited (attempt %d/%d), retrying in %v",
			attempt+1, maxRetries, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil // unreachable
}
