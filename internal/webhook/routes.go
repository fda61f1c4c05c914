package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rwielk/cardbridge/internal/history"
)

// registerRoutes sets up all webhook routes on the Gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	// Trello probes the callback URL with HEAD during registration.
	router.HEAD("/hooks/trello", handleProbe())
	router.POST("/hooks/trello", handleDelivery(opts))

	router.GET("/healthz", handleHealth())

	if opts.Runs != nil {
		router.GET("/api/runs", handleRuns(opts.Runs))
	}
}

func handleProbe() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Status(http.StatusOK)
	}
}

// delivery is the slice of the Trello webhook payload we care about.
type delivery struct {
	Action struct {
		Type string `json:"type"`
	} `json:"action"`
}

func handleDelivery(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "read body"})
			return
		}

		if opts.Secret != "" {
			header := c.GetHeader("X-Trello-Webhook")
			want := trelloSignature(body, opts.CallbackURL, opts.Secret)
			if !hmac.Equal([]byte(header), []byte(want)) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "bad signature"})
				return
			}
		}

		// The payload shape is best-effort: any authenticated delivery
		// kicks a pass, since the full sync reconciles everything anyway.
		var d delivery
		json.Unmarshal(body, &d)

		opts.Kicker.Kick(history.TriggerWebhook)
		c.JSON(http.StatusOK, gin.H{"ok": true, "action": d.Action.Type})
	}
}

// trelloSignature computes the digest Trello sends in X-Trello-Webhook:
// base64(HMAC-SHA1(body + callbackURL)) keyed with the API secret.
func trelloSignature(body []byte, callbackURL, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	mac.Write([]byte(callbackURL))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func handleRuns(runs RunSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		recent, err := runs.Recent(limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if recent == nil {
			recent = []history.SyncRun{}
		}
		c.JSON(http.StatusOK, recent)
	}
}
