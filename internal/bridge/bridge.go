// Package bridge reconciles cards on a Trello board with pages in a Notion
// database. Titles, workflow stage and the score fields flow in both
// directions; values the database computes itself (the Total Score formula
// and the page permalink) flow one way onto the board. Records are deleted
// only through the synced-marker convention described on Engine.
package bridge

import (
	"context"
	"time"
)

// Names of the properties and custom fields bridged between the two
// services. The score fields, Total Score and Synced carry the same name
// on both sides; the rest exist on one side only.
const (
	TitleProp       = "Priority Name" // database title property
	DepartmentProp  = "Department"    // database select mirroring the card's list
	TrelloIDProp    = "Trello ID"     // database text field holding the linked card id
	TotalScoreName  = "Total Score"   // database formula, pushed one way to the board
	SyncedName      = "Synced"        // checkbox marker on both sides
	NotionLinkField = "Notion Link"   // board text field holding the entry permalink
)

// ScoreFields are the numeric fields mirrored between the two services.
var ScoreFields = []string{"Reach", "Confidence", "Effort", "Impact"}

// UnknownDepartment is the select value used when a card's list has no
// name to mirror.
const UnknownDepartment = "Unknown"

// BoardClient is the capability interface for the card board side.
// Implementations authenticate every call themselves.
type BoardClient interface {
	// ListCards returns every card on the board with its custom field items.
	ListCards(ctx context.Context) ([]Card, error)

	// ListLists returns the board's lists in board order.
	ListLists(ctx context.Context) ([]List, error)

	// ListCustomFields returns the board's custom field definitions.
	ListCustomFields(ctx context.Context) ([]CustomField, error)

	// CreateCard creates a card in the given list.
	CreateCard(ctx context.Context, name, listID string) (*Card, error)

	// UpdateCard renames a card.
	UpdateCard(ctx context.Context, cardID, name string) error

	// MoveCard moves a card to another list.
	MoveCard(ctx context.Context, cardID, listID string) error

	// SetCustomField writes one custom field value on a card. An absent
	// value clears the field.
	SetCustomField(ctx context.Context, cardID, fieldID string, value Value) error

	// DeleteCard permanently deletes a card.
	DeleteCard(ctx context.Context, cardID string) error
}

// DatabaseClient is the capability interface for the structured database
// side. Property updates are sparse: properties missing from the map are
// left untouched.
type DatabaseClient interface {
	// ListEntries returns every live entry in the database.
	ListEntries(ctx context.Context) ([]Entry, error)

	// CreateEntry creates an entry with the given properties.
	CreateEntry(ctx context.Context, props Properties) (*Entry, error)

	// UpdateEntry updates the given properties on an entry.
	UpdateEntry(ctx context.Context, entryID string, props Properties) error

	// ArchiveEntry soft-deletes an entry.
	ArchiveEntry(ctx context.Context, entryID string) error
}

// Card is one record on the board.
type Card struct {
	ID           string
	Name         string
	ListID       string
	LastActivity time.Time
	FieldItems   []FieldItem
}

// FieldItem is one custom field value attached to a card, keyed by the
// opaque field definition id. The board API encodes every payload as a
// string; at most one of the three is populated.
type FieldItem struct {
	FieldID string
	Number  string
	Text    string
	Checked string
}

// List is a workflow stage on the board.
type List struct {
	ID   string
	Name string
}

// FieldType classifies a board custom field definition.
type FieldType string

const (
	FieldNumber   FieldType = "number"
	FieldText     FieldType = "text"
	FieldCheckbox FieldType = "checkbox"
	FieldList     FieldType = "list"
	FieldDate     FieldType = "date"
)

// CustomField is a board custom field definition, translating between the
// human field name and the opaque id the field-update API expects.
type CustomField struct {
	ID   string
	Name string
	Type FieldType
}

// Entry is one record in the database.
type Entry struct {
	ID    string
	URL   string // permalink generated by the database
	Props Properties
}

// Action is one record from the board's activity feed.
type Action struct {
	ID   string
	Type string
	Date time.Time
}
