package bridge

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// MockBoard implements BoardClient for testing. It keeps board state in
// memory, applies writes to it, and records every mutating call.
type MockBoard struct {
	mu     sync.Mutex
	cards  []Card
	lists  []List
	fields []CustomField
	nextID int
	calls  []string
	failOn map[string]error
}

// NewMockBoard creates an empty MockBoard.
func NewMockBoard() *MockBoard {
	return &MockBoard{failOn: make(map[string]error)}
}

// AddList seeds a list.
func (m *MockBoard) AddList(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists = append(m.lists, List{ID: id, Name: name})
}

// AddField seeds a custom field definition.
func (m *MockBoard) AddField(id, name string, typ FieldType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields = append(m.fields, CustomField{ID: id, Name: name, Type: typ})
}

// AddCard seeds a card as-is, duplicates included.
func (m *MockBoard) AddCard(card Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards = append(m.cards, card)
}

// FailWith makes the named method return err.
func (m *MockBoard) FailWith(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[method] = err
}

// Calls returns a copy of the recorded mutating calls.
func (m *MockBoard) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Card returns the current state of a card by id.
func (m *MockBoard) Card(id string) (Card, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cards {
		if c.ID == id {
			return copyCard(c), true
		}
	}
	return Card{}, false
}

func (m *MockBoard) ListCards(ctx context.Context) ([]Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["ListCards"]; err != nil {
		return nil, err
	}
	out := make([]Card, len(m.cards))
	for i, c := range m.cards {
		out[i] = copyCard(c)
	}
	return out, nil
}

func (m *MockBoard) ListLists(ctx context.Context) ([]List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["ListLists"]; err != nil {
		return nil, err
	}
	out := make([]List, len(m.lists))
	copy(out, m.lists)
	return out, nil
}

func (m *MockBoard) ListCustomFields(ctx context.Context) ([]CustomField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["ListCustomFields"]; err != nil {
		return nil, err
	}
	out := make([]CustomField, len(m.fields))
	copy(out, m.fields)
	return out, nil
}

func (m *MockBoard) CreateCard(ctx context.Context, name, listID string) (*Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "CreateCard "+name)
	if err := m.failOn["CreateCard"]; err != nil {
		return nil, err
	}
	m.nextID++
	card := Card{ID: fmt.Sprintf("card-%d", m.nextID), Name: name, ListID: listID}
	m.cards = append(m.cards, card)
	out := copyCard(card)
	return &out, nil
}

func (m *MockBoard) UpdateCard(ctx context.Context, cardID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "UpdateCard "+cardID)
	if err := m.failOn["UpdateCard"]; err != nil {
		return err
	}
	for i := range m.cards {
		if m.cards[i].ID == cardID {
			m.cards[i].Name = name
			return nil
		}
	}
	return fmt.Errorf("mock board: no card %s", cardID)
}

func (m *MockBoard) MoveCard(ctx context.Context, cardID, listID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "MoveCard "+cardID)
	if err := m.failOn["MoveCard"]; err != nil {
		return err
	}
	for i := range m.cards {
		if m.cards[i].ID == cardID {
			m.cards[i].ListID = listID
			return nil
		}
	}
	return fmt.Errorf("mock board: no card %s", cardID)
}

func (m *MockBoard) SetCustomField(ctx context.Context, cardID, fieldID string, value Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "SetCustomField "+cardID+" "+fieldID)
	if err := m.failOn["SetCustomField"]; err != nil {
		return err
	}
	for i := range m.cards {
		if m.cards[i].ID != cardID {
			continue
		}
		items := m.cards[i].FieldItems
		for j := range items {
			if items[j].FieldID == fieldID {
				items[j] = encodeItem(fieldID, value)
				return nil
			}
		}
		m.cards[i].FieldItems = append(items, encodeItem(fieldID, value))
		return nil
	}
	return fmt.Errorf("mock board: no card %s", cardID)
}

func (m *MockBoard) DeleteCard(ctx context.Context, cardID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "DeleteCard "+cardID)
	if err := m.failOn["DeleteCard"]; err != nil {
		return err
	}
	for i := range m.cards {
		if m.cards[i].ID == cardID {
			m.cards = append(m.cards[:i], m.cards[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("mock board: no card %s", cardID)
}

func copyCard(c Card) Card {
	out := c
	out.FieldItems = make([]FieldItem, len(c.FieldItems))
	copy(out.FieldItems, c.FieldItems)
	return out
}

// encodeItem stores a Value the way the board API would, as strings.
func encodeItem(fieldID string, v Value) FieldItem {
	item := FieldItem{FieldID: fieldID}
	switch v.Kind {
	case KindNumber, KindFormula:
		item.Number = strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindCheckbox:
		item.Checked = strconv.FormatBool(v.Bool)
	case KindTitle, KindText, KindSelect:
		item.Text = v.Str
	}
	return item
}

// MockDatabase implements DatabaseClient for testing. It keeps entries in
// memory, merges sparse updates into them, and records every mutating
// call. Archived entries disappear from listings but stay inspectable.
type MockDatabase struct {
	mu       sync.Mutex
	entries  []Entry
	archived []string
	nextID   int
	calls    []string
	failOn   map[string]error
}

// NewMockDatabase creates an empty MockDatabase.
func NewMockDatabase() *MockDatabase {
	return &MockDatabase{failOn: make(map[string]error)}
}

// AddEntry seeds an entry as-is.
func (m *MockDatabase) AddEntry(entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, copyEntry(entry))
}

// FailWith makes the named method return err.
func (m *MockDatabase) FailWith(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[method] = err
}

// Calls returns a copy of the recorded mutating calls.
func (m *MockDatabase) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Entry returns the current state of an entry by id.
func (m *MockDatabase) Entry(id string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			return copyEntry(e), true
		}
	}
	return Entry{}, false
}

// Archived returns the ids of archived entries in archival order.
func (m *MockDatabase) Archived() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.archived))
	copy(out, m.archived)
	return out
}

func (m *MockDatabase) ListEntries(ctx context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["ListEntries"]; err != nil {
		return nil, err
	}
	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = copyEntry(e)
	}
	return out, nil
}

func (m *MockDatabase) CreateEntry(ctx context.Context, props Properties) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "CreateEntry")
	if err := m.failOn["CreateEntry"]; err != nil {
		return nil, err
	}
	m.nextID++
	entry := Entry{
		ID:    fmt.Sprintf("entry-%d", m.nextID),
		URL:   fmt.Sprintf("https://notion.example/%d", m.nextID),
		Props: props,
	}
	m.entries = append(m.entries, copyEntry(entry))
	out := copyEntry(entry)
	return &out, nil
}

func (m *MockDatabase) UpdateEntry(ctx context.Context, entryID string, props Properties) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "UpdateEntry "+entryID)
	if err := m.failOn["UpdateEntry"]; err != nil {
		return err
	}
	for i := range m.entries {
		if m.entries[i].ID != entryID {
			continue
		}
		if m.entries[i].Props == nil {
			m.entries[i].Props = make(Properties, len(props))
		}
		for name, v := range props {
			m.entries[i].Props[name] = v
		}
		return nil
	}
	return fmt.Errorf("mock database: no entry %s", entryID)
}

func (m *MockDatabase) ArchiveEntry(ctx context.Context, entryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "ArchiveEntry "+entryID)
	if err := m.failOn["ArchiveEntry"]; err != nil {
		return err
	}
	for i := range m.entries {
		if m.entries[i].ID == entryID {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			m.archived = append(m.archived, entryID)
			return nil
		}
	}
	return fmt.Errorf("mock database: no entry %s", entryID)
}

func copyEntry(e Entry) Entry {
	out := e
	out.Props = make(Properties, len(e.Props))
	for name, v := range e.Props {
		out.Props[name] = v
	}
	return out
}
