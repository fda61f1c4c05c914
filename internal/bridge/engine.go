package bridge

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
)

// Tally counts the records written in one propagation direction.
type Tally struct {
	Created int
	Updated int
}

// Stats summarizes a single reconciliation pass.
type Stats struct {
	TrelloToNotion Tally
	NotionToTrello Tally
	Archived       int // entries archived by the deletion pass
	Deleted        int // cards deleted by the deletion pass
	Errors         int
}

// String renders the pass on one line for logs and CLI output.
func (s *Stats) String() string {
	if s == nil {
		return "no stats"
	}
	return fmt.Sprintf("entries %d created %d updated, cards %d created %d updated, %d archived, %d deleted, %d errors",
		s.TrelloToNotion.Created, s.TrelloToNotion.Updated,
		s.NotionToTrello.Created, s.NotionToTrello.Updated,
		s.Archived, s.Deleted, s.Errors)
}

// Engine runs reconciliation passes between a board and a database. An
// Engine never starts a pass while one of its own is in flight; callers
// serialize overlapping invocations (the daemon's trigger loop does).
type Engine struct {
	board    BoardClient
	database DatabaseClient
	out      io.Writer
}

// Opts holds parameters for creating an Engine.
type Opts struct {
	Board    BoardClient
	Database DatabaseClient
	// Out receives human-readable progress. Defaults to io.Discard.
	Out io.Writer
}

// New creates an Engine.
func New(opts Opts) (*Engine, error) {
	if opts.Board == nil {
		return nil, fmt.Errorf("bridge: board client is required")
	}
	if opts.Database == nil {
		return nil, fmt.Errorf("bridge: database client is required")
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Engine{board: opts.Board, database: opts.Database, out: opts.Out}, nil
}

// state is the working set of one pass: the snapshot fetched up front,
// the lookup maps built from it, and the in-memory mirror of every write
// made during the pass, so that later steps see earlier effects without
// refetching.
type state struct {
	cards   []*Card
	entries []*Entry
	lists   []List
	defs    []CustomField

	listName map[string]string     // list id -> list name
	listID   map[string]string     // list name -> list id
	fieldID  map[string]string     // custom field name -> definition id
	cardByID map[string]*Card      // deduplicated, keep-first
	entryFor map[string]*Entry     // card id -> entry referencing it
	values   map[string]Properties // card id -> resolved field values
}

// Sync runs one full reconciliation pass and returns its statistics. The
// returned Stats is never nil. A failed upfront fetch aborts the pass;
// failures on individual records are logged, counted and skipped.
func (e *Engine) Sync(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	st, err := e.fetch(ctx)
	if err != nil {
		stats.Errors++
		return stats, err
	}
	st.build()

	e.syncBoardToDatabase(ctx, st, stats)
	e.syncDatabaseToBoard(ctx, st, stats)
	e.sweepDeleted(ctx, st, stats)

	fmt.Fprintf(e.out, "sync complete: to notion %d created / %d updated, to trello %d created / %d updated, %d archived, %d deleted, %d errors\n",
		stats.TrelloToNotion.Created, stats.TrelloToNotion.Updated,
		stats.NotionToTrello.Created, stats.NotionToTrello.Updated,
		stats.Archived, stats.Deleted, stats.Errors)
	return stats, nil
}

// fetch lists both services in parallel. Any failure is fatal to the pass.
func (e *Engine) fetch(ctx context.Context) (*state, error) {
	var (
		wg      sync.WaitGroup
		cards   []Card
		lists   []List
		defs    []CustomField
		entries []Entry
		errs    [4]error
	)
	wg.Add(4)
	go func() { defer wg.Done(); cards, errs[0] = e.board.ListCards(ctx) }()
	go func() { defer wg.Done(); lists, errs[1] = e.board.ListLists(ctx) }()
	go func() { defer wg.Done(); defs, errs[2] = e.board.ListCustomFields(ctx) }()
	go func() { defer wg.Done(); entries, errs[3] = e.database.ListEntries(ctx) }()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("bridge: fetch: %w", err)
		}
	}

	st := &state{lists: lists, defs: defs}
	for i := range cards {
		st.cards = append(st.cards, &cards[i])
	}
	for i := range entries {
		st.entries = append(st.entries, &entries[i])
	}
	return st, nil
}

// build indexes the snapshot. A card id appearing more than once in one
// listing is an API anomaly: the first occurrence wins and every
// collision is logged.
func (st *state) build() {
	st.listName = make(map[string]string, len(st.lists))
	st.listID = make(map[string]string, len(st.lists))
	for _, l := range st.lists {
		st.listName[l.ID] = l.Name
		st.listID[l.Name] = l.ID
	}

	st.fieldID = make(map[string]string, len(st.defs))
	for _, def := range st.defs {
		st.fieldID[def.Name] = def.ID
	}

	st.cardByID = make(map[string]*Card, len(st.cards))
	st.values = make(map[string]Properties, len(st.cards))
	deduped := st.cards[:0]
	for _, card := range st.cards {
		if _, seen := st.cardByID[card.ID]; seen {
			log.Printf("bridge: board listing returned card id %s more than once, keeping the first", card.ID)
			continue
		}
		st.cardByID[card.ID] = card
		st.values[card.ID] = FieldValues(*card, st.defs)
		deduped = append(deduped, card)
	}
	st.cards = deduped

	st.entryFor = make(map[string]*Entry, len(st.entries))
	for _, entry := range st.entries {
		if id := entry.Props.Text(TrelloIDProp); id != "" {
			st.entryFor[id] = entry
		}
	}
}

// syncBoardToDatabase pushes each card to its linked entry, creating
// entries for unlinked cards. A card already marked synced with no entry
// referencing it is a deletion candidate, not a creation candidate, and
// is left for the deletion pass.
func (e *Engine) syncBoardToDatabase(ctx context.Context, st *state, stats *Stats) {
	for _, card := range st.cards {
		values := st.values[card.ID]
		props := EntryProperties(*card, values, st.listName[card.ListID])

		entry, linked := st.entryFor[card.ID]
		if !linked {
			if values.Checkbox(SyncedName) {
				continue
			}
			created, err := e.database.CreateEntry(ctx, props)
			if err != nil {
				log.Printf("bridge: create entry for card %s (%q): %v", card.ID, card.Name, err)
				stats.Errors++
				continue
			}
			st.entries = append(st.entries, created)
			st.entryFor[card.ID] = created
			stats.TrelloToNotion.Created++
			fmt.Fprintf(e.out, "created entry %s for card %q\n", created.ID, card.Name)
			continue
		}

		if !entryDiffers(props, entry.Props) {
			continue
		}
		if err := e.database.UpdateEntry(ctx, entry.ID, props); err != nil {
			log.Printf("bridge: update entry %s for card %s (%q): %v", entry.ID, card.ID, card.Name, err)
			stats.Errors++
			continue
		}
		mergeProps(entry, props)
		stats.TrelloToNotion.Updated++
		fmt.Fprintf(e.out, "updated entry %s from card %q\n", entry.ID, card.Name)
	}
}

// entryDiffers reports whether mapped card properties disagree with an
// entry on any compared aspect: title, Department or a score field.
func entryDiffers(props, current Properties) bool {
	if Differs(props[TitleProp], TitleValue(current.Title())) {
		return true
	}
	if Differs(props[DepartmentProp], current[DepartmentProp]) {
		return true
	}
	for _, name := range ScoreFields {
		if Differs(props[name], current[name]) {
			return true
		}
	}
	return false
}

// mergeProps records a successful sparse update on the in-memory entry.
func mergeProps(entry *Entry, props Properties) {
	if entry.Props == nil {
		entry.Props = make(Properties, len(props))
	}
	for name, v := range props {
		entry.Props[name] = v
	}
}

// syncDatabaseToBoard pushes each entry to its linked card, creating
// cards for entries with no cross-reference. An entry referencing a card
// that is gone is skipped here; the deletion pass decides its fate.
func (e *Engine) syncDatabaseToBoard(ctx context.Context, st *state, stats *Stats) {
	for _, entry := range st.entries {
		cardID := entry.Props.Text(TrelloIDProp)
		if cardID == "" {
			e.createCardFor(ctx, st, entry, stats)
			continue
		}
		card, ok := st.cardByID[cardID]
		if !ok {
			log.Printf("bridge: entry %s references card %s which no longer exists", entry.ID, cardID)
			continue
		}
		if e.applyCardUpdates(ctx, st, entry, card, stats) {
			stats.NotionToTrello.Updated++
		}
	}
}

// createCardFor creates a board card for an unlinked entry, writes the
// new card's id back into the entry, and seeds the card's fields so the
// pair is consistent when the pass ends.
func (e *Engine) createCardFor(ctx context.Context, st *state, entry *Entry, stats *Stats) {
	title := entry.Props.Title()
	dept := entry.Props.Select(DepartmentProp)
	listID, ok := st.listID[dept]
	if !ok {
		if len(st.lists) == 0 {
			log.Printf("bridge: cannot create card for entry %s: board has no lists", entry.ID)
			return
		}
		listID = st.lists[0].ID
		log.Printf("bridge: entry %s department %q matches no list, using %q", entry.ID, dept, st.lists[0].Name)
	}

	card, err := e.board.CreateCard(ctx, title, listID)
	if err != nil {
		log.Printf("bridge: create card for entry %s (%q): %v", entry.ID, title, err)
		stats.Errors++
		return
	}
	st.cardByID[card.ID] = card
	st.values[card.ID] = make(Properties)

	link := Properties{
		TrelloIDProp: TextValue(card.ID),
		SyncedName:   CheckboxValue(true),
	}
	if err := e.database.UpdateEntry(ctx, entry.ID, link); err != nil {
		log.Printf("bridge: link entry %s to card %s: %v", entry.ID, card.ID, err)
		stats.Errors++
		return
	}
	mergeProps(entry, link)
	st.entryFor[card.ID] = entry
	stats.NotionToTrello.Created++
	fmt.Fprintf(e.out, "created card %q for entry %s\n", title, entry.ID)

	e.applyCardUpdates(ctx, st, entry, card, stats)
}

// applyCardUpdates issues one remote call per changed aspect of a linked
// pair: title, list, each custom field, then the one-way values the
// database is authoritative for. Reports whether any call was made. A
// failed call abandons the record until the next pass.
func (e *Engine) applyCardUpdates(ctx context.Context, st *state, entry *Entry, card *Card, stats *Stats) bool {
	updated := false
	title, fields := CardUpdate(*entry)

	if Differs(TitleValue(title), TitleValue(card.Name)) {
		if err := e.board.UpdateCard(ctx, card.ID, title); err != nil {
			log.Printf("bridge: rename card %s from entry %s: %v", card.ID, entry.ID, err)
			stats.Errors++
			return updated
		}
		card.Name = title
		updated = true
	}

	if dept := entry.Props.Select(DepartmentProp); dept != "" {
		listID, ok := st.listID[dept]
		switch {
		case !ok:
			log.Printf("bridge: entry %s department %q matches no list", entry.ID, dept)
		case listID != card.ListID:
			if err := e.board.MoveCard(ctx, card.ID, listID); err != nil {
				log.Printf("bridge: move card %s from entry %s: %v", card.ID, entry.ID, err)
				stats.Errors++
				return updated
			}
			card.ListID = listID
			updated = true
		}
	}

	values := st.values[card.ID]
	names := make([]string, 0, len(ScoreFields)+1)
	names = append(names, ScoreFields...)
	names = append(names, SyncedName)
	for _, name := range names {
		want, ok := fields[name]
		if !ok || !Differs(want, values[name]) {
			continue
		}
		applied, err := e.setCardField(ctx, st, card, name, want)
		if err != nil {
			log.Printf("bridge: set field %q on card %s from entry %s: %v", name, card.ID, entry.ID, err)
			stats.Errors++
			return updated
		}
		if applied {
			updated = true
		}
	}

	// One-way propagation of database-computed values.
	if score, ok := entry.Props.Derived(TotalScoreName); ok {
		want := NumberValue(score)
		if Differs(want, values[TotalScoreName]) {
			applied, err := e.setCardField(ctx, st, card, TotalScoreName, want)
			if err != nil {
				log.Printf("bridge: set total score on card %s from entry %s: %v", card.ID, entry.ID, err)
				stats.Errors++
				return updated
			}
			if applied {
				updated = true
			}
		}
	}
	if entry.URL != "" {
		want := TextValue(entry.URL)
		if Differs(want, values[NotionLinkField]) {
			applied, err := e.setCardField(ctx, st, card, NotionLinkField, want)
			if err != nil {
				log.Printf("bridge: set link on card %s from entry %s: %v", card.ID, entry.ID, err)
				stats.Errors++
				return updated
			}
			if applied {
				updated = true
			}
		}
	}

	return updated
}

// setCardField writes one custom field value, mirroring it into the
// working set on success. A field the board does not define is logged
// and skipped without error.
func (e *Engine) setCardField(ctx context.Context, st *state, card *Card, name string, v Value) (bool, error) {
	fieldID, ok := st.fieldID[name]
	if !ok {
		log.Printf("bridge: board defines no custom field %q", name)
		return false, nil
	}
	if err := e.board.SetCustomField(ctx, card.ID, fieldID, v); err != nil {
		return false, err
	}
	st.values[card.ID][name] = v
	return true, nil
}

// sweepDeleted applies the deletion convention. Only records marked
// synced are candidates, and only once their counterpart is confirmed
// absent from the snapshot: a record that merely vanished from one side
// is never touched until a completed sync pass has marked it.
func (e *Engine) sweepDeleted(ctx context.Context, st *state, stats *Stats) {
	for _, entry := range st.entries {
		if !entry.Props.Checkbox(SyncedName) {
			continue
		}
		cardID := entry.Props.Text(TrelloIDProp)
		if cardID == "" {
			continue
		}
		if _, ok := st.cardByID[cardID]; ok {
			continue
		}
		if err := e.database.ArchiveEntry(ctx, entry.ID); err != nil {
			log.Printf("bridge: archive entry %s: %v", entry.ID, err)
			stats.Errors++
			continue
		}
		stats.Archived++
		fmt.Fprintf(e.out, "archived entry %s: card %s is gone\n", entry.ID, cardID)
	}

	for _, card := range st.cards {
		if !st.values[card.ID].Checkbox(SyncedName) {
			continue
		}
		if _, ok := st.entryFor[card.ID]; ok {
			continue
		}
		if err := e.board.DeleteCard(ctx, card.ID); err != nil {
			log.Printf("bridge: delete card %s (%q): %v", card.ID, card.Name, err)
			stats.Errors++
			continue
		}
		stats.Deleted++
		fmt.Fprintf(e.out, "deleted card %q: no entry references it\n", card.Name)
	}
}
