package bridge

import (
	"log"
	"math"
	"strconv"
	"strings"
)

// numTolerance absorbs float drift from numbers that round-trip through
// the board API's string encoding.
const numTolerance = 0.001

// FieldValues resolves a card's custom field items to values keyed by
// field name. Items referencing an unknown definition are logged and
// skipped; number-typed items with an empty payload resolve to zero.
func FieldValues(card Card, defs []CustomField) Properties {
	byID := make(map[string]CustomField, len(defs))
	for _, def := range defs {
		byID[def.ID] = def
	}

	vals := make(Properties, len(card.FieldItems))
	for _, item := range card.FieldItems {
		def, ok := byID[item.FieldID]
		if !ok {
			log.Printf("bridge: card %s carries a value for unknown custom field %s", card.ID, item.FieldID)
			continue
		}
		if v, ok := itemValue(item, def); ok {
			vals[def.Name] = v
		}
	}
	return vals
}

// itemValue decodes one custom field item using its definition, taking
// the first populated payload. Malformed payloads decode to absent.
func itemValue(item FieldItem, def CustomField) (Value, bool) {
	switch {
	case item.Number != "":
		n, err := strconv.ParseFloat(item.Number, 64)
		if err != nil {
			return Value{}, false
		}
		return NumberValue(n), true
	case item.Text != "":
		return TextValue(item.Text), true
	case item.Checked != "":
		b, err := strconv.ParseBool(item.Checked)
		if err != nil {
			return Value{}, false
		}
		return CheckboxValue(b), true
	}
	if def.Type == FieldNumber {
		return NumberValue(0), true
	}
	return Value{}, false
}

// EntryProperties maps a card and its resolved field values to the
// database properties its linked entry carries: title, Department,
// the cross-reference id, the synced marker and whichever score fields
// are present on the card.
func EntryProperties(card Card, values Properties, listName string) Properties {
	if listName == "" {
		listName = UnknownDepartment
	}
	props := Properties{
		TitleProp:      TitleValue(card.Name),
		DepartmentProp: SelectValue(listName),
		TrelloIDProp:   TextValue(card.ID),
		SyncedName:     CheckboxValue(true),
	}
	for _, name := range ScoreFields {
		v, ok := values[name]
		if !ok {
			continue
		}
		if n, ok := v.Number(); ok {
			props[name] = NumberValue(n)
		}
	}
	return props
}

// CardUpdate derives the board-side writes for an entry: the card title
// and the custom field values to apply. The synced marker is always
// included; score fields only when present on the entry.
func CardUpdate(entry Entry) (title string, fields Properties) {
	fields = Properties{SyncedName: CheckboxValue(true)}
	for _, name := range ScoreFields {
		if n, ok := entry.Props.Number(name); ok {
			fields[name] = NumberValue(n)
		}
	}
	return entry.Props.Title(), fields
}

// Differs reports whether two values disagree. Two absent values agree,
// a present and an absent value disagree, numbers agree within a
// tolerance of 0.001, and everything else is compared by trimmed string
// form.
func Differs(a, b Value) bool {
	if a.Absent() && b.Absent() {
		return false
	}
	if a.Absent() || b.Absent() {
		return true
	}
	if a.Numeric() && b.Numeric() {
		return math.Abs(a.Num-b.Num) > numTolerance
	}
	return strings.TrimSpace(a.String()) != strings.TrimSpace(b.String())
}
