package bridge

import "testing"

var testDefs = []CustomField{
	{ID: "f-reach", Name: "Reach", Type: FieldNumber},
	{ID: "f-conf", Name: "Confidence", Type: FieldNumber},
	{ID: "f-effort", Name: "Effort", Type: FieldNumber},
	{ID: "f-impact", Name: "Impact", Type: FieldNumber},
	{ID: "f-total", Name: "Total Score", Type: FieldNumber},
	{ID: "f-synced", Name: "Synced", Type: FieldCheckbox},
	{ID: "f-link", Name: "Notion Link", Type: FieldText},
}

func TestFieldValues_Resolution(t *testing.T) {
	card := Card{
		ID: "abc",
		FieldItems: []FieldItem{
			{FieldID: "f-reach", Number: "5"},
			{FieldID: "f-synced", Checked: "true"},
			{FieldID: "f-link", Text: "https://notion.example/1"},
		},
	}

	vals := FieldValues(card, testDefs)
	if n, ok := vals.Number("Reach"); !ok || n != 5 {
		t.Fatalf("Reach = %v, %v, want 5, true", n, ok)
	}
	if !vals.Checkbox("Synced") {
		t.Fatal("expected Synced true")
	}
	if got := vals.Text("Notion Link"); got != "https://notion.example/1" {
		t.Fatalf("Notion Link = %q", got)
	}
	if _, ok := vals["Confidence"]; ok {
		t.Fatal("Confidence has no item and should be absent")
	}
}

func TestFieldValues_NumberFieldWithEmptyItemIsZero(t *testing.T) {
	card := Card{ID: "abc", FieldItems: []FieldItem{{FieldID: "f-reach"}}}

	vals := FieldValues(card, testDefs)
	if n, ok := vals.Number("Reach"); !ok || n != 0 {
		t.Fatalf("Reach = %v, %v, want 0, true", n, ok)
	}
}

func TestFieldValues_UnknownFieldSkipped(t *testing.T) {
	card := Card{ID: "abc", FieldItems: []FieldItem{
		{FieldID: "f-mystery", Number: "9"},
		{FieldID: "f-reach", Number: "5"},
	}}

	vals := FieldValues(card, testDefs)
	if len(vals) != 1 {
		t.Fatalf("expected 1 resolved value, got %d", len(vals))
	}
	if n, ok := vals.Number("Reach"); !ok || n != 5 {
		t.Fatalf("Reach = %v, %v, want 5, true", n, ok)
	}
}

func TestFieldValues_MalformedPayloadsAbsent(t *testing.T) {
	card := Card{ID: "abc", FieldItems: []FieldItem{
		{FieldID: "f-link", Text: ""},          // text field with no payload
		{FieldID: "f-synced", Checked: "yup"},  // unparseable bool
		{FieldID: "f-reach", Number: "plenty"}, // unparseable number
	}}

	vals := FieldValues(card, testDefs)
	if len(vals) != 0 {
		t.Fatalf("expected no resolved values, got %v", vals)
	}
}

func TestEntryProperties_MapsCard(t *testing.T) {
	card := Card{ID: "abc", Name: "Task A"}
	vals := Properties{
		"Reach":       NumberValue(5),
		"Effort":      NumberValue(2),
		"Notion Link": TextValue("https://notion.example/1"),
	}

	props := EntryProperties(card, vals, "Doing")
	if got := props.Title(); got != "Task A" {
		t.Fatalf("title = %q, want %q", got, "Task A")
	}
	if got := props.Select(DepartmentProp); got != "Doing" {
		t.Fatalf("Department = %q, want %q", got, "Doing")
	}
	if got := props.Text(TrelloIDProp); got != "abc" {
		t.Fatalf("cross-reference = %q, want %q", got, "abc")
	}
	if !props.Checkbox(SyncedName) {
		t.Fatal("expected synced marker set")
	}
	if n, ok := props.Number("Reach"); !ok || n != 5 {
		t.Fatalf("Reach = %v, %v, want 5, true", n, ok)
	}
	if n, ok := props.Number("Effort"); !ok || n != 2 {
		t.Fatalf("Effort = %v, %v, want 2, true", n, ok)
	}
	if _, ok := props["Confidence"]; ok {
		t.Fatal("Confidence is absent on the card and should not be set")
	}
	if _, ok := props["Notion Link"]; ok {
		t.Fatal("Notion Link is not a recognized score field")
	}
}

func TestEntryProperties_UnknownDepartment(t *testing.T) {
	props := EntryProperties(Card{ID: "abc", Name: "Task A"}, Properties{}, "")
	if got := props.Select(DepartmentProp); got != UnknownDepartment {
		t.Fatalf("Department = %q, want %q", got, UnknownDepartment)
	}
}

func TestCardUpdate_RoundTrip(t *testing.T) {
	card := Card{ID: "abc", Name: "Task A", FieldItems: []FieldItem{
		{FieldID: "f-reach", Number: "5"},
		{FieldID: "f-impact", Number: "3.5"},
	}}
	vals := FieldValues(card, testDefs)
	entry := Entry{Props: EntryProperties(card, vals, "Doing")}

	title, fields := CardUpdate(entry)
	if title != "Task A" {
		t.Fatalf("title = %q, want %q", title, "Task A")
	}
	if n, ok := fields.Number("Reach"); !ok || n != 5 {
		t.Fatalf("Reach = %v, %v, want 5, true", n, ok)
	}
	if n, ok := fields.Number("Impact"); !ok || n != 3.5 {
		t.Fatalf("Impact = %v, %v, want 3.5, true", n, ok)
	}
	if _, ok := fields["Confidence"]; ok {
		t.Fatal("Confidence was never set and should not round-trip in")
	}
	if !fields.Checkbox(SyncedName) {
		t.Fatal("expected synced marker forced on")
	}
}

func TestDiffers(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"both absent", Value{}, Value{}, false},
		{"left absent", Value{}, NumberValue(1), true},
		{"right absent", NumberValue(1), Value{}, true},
		{"numbers equal", NumberValue(5), NumberValue(5), false},
		{"within tolerance", NumberValue(1), NumberValue(1.0005), false},
		{"at tolerance", NumberValue(1), NumberValue(1.001), false},
		{"beyond tolerance", NumberValue(1), NumberValue(1.002), true},
		{"number vs formula", NumberValue(42), FormulaValue(42), false},
		{"number vs numeric text", NumberValue(5), TextValue("5"), false},
		{"strings trimmed", TextValue(" a "), TextValue("a"), false},
		{"strings differ", TextValue("a"), TextValue("b"), true},
		{"checkboxes equal", CheckboxValue(true), CheckboxValue(true), false},
		{"checkboxes differ", CheckboxValue(true), CheckboxValue(false), true},
		{"titles differ", TitleValue("Task A"), TitleValue("Task B"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Differs(tt.a, tt.b); got != tt.want {
				t.Fatalf("Differs(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
