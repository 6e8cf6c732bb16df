package doab

import (
	"testing"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCount int
		wantErr   bool
	}{
		{name: "bare list", body: `[{"title":"A"},{"title":"B"}]`, wantCount: 2},
		{name: "records object", body: `{"records":[{"title":"A"}],"total":1}`, wantCount: 1},
		{name: "object without records", body: `{"total":0}`, wantCount: 0},
		{name: "records not a list", body: `{"records":"oops"}`, wantCount: 0},
		{name: "empty list", body: `[]`, wantCount: 0},
		{name: "null", body: `null`, wantCount: 0},
		{name: "scalar", body: `"hello"`, wantCount: 0},
		{name: "non-object items kept as empty records", body: `[1, "x", {"title":"A"}]`, wantCount: 3},
		{name: "invalid json", body: `<html>`, wantErr: true},
		{name: "empty body", body: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ParsePage([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePage: %v", err)
			}
			if len(records) != tt.wantCount {
				t.Errorf("len(records) = %d, want %d", len(records), tt.wantCount)
			}
		})
	}
}

func TestParsePage_NonObjectItemNormalizesToNotAvailable(t *testing.T) {
	records, err := ParsePage([]byte(`[42]`))
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}

	book := Normalize(records[0])
	if book.Year != NotAvailable || book.Title != NotAvailable {
		t.Errorf("Normalize(non-object) = %+v, want all N/A", book)
	}
}

func TestRawRecord_Metadata(t *testing.T) {
	rec := mustRecord(t, `{"metadata":[{"key":"dc.title","value":"T"},"junk",{"key":"dc.date.issued","value":2020},{"key":"dc.note"}]}`)

	entries := rec.Metadata()
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if entries[0] != (MetadataEntry{Key: "dc.title", Value: "T", HasValue: true}) {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Value != "2020" || !entries[1].HasValue {
		t.Errorf("numeric value should render as string, got %+v", entries[1])
	}
	if entries[2].HasValue {
		t.Errorf("missing value should not be marked present, got %+v", entries[2])
	}
}

func TestRawRecord_String(t *testing.T) {
	rec := mustRecord(t, `{"s":"x","empty":"","n":12345678901,"b":true,"o":{}}`)

	tests := []struct {
		field  string
		want   string
		wantOK bool
	}{
		{"s", "x", true},
		{"empty", "", false},
		{"n", "12345678901", true},
		{"b", "", false},
		{"o", "", false},
		{"missing", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, ok := rec.String(tt.field)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("String(%q) = (%q, %v), want (%q, %v)", tt.field, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
