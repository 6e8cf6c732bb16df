package doab

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Dublin Core metadata keys used as fallbacks.
const (
	KeyTitle             = "dc.title"
	KeyContributorAuthor = "dc.contributor.author"
	KeyContributorPrefix = "dc.contributor"
	KeyDateIssued        = "dc.date.issued"
)

// RawRecord is one untyped record as returned by the search API.
type RawRecord map[string]any

// MetadataEntry is one {key, value} pair of a record's metadata list.
type MetadataEntry struct {
	Key string
	// Value is empty when the upstream value is absent, null or not a scalar.
	Value string
	// HasValue reports whether Value came from a string or number.
	HasValue bool
}

// String returns the named field as a string when it is a non-empty string or number.
func (r RawRecord) String(field string) (string, bool) {
	s, ok := scalarString(r[field])
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// List returns the named field when it is a non-empty JSON array.
func (r RawRecord) List(field string) ([]any, bool) {
	list, ok := r[field].([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}
	return list, true
}

// Metadata returns the record's metadata entries in upstream order.
// Entries that are not objects are skipped.
func (r RawRecord) Metadata() []MetadataEntry {
	list, ok := r.List("metadata")
	if !ok {
		return nil
	}

	entries := make([]MetadataEntry, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key, _ := scalarString(obj["key"])
		value, hasValue := scalarString(obj["value"])
		entries = append(entries, MetadataEntry{Key: key, Value: value, HasValue: hasValue})
	}
	return entries
}

// ParsePage decodes a search response body into raw records.
//
// A bare list is the record list; an object contributes its "records" list.
// Any other shape yields no records. List items that are not objects become
// empty records so the page still counts as non-empty.
func ParsePage(body []byte) ([]RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}

	var items []any
	switch v := data.(type) {
	case []any:
		items = v
	case map[string]any:
		items, _ = v["records"].([]any)
	}

	records := make([]RawRecord, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			obj = map[string]any{}
		}
		records = append(records, RawRecord(obj))
	}
	return records, nil
}

// scalarString renders JSON strings and numbers; everything else is absent.
func scalarString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case float64:
		return fmt.Sprintf("%v", val), true
	default:
		return "", false
	}
}
