package doab

import (
	"strings"
)

// Normalize flattens a raw record into a Book. Each extractor tries the
// direct field, then the metadata fallbacks; NotAvailable fills the rest.
func Normalize(rec RawRecord) Book {
	return Book{
		Title:   orNotAvailable(ExtractTitle(rec)),
		Authors: orNotAvailable(ExtractAuthors(rec)),
		Year:    orNotAvailable(ExtractYear(rec)),
		URL:     orNotAvailable(ExtractURL(rec)),
	}
}

// ExtractTitle: direct "title", else the first dc.title metadata value.
func ExtractTitle(rec RawRecord) (string, bool) {
	if title, ok := rec.String("title"); ok {
		return title, true
	}
	if entry, ok := firstEntry(rec, KeyTitle); ok && entry.Value != "" {
		return entry.Value, true
	}
	return "", false
}

// ExtractAuthors joins author names with ", ".
//
// A non-empty direct "authors" list contributes each entry's fullName.
// Otherwise dc.contributor.author metadata values are used. If neither
// produced a name, every dc.contributor* metadata value is used.
func ExtractAuthors(rec RawRecord) (string, bool) {
	var names []string
	if authors, ok := rec.List("authors"); ok {
		for _, a := range authors {
			obj, ok := a.(map[string]any)
			if !ok {
				continue
			}
			if name, ok := scalarString(obj["fullName"]); ok {
				names = append(names, name)
			}
		}
	} else {
		names = metadataValues(rec, func(key string) bool {
			return key == KeyContributorAuthor
		})
	}

	if len(names) == 0 {
		names = metadataValues(rec, func(key string) bool {
			return strings.HasPrefix(key, KeyContributorPrefix)
		})
	}

	if len(names) == 0 {
		return "", false
	}
	return strings.Join(names, ", "), true
}

// ExtractYear returns the first four characters of "publicationDate", else of
// the first dc.date.issued metadata value.
func ExtractYear(rec RawRecord) (string, bool) {
	date, ok := rec.String("publicationDate")
	if !ok {
		if entry, found := firstEntry(rec, KeyDateIssued); found && entry.Value != "" {
			date, ok = entry.Value, true
		}
	}
	if !ok {
		return "", false
	}
	return firstRunes(date, 4), true
}

// ExtractURL builds the canonical directory URL from "handle".
func ExtractURL(rec RawRecord) (string, bool) {
	handle, ok := rec.String("handle")
	if !ok {
		return "", false
	}
	return HandleBaseURL + handle, true
}

// firstEntry returns the first metadata entry with the given key.
func firstEntry(rec RawRecord, key string) (MetadataEntry, bool) {
	for _, entry := range rec.Metadata() {
		if entry.Key == key {
			return entry, true
		}
	}
	return MetadataEntry{}, false
}

// metadataValues collects values of matching entries. Null values are skipped.
func metadataValues(rec RawRecord, match func(key string) bool) []string {
	var values []string
	for _, entry := range rec.Metadata() {
		if match(entry.Key) && entry.HasValue {
			values = append(values, entry.Value)
		}
	}
	return values
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func orNotAvailable(value string, ok bool) string {
	if !ok {
		return NotAvailable
	}
	return value
}
