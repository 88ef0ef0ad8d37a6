// Package ingest normalizes heterogeneous source records into memory
// records and writes them to a store, one at a time.
package ingest

import (
	"strings"

	"github.com/mwilhelmy/recall/internal/memory"
	"github.com/mwilhelmy/recall/internal/movies"
)

// PlaceholderText substitutes missing text fields so the embedding gateway
// never sees empty input.
const PlaceholderText = "UNKNOWN"

// Source names recorded on normalized records.
const (
	SourceGitHub = "GitHub"
	SourceMflix  = "Sample_Mflix_Movies"
)

// Reference is a web page URL with a human-readable description.
type Reference struct {
	URL         string
	Description string
}

// ReferenceRecords normalizes URL/description pairs. Pairs without a URL
// cannot be keyed and are skipped; skipped reports how many.
func ReferenceRecords(collection string, refs []Reference) (records []memory.Record, skipped int) {
	records = make([]memory.Record, 0, len(refs))
	for _, ref := range refs {
		if strings.TrimSpace(ref.URL) == "" {
			skipped++
			continue
		}
		desc := strings.TrimSpace(ref.Description)
		if desc == "" {
			desc = PlaceholderText
		}
		records = append(records, memory.Record{
			Collection:  collection,
			ExternalID:  ref.URL,
			Text:        desc,
			Description: desc,
			SourceName:  SourceGitHub,
		})
	}
	return records, skipped
}

// MovieRecords normalizes movie documents. A movie without a title has no
// usable external id and is skipped; a movie without a plot is stored with
// the placeholder text so it still embeds and remains searchable.
func MovieRecords(collection string, docs []movies.Movie) (records []memory.Record, skipped int) {
	records = make([]memory.Record, 0, len(docs))
	for _, movie := range docs {
		if strings.TrimSpace(movie.Title) == "" {
			skipped++
			continue
		}
		plot := strings.TrimSpace(movie.Plot)
		if plot == "" {
			plot = PlaceholderText
		}
		records = append(records, memory.Record{
			Collection:         collection,
			ExternalID:         movie.Title,
			Text:               plot,
			Description:        plot,
			SourceName:         SourceMflix,
			AdditionalMetadata: movie.ParsedYear().String(),
		})
	}
	return records, skipped
}
