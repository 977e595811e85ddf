package models

import (
	"strings"

	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

// DefaultLimit is the number of results returned when a query does not ask for a count.
const DefaultLimit = 3

// SearchQuery represents a search request.
type SearchQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Validate trims the query text and sets a default limit.
// Returns an invalid query error if nothing but whitespace remains.
func (q *SearchQuery) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return semerr.New(semerr.CodeSearchQueryInvalid, "query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	return nil
}
