package models

// ScoredResult is a single ranked hit.
type ScoredResult struct {
	ID       int64             `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score"`
	Rank     int               `json:"rank"`
}

// SearchResponse is the response for a search request.
// Best is the first element of Results, or nil when the store holds no scorable records.
type SearchResponse struct {
	Query   string          `json:"query"`
	Best    *ScoredResult   `json:"best"`
	Results []*ScoredResult `json:"results"`
	// Excluded lists records skipped because their embedding has zero magnitude.
	Excluded     []int64 `json:"excluded,omitempty"`
	TotalRecords int     `json:"total_records"`
	QueryTime    int64   `json:"query_time_ms"`
}
