// Package models defines the persisted entities and search request/response types.
package models

import (
	"strconv"
	"time"
)

// Post is the demo searchable entity: an integer-keyed record with one
// indexed text field.
type Post struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Body      string    `json:"body" gorm:"size:255"`
	Timestamp time.Time `json:"timestamp" gorm:"autoCreateTime;index"`
}

// SearchID returns the primary identifier used as the index document id.
func (p *Post) SearchID() uint { return p.ID }

// SearchTable returns the table (and index) name for posts.
func (p *Post) SearchTable() string { return "posts" }

// SearchValues returns the indexed field content for this post.
func (p *Post) SearchValues() map[string]string {
	return map[string]string{"body": p.Body}
}

// PostInput is the request body for creating or updating a post.
type PostInput struct {
	Body string `json:"body"`
}

// SearchRequest is a parsed search call: expression plus pagination.
type SearchRequest struct {
	Query   string `json:"query"`
	Table   string `json:"table,omitempty"`
	Page    int    `json:"page,omitempty"`
	PerPage int    `json:"per_page,omitempty"`
}

// Normalize clamps pagination to sane values. defaultPerPage and maxPerPage
// come from config; zero or negative pages become page 1.
func (r *SearchRequest) Normalize(defaultPerPage, maxPerPage int) {
	if r.Page <= 0 {
		r.Page = 1
	}
	if r.PerPage <= 0 {
		r.PerPage = defaultPerPage
	}
	if maxPerPage > 0 && r.PerPage > maxPerPage {
		r.PerPage = maxPerPage
	}
}

// SearchResponse is the response for a search request. Total is the count
// reported by the index (forced to 0 when the id list was empty); Results
// holds the current page in index rank order.
type SearchResponse struct {
	Query     string  `json:"query"`
	Total     int     `json:"total"`
	Page      int     `json:"page"`
	PerPage   int     `json:"per_page"`
	Results   []*Post `json:"results"`
	QueryTime int64   `json:"query_time_ms"`
}

// FormatID renders an entity id the way the search index stores document ids.
func FormatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID converts an index document id back to an entity id.
func ParseID(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}
