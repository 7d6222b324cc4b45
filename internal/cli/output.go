// Package cli provides output formatting for the Mitsukeru command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/mitsukeru/internal/models"
	"github.com/hyperjump/mitsukeru/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

const bodyPreviewLen = 120

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	pages := utils.TotalPages(response.Total, response.PerPage)
	fmt.Fprintf(w, "\nFound %d results in %dms (page %d of %d)\n\n",
		response.Total, response.QueryTime, response.Page, pages)
	for i, post := range response.Results {
		rank := (response.Page-1)*response.PerPage + i + 1
		fmt.Fprintf(w, "%3d. [id %d] %s\n", rank, post.ID, utils.Truncate(post.Body, bodyPreviewLen))
	}
	if len(response.Results) == 0 {
		fmt.Fprintln(w, "(no matches)")
	}
}
