package clinical

import (
	"context"
	"fmt"
	"strings"

	"github.com/galinilin/docgemma-connect/internal/tools"
)

// ArticleSummary is one entry of MedicalLiteratureResult, grounded in
// tools/medical_literature.py's ArticleSummary schema.
type ArticleSummary struct {
	Title    string `json:"title"`
	Journal  string `json:"journal"`
	Abstract string `json:"abstract"`
}

// MedicalLiteratureResult is the success shape of
// search_medical_literature.
type MedicalLiteratureResult struct {
	Query      string           `json:"query"`
	TotalFound int              `json:"total_found"`
	Articles   []ArticleSummary `json:"articles"`
}

// Formatted renders r as clinician-facing text (spec §3), satisfying
// tools.Formatter.
func (r MedicalLiteratureResult) Formatted() string {
	if r.TotalFound == 0 {
		return fmt.Sprintf("No articles found for %q.", r.Query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d article(s) found for %q:", r.TotalFound, r.Query)
	for _, a := range r.Articles {
		fmt.Fprintf(&b, "\n- %s (%s): %s", a.Title, a.Journal, a.Abstract)
	}
	return b.String()
}

// articlesByQuery is a small canned table standing in for the two-step
// PubMed E-utilities search (esearch + efetch) the Python source performs
// (tools/medical_literature.py).
var articlesByQuery = map[string][]ArticleSummary{
	"diabetes treatment": {
		{Title: "Metformin as First-Line Therapy in Type 2 Diabetes", Journal: "Diabetes Care", Abstract: "A review of first-line pharmacologic management of type 2 diabetes mellitus."},
	},
}

// SearchMedicalLiterature executes search_medical_literature. It expects
// a "query" argument and an optional "max_results" argument.
func SearchMedicalLiterature(_ context.Context, args map[string]any) tools.Result {
	query, _ := args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return tools.Err(tools.ErrorKindInvalid, "query is required")
	}

	maxResults := 3
	if n, ok := args["max_results"].(float64); ok && n > 0 {
		maxResults = int(n)
	}

	articles := articlesByQuery[strings.ToLower(query)]
	if len(articles) > maxResults {
		articles = articles[:maxResults]
	}
	return tools.Ok(MedicalLiteratureResult{Query: query, TotalFound: len(articles), Articles: articles})
}

// MedicalLiteratureDefinition returns the registry definition for
// search_medical_literature.
func MedicalLiteratureDefinition() tools.Definition {
	return tools.Definition{
		Name:        "search_medical_literature",
		Description: "Search PubMed for medical literature and retrieve abstracts",
		Args: map[string]string{
			"query":       "the search query",
			"max_results": "maximum number of articles to return",
		},
		ArgOrder: []string{"query", "max_results"},
		Executor: SearchMedicalLiterature,
	}
}
