package clinical

import (
	"context"
	"fmt"
	"strings"

	"github.com/galinilin/docgemma-connect/internal/tools"
)

// ClinicalTrial is one entry of ClinicalTrialsResult, grounded in
// tools/clinical_trials.py's ClinicalTrial schema.
type ClinicalTrial struct {
	NCTID    string `json:"nct_id"`
	Title    string `json:"title"`
	Location string `json:"location"`
	Contact  string `json:"contact"`
}

// ClinicalTrialsResult is the success shape of search_clinical_trials.
type ClinicalTrialsResult struct {
	Condition string          `json:"condition"`
	Trials    []ClinicalTrial `json:"trials"`
}

// Formatted renders r as clinician-facing text (spec §3), satisfying
// tools.Formatter.
func (r ClinicalTrialsResult) Formatted() string {
	if len(r.Trials) == 0 {
		return fmt.Sprintf("No actively recruiting trials found for %s.", r.Condition)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d trial(s) found for %s:", len(r.Trials), r.Condition)
	for _, t := range r.Trials {
		fmt.Fprintf(&b, "\n- %s (%s), %s, contact %s", t.Title, t.NCTID, t.Location, t.Contact)
	}
	return b.String()
}

// trialsByCondition is a small canned table standing in for the
// ClinicalTrials.gov API v2 search the Python source performs
// (tools/clinical_trials.py), limited to 3 results as the source does.
var trialsByCondition = map[string][]ClinicalTrial{
	"lung cancer": {
		{NCTID: "NCT04567890", Title: "Phase II Trial of Targeted Therapy in Advanced NSCLC", Location: "San Francisco, CA", Contact: "trials@example-cancer-center.org"},
		{NCTID: "NCT04998877", Title: "Immunotherapy Combination for Recurrent Lung Cancer", Location: "Boston, MA", Contact: "recruit@example-onc.org"},
	},
}

// SearchClinicalTrials executes search_clinical_trials. It expects a
// "condition" argument and an optional "location" argument.
func SearchClinicalTrials(_ context.Context, args map[string]any) tools.Result {
	condition, _ := args["condition"].(string)
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return tools.Err(tools.ErrorKindInvalid, "condition is required")
	}

	trials := trialsByCondition[strings.ToLower(condition)]
	if len(trials) > 3 {
		trials = trials[:3]
	}
	return tools.Ok(ClinicalTrialsResult{Condition: condition, Trials: trials})
}

// ClinicalTrialsDefinition returns the registry definition for
// search_clinical_trials.
func ClinicalTrialsDefinition() tools.Definition {
	return tools.Definition{
		Name:        "search_clinical_trials",
		Description: "Find actively recruiting clinical trials for a condition",
		Args: map[string]string{
			"condition": "the medical condition to search for",
			"location":  "optional location filter",
		},
		ArgOrder: []string{"condition", "location"},
		Executor: SearchClinicalTrials,
	}
}
