package clinical

import (
	"context"
	"fmt"
	"strings"

	"github.com/galinilin/docgemma-connect/internal/tools"
)

// PatientMatch is one candidate when a name search is ambiguous.
type PatientMatch struct {
	PatientID string `json:"patient_id"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
}

// PatientChartResult is the success shape of lookup_patient_chart. Exactly
// one of Chart or Matches is populated: a direct patient_id hit returns a
// formatted Chart; an ambiguous name search returns Matches for the
// clinician to disambiguate, grounded in fhir_store/chart.py and
// fhir_store/search.py's name-matching behavior.
type PatientChartResult struct {
	Chart   string         `json:"chart,omitempty"`
	Matches []PatientMatch `json:"matches,omitempty"`
}

// Formatted renders r as clinician-facing text (spec §3), satisfying
// tools.Formatter. An ambiguous name search lists every candidate so
// result_classify and synthesize both see the disambiguation detail
// (scenario E).
func (r PatientChartResult) Formatted() string {
	if r.Chart != "" {
		return r.Chart
	}
	var b strings.Builder
	b.WriteString("Multiple matching patients found:")
	for _, m := range r.Matches {
		fmt.Fprintf(&b, "\n- %s (patient_id %s, DOB %s)", m.Name, m.PatientID, m.BirthDate)
	}
	return b.String()
}

// patientsByID is a small local chart store standing in for the FHIR JSON
// store the Python source reads (fhir_store/store.py, fhir_store/chart.py).
var patientsByID = map[string]struct {
	name  string
	chart string
}{
	"pat-1001": {
		name: "James Wilson",
		chart: "PATIENT: James Wilson (M, DOB: 1958-03-11)\n" +
			"CONDITIONS: Type 2 diabetes mellitus, Hypertension\n" +
			"MEDICATIONS: Metformin 500mg BID, Lisinopril 10mg daily\n" +
			"ALLERGIES: NKDA",
	},
}

// patientsByName resolves a display name to every matching patient_id, so
// an ambiguous common name surfaces more than one candidate (scenario E).
var patientsByName = map[string][]string{
	"james wilson": {"pat-1001", "pat-1002", "pat-1003"},
}

func init() {
	patientsByID["pat-1002"] = struct {
		name  string
		chart string
	}{name: "James Wilson", chart: "PATIENT: James Wilson (M, DOB: 1971-09-02)\nCONDITIONS: Asthma\nMEDICATIONS: Albuterol PRN\nALLERGIES: Penicillin"}
	patientsByID["pat-1003"] = struct {
		name  string
		chart string
	}{name: "James Wilson", chart: "PATIENT: James Wilson (M, DOB: 1990-12-25)\nCONDITIONS: None documented\nMEDICATIONS: None active\nALLERGIES: NKDA"}
}

// LookupPatientChart executes lookup_patient_chart. It expects either a
// "patient_id" argument (exact lookup) or a "patient_name" argument
// (name search, which may be ambiguous).
func LookupPatientChart(_ context.Context, args map[string]any) tools.Result {
	if id, ok := args["patient_id"].(string); ok && strings.TrimSpace(id) != "" {
		rec, found := patientsByID[id]
		if !found {
			return tools.Err(tools.ErrorKindNotFound, fmt.Sprintf("patient not found: %s", id))
		}
		return tools.Ok(PatientChartResult{Chart: rec.chart})
	}

	name, _ := args["patient_name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return tools.Err(tools.ErrorKindInvalid, "patient_id or patient_name is required")
	}

	ids, found := patientsByName[strings.ToLower(name)]
	if !found || len(ids) == 0 {
		return tools.Err(tools.ErrorKindNotFound, fmt.Sprintf("no patient found matching %q", name))
	}
	if len(ids) == 1 {
		rec := patientsByID[ids[0]]
		return tools.Ok(PatientChartResult{Chart: rec.chart})
	}

	matches := make([]PatientMatch, 0, len(ids))
	for _, id := range ids {
		rec := patientsByID[id]
		matches = append(matches, PatientMatch{PatientID: id, Name: rec.name})
	}
	return tools.Ok(PatientChartResult{Matches: matches})
}

// PatientChartDefinition returns the registry definition for
// lookup_patient_chart.
func PatientChartDefinition() tools.Definition {
	return tools.Definition{
		Name:        "lookup_patient_chart",
		Description: "Retrieve a patient's clinical chart by ID or search by name",
		Args: map[string]string{
			"patient_id":   "exact patient identifier",
			"patient_name": "patient display name, for disambiguation search",
		},
		ArgOrder: []string{"patient_id", "patient_name"},
		Executor: LookupPatientChart,
	}
}

// RegisterAll registers every clinical tool into r.
func RegisterAll(r *tools.Registry) {
	r.Register(DrugSafetyDefinition())
	r.Register(MedicalLiteratureDefinition())
	r.Register(ClinicalTrialsDefinition())
	r.Register(PatientChartDefinition())
}
