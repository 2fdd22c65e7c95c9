package clinical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDrugSafetyResultFormatted(t *testing.T) {
	withWarning := DrugSafetyResult{BrandName: "dofetilide", HasWarning: true, BoxedWarning: "risk of Torsade de Pointes"}
	assert.Contains(t, withWarning.Formatted(), "Torsade de Pointes")
	assert.Contains(t, withWarning.Formatted(), "dofetilide")

	noWarning := DrugSafetyResult{BrandName: "acetaminophen", HasWarning: false}
	assert.Contains(t, noWarning.Formatted(), "No FDA boxed warning")
}

func TestMedicalLiteratureResultFormatted(t *testing.T) {
	empty := MedicalLiteratureResult{Query: "rare disease"}
	assert.Contains(t, empty.Formatted(), "No articles found")

	found := MedicalLiteratureResult{
		Query:      "diabetes treatment",
		TotalFound: 1,
		Articles:   []ArticleSummary{{Title: "Metformin as First-Line Therapy", Journal: "Diabetes Care", Abstract: "A review."}},
	}
	formatted := found.Formatted()
	assert.Contains(t, formatted, "Metformin as First-Line Therapy")
	assert.Contains(t, formatted, "Diabetes Care")
}

func TestClinicalTrialsResultFormatted(t *testing.T) {
	empty := ClinicalTrialsResult{Condition: "lung cancer"}
	assert.Contains(t, empty.Formatted(), "No actively recruiting trials")

	found := ClinicalTrialsResult{
		Condition: "lung cancer",
		Trials:    []ClinicalTrial{{NCTID: "NCT04567890", Title: "Phase II Trial", Location: "San Francisco, CA", Contact: "trials@example.org"}},
	}
	formatted := found.Formatted()
	assert.Contains(t, formatted, "NCT04567890")
	assert.Contains(t, formatted, "San Francisco, CA")
}

func TestPatientChartResultFormatted(t *testing.T) {
	chart := PatientChartResult{Chart: "PATIENT: James Wilson\nCONDITIONS: Asthma"}
	assert.Equal(t, "PATIENT: James Wilson\nCONDITIONS: Asthma", chart.Formatted())

	ambiguous := PatientChartResult{Matches: []PatientMatch{
		{PatientID: "pat-1001", Name: "James Wilson", BirthDate: "1958-03-11"},
		{PatientID: "pat-1002", Name: "James Wilson", BirthDate: "1971-09-02"},
	}}
	formatted := ambiguous.Formatted()
	assert.Contains(t, formatted, "pat-1001")
	assert.Contains(t, formatted, "pat-1002")
	assert.Contains(t, formatted, "Multiple matching patients")
}

func TestLookupPatientChartAmbiguousNameIsFormatter(t *testing.T) {
	result := LookupPatientChart(nil, map[string]any{"patient_name": "James Wilson"})
	assert.False(t, result.IsError())

	formatter, ok := result.Value.(interface{ Formatted() string })
	if assert.True(t, ok, "PatientChartResult must implement tools.Formatter") {
		assert.Contains(t, formatter.Formatted(), "Multiple matching patients")
	}
}
