// Package clinical provides the four concrete clinical tool executors
// named in spec §4.B / §4.F: check_drug_safety, search_medical_literature,
// search_clinical_trials, and lookup_patient_chart. Each is grounded in
// its original_source/src/docgemma/tools/*.py counterpart but returns
// mocked/canned structured data rather than performing the real FHIR/
// OpenFDA/PubMed/ClinicalTrials.gov HTTP calls, which spec §1 places
// deliberately out of scope for this core.
package clinical

import (
	"context"
	"fmt"
	"strings"

	"github.com/galinilin/docgemma-connect/internal/tools"
)

// DrugSafetyResult is the success shape of check_drug_safety, grounded in
// tools/drug_safety.py's DrugSafetyOutput.
type DrugSafetyResult struct {
	BrandName    string `json:"brand_name"`
	HasWarning   bool   `json:"has_warning"`
	BoxedWarning string `json:"boxed_warning,omitempty"`
}

// Formatted renders r as clinician-facing text (spec §3), satisfying
// tools.Formatter.
func (r DrugSafetyResult) Formatted() string {
	if !r.HasWarning {
		return fmt.Sprintf("No FDA boxed warning found for %s.", r.BrandName)
	}
	return fmt.Sprintf("%s carries an FDA boxed warning: %s", r.BrandName, r.BoxedWarning)
}

// boxedWarnings is a small canned table of FDA boxed ("black box")
// warnings, standing in for the OpenFDA drug-label lookup the Python
// source performs over HTTP (tools/drug_safety.py).
var boxedWarnings = map[string]string{
	"dofetilide": "WARNING: Dofetilide can cause serious ventricular arrhythmias, " +
		"primarily Torsade de Pointes (TdP), associated with QT prolongation. " +
		"Initiation or re-initiation must occur in a facility with continuous " +
		"ECG monitoring and personnel trained in arrhythmia management.",
	"amiodarone": "WARNING: Amiodarone can cause pulmonary toxicity, hepatotoxicity, " +
		"and worsening of arrhythmia. Use only in patients with life-threatening " +
		"recurrent ventricular arrhythmias when other agents are ineffective or " +
		"not tolerated.",
}

// CheckDrugSafety executes check_drug_safety. It expects a "brand_name"
// argument.
func CheckDrugSafety(_ context.Context, args map[string]any) tools.Result {
	brandName, _ := args["brand_name"].(string)
	brandName = strings.TrimSpace(brandName)
	if brandName == "" {
		return tools.Err(tools.ErrorKindInvalid, "brand_name is required")
	}

	key := strings.ToLower(brandName)
	warning, found := boxedWarnings[key]
	if !found {
		return tools.Ok(DrugSafetyResult{BrandName: brandName, HasWarning: false})
	}
	return tools.Ok(DrugSafetyResult{BrandName: brandName, HasWarning: true, BoxedWarning: warning})
}

// Definition returns the registry definition for check_drug_safety.
func DrugSafetyDefinition() tools.Definition {
	return tools.Definition{
		Name:        "check_drug_safety",
		Description: "Check for FDA boxed warnings on a medication by brand name",
		Args:        map[string]string{"brand_name": "the medication's brand name"},
		ArgOrder:    []string{"brand_name"},
		Executor:    CheckDrugSafety,
	}
}
