package conflicts

import (
	"strings"

	"github.com/giygas/allergycheck-api/clinicalsync/entities"
)

// DrugLookup resolves a drug id from a medication line item.
type DrugLookup func(id int) (*entities.Drug, bool)

// LineResult is the evaluation of one medication line item.
// DrugFound is false when the lookup could not resolve the drug; such a line never conflicts.
type LineResult struct {
	Item      entities.MedicationLineItem `json:"item"`
	DrugFound bool                        `json:"drug_found"`
	Result    Result                      `json:"result"`
}

// PrescriptionResult aggregates the line results of a multi-drug prescription.
// Names holds the union of conflicting allergy names across lines, deduplicated
// by allergy id, in order of first appearance.
type PrescriptionResult struct {
	Lines       []LineResult `json:"lines"`
	HasConflict bool         `json:"has_conflict"`
	Names       []string     `json:"names"`
}

// EvaluatePrescription evaluates every line item independently and aggregates the conflicts.
func EvaluatePrescription(patient *entities.Patient, items []entities.MedicationLineItem, lookup DrugLookup) PrescriptionResult {
	out := PrescriptionResult{Lines: make([]LineResult, len(items))}
	results := make([]Result, len(items))

	for i, item := range items {
		line := LineResult{Item: item, Result: noConflict(item.DrugID)}

		var drug *entities.Drug
		if lookup != nil && item.DrugID != 0 {
			drug, line.DrugFound = lookup(item.DrugID)
		}
		if line.DrugFound && drug != nil {
			line.Result = EvaluateSingle(patient, drug)
		} else {
			line.DrugFound = false
		}

		out.Lines[i] = line
		results[i] = line.Result
	}

	out.Names = MergeNames(results)
	out.HasConflict = len(out.Names) > 0
	return out
}

// MergeNames returns the union of conflicting allergy names across results,
// deduplicated by allergy id in order of first appearance.
func MergeNames(results []Result) []string {
	names := []string{}
	seen := make(map[int]struct{})
	for _, r := range results {
		for _, c := range r.Conflicts {
			if _, dup := seen[c.Allergy.ID]; dup {
				continue
			}
			seen[c.Allergy.ID] = struct{}{}
			names = append(names, c.Allergy.Name)
		}
	}
	return names
}

// FormatPrescriptionWarning renders the prescription-wide warning, the same
// sentence the clinical backend returns as allergy_warning.
func FormatPrescriptionWarning(result PrescriptionResult) (string, bool) {
	if !result.HasConflict {
		return "", false
	}
	return warningPrefix + strings.Join(result.Names, conflictNameJoining) + prescriptionSuffix, true
}
