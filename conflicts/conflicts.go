// Package conflicts computes allergy conflicts between a patient and the drugs
// being prescribed to them.
//
// Every function in this package is pure: inputs are never mutated, nothing is
// logged and no I/O happens. Missing or malformed data (nil patient, nil drug,
// unresolved allergy references, zero ids) always degrades to "no conflict".
// The result is a usability warning, not a safety gate.
package conflicts

import (
	"strings"

	"github.com/giygas/allergycheck-api/clinicalsync/entities"
)

const (
	warningPrefix       = "Warning: Patient is allergic to: "
	singleDrugSuffix    = ". This drug may cause an allergic reaction."
	prescriptionSuffix  = ". One or more drugs may cause an allergic reaction."
	conflictNameJoining = ", "
)

// Conflict describes one allergy shared by the patient chart and a drug's conflict list.
// Allergy carries the drug-side id and the resolved name; Reaction and Severity come from the patient record.
type Conflict struct {
	Allergy  entities.Allergy  `json:"allergy"`
	Reaction string            `json:"reaction,omitempty"`
	Severity entities.Severity `json:"severity,omitempty"`
}

// Result is the outcome of evaluating one drug against one patient.
// Names is ordered by first appearance in the drug's conflict list.
type Result struct {
	DrugID      int        `json:"drug_id,omitempty"`
	HasConflict bool       `json:"has_conflict"`
	Names       []string   `json:"names"`
	Conflicts   []Conflict `json:"conflicts,omitempty"`
}

func noConflict(drugID int) Result {
	return Result{DrugID: drugID, Names: []string{}}
}

// EvaluateSingle reports which of the patient's documented allergies appear in
// the drug's conflict list. Allergies are matched by id only.
func EvaluateSingle(patient *entities.Patient, drug *entities.Drug) Result {
	if drug == nil {
		return noConflict(0)
	}
	if patient == nil || len(patient.AllergyRecords) == 0 || len(drug.AllergyConflicts) == 0 {
		return noConflict(drug.ID)
	}

	allergic := patientAllergies(patient)
	if len(allergic) == 0 {
		return noConflict(drug.ID)
	}

	result := noConflict(drug.ID)
	seen := make(map[int]struct{}, len(drug.AllergyConflicts))

	for _, candidate := range drug.AllergyConflicts {
		if candidate.ID == 0 {
			continue
		}
		record, ok := allergic[candidate.ID]
		if !ok {
			continue
		}
		if _, dup := seen[candidate.ID]; dup {
			continue
		}
		name := conflictName(candidate, record)
		if name == "" {
			continue
		}
		seen[candidate.ID] = struct{}{}

		matched := candidate
		matched.Name = name
		result.Names = append(result.Names, name)
		result.Conflicts = append(result.Conflicts, Conflict{
			Allergy:  matched,
			Reaction: record.Reaction,
			Severity: record.Severity,
		})
	}

	result.HasConflict = len(result.Names) > 0
	return result
}

// conflictName prefers the drug-side name and falls back to the patient record.
// An empty result means neither side named the allergy.
func conflictName(candidate entities.Allergy, record *entities.AllergyRecord) string {
	if name := strings.TrimSpace(candidate.Name); name != "" {
		return name
	}
	return strings.TrimSpace(record.Allergy.Name)
}

// patientAllergies indexes the resolvable allergy records of a patient by allergy id.
// When an allergy is charted twice the first record is kept.
func patientAllergies(patient *entities.Patient) map[int]*entities.AllergyRecord {
	allergic := make(map[int]*entities.AllergyRecord, len(patient.AllergyRecords))
	for i := range patient.AllergyRecords {
		record := &patient.AllergyRecords[i]
		if record.Allergy == nil || record.Allergy.ID == 0 {
			continue
		}
		if _, exists := allergic[record.Allergy.ID]; !exists {
			allergic[record.Allergy.ID] = record
		}
	}
	return allergic
}

// EvaluateMany evaluates each drug independently against the same patient.
// The returned slice has one result per drug, in input order.
func EvaluateMany(patient *entities.Patient, drugs []*entities.Drug) []Result {
	results := make([]Result, len(drugs))
	for i, drug := range drugs {
		results[i] = EvaluateSingle(patient, drug)
	}
	return results
}

// FormatWarning renders the single-drug warning shown next to a medication.
// It returns false when the result has no conflict and nothing should be shown.
func FormatWarning(result Result) (string, bool) {
	if !result.HasConflict {
		return "", false
	}
	return warningPrefix + strings.Join(result.Names, conflictNameJoining) + singleDrugSuffix, true
}
