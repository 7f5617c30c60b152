package conflicts

import (
	"slices"
	"sync"
	"testing"

	"github.com/giygas/allergycheck-api/clinicalsync/entities"
)

func allergy(id int, name string) entities.Allergy {
	return entities.Allergy{ID: id, Name: name}
}

func patientWith(ids ...int) *entities.Patient {
	p := &entities.Patient{ID: 1}
	for _, id := range ids {
		a := allergy(id, "patient-side")
		p.AllergyRecords = append(p.AllergyRecords, entities.AllergyRecord{Allergy: &a})
	}
	return p
}

func drugWith(id int, conflicts ...entities.Allergy) *entities.Drug {
	return &entities.Drug{ID: id, Name: "Drug", AllergyConflicts: conflicts}
}

func TestEvaluateSingle(t *testing.T) {
	tests := []struct {
		name          string
		patient       *entities.Patient
		drug          *entities.Drug
		expectedNames []string
	}{
		{
			name:          "nil patient",
			patient:       nil,
			drug:          drugWith(1, allergy(7, "Penicillin")),
			expectedNames: []string{},
		},
		{
			name:          "nil drug",
			patient:       patientWith(7),
			drug:          nil,
			expectedNames: []string{},
		},
		{
			name:          "both nil",
			expectedNames: []string{},
		},
		{
			name:          "patient without allergies",
			patient:       &entities.Patient{ID: 1},
			drug:          drugWith(1, allergy(7, "Penicillin")),
			expectedNames: []string{},
		},
		{
			name:          "drug without conflicts",
			patient:       patientWith(7),
			drug:          drugWith(1),
			expectedNames: []string{},
		},
		{
			name:          "disjoint sets",
			patient:       patientWith(1, 2),
			drug:          drugWith(1, allergy(3, "Latex")),
			expectedNames: []string{},
		},
		{
			name:          "only shared id is reported",
			patient:       patientWith(1, 3, 5),
			drug:          drugWith(1, allergy(2, "Two"), allergy(3, "Three"), allergy(4, "Four")),
			expectedNames: []string{"Three"},
		},
		{
			name:          "single conflict",
			patient:       patientWith(7),
			drug:          drugWith(1, allergy(7, "Penicillin"), allergy(9, "Sulfa")),
			expectedNames: []string{"Penicillin"},
		},
		{
			name:          "drug list order wins",
			patient:       patientWith(7, 9),
			drug:          drugWith(1, allergy(9, "Sulfa"), allergy(7, "Penicillin")),
			expectedNames: []string{"Sulfa", "Penicillin"},
		},
		{
			name:          "duplicate drug conflicts are deduplicated",
			patient:       patientWith(7),
			drug:          drugWith(1, allergy(7, "Penicillin"), allergy(7, "Penicillin")),
			expectedNames: []string{"Penicillin"},
		},
		{
			name:          "duplicate patient records count once",
			patient:       patientWith(7, 7),
			drug:          drugWith(1, allergy(7, "Penicillin")),
			expectedNames: []string{"Penicillin"},
		},
		{
			name: "unresolved allergy references are skipped",
			patient: &entities.Patient{ID: 1, AllergyRecords: []entities.AllergyRecord{
				{Allergy: nil, Reaction: "rash"},
				{Allergy: &entities.Allergy{}},
			}},
			drug:          drugWith(1, allergy(7, "Penicillin")),
			expectedNames: []string{},
		},
		{
			name:          "zero id conflicts are ignored",
			patient:       patientWith(7),
			drug:          drugWith(1, entities.Allergy{Name: "ghost"}, allergy(7, "Penicillin")),
			expectedNames: []string{"Penicillin"},
		},
		{
			name: "empty drug-side name falls back to patient record",
			patient: &entities.Patient{ID: 1, AllergyRecords: []entities.AllergyRecord{
				{Allergy: &entities.Allergy{ID: 7, Name: "Penicillin"}},
			}},
			drug:          drugWith(1, allergy(7, "")),
			expectedNames: []string{"Penicillin"},
		},
		{
			name: "unnamed on both sides is skipped",
			patient: &entities.Patient{ID: 1, AllergyRecords: []entities.AllergyRecord{
				{Allergy: &entities.Allergy{ID: 7, Name: " "}},
			}},
			drug:          drugWith(1, allergy(7, "")),
			expectedNames: []string{},
		},
		{
			name: "later named duplicate replaces an unnamed entry",
			patient: &entities.Patient{ID: 1, AllergyRecords: []entities.AllergyRecord{
				{Allergy: &entities.Allergy{ID: 7}},
			}},
			drug:          drugWith(1, allergy(7, ""), allergy(7, "Penicillin")),
			expectedNames: []string{"Penicillin"},
		},
		{
			name:          "matched by id not by name",
			patient:       patientWith(7),
			drug:          drugWith(1, allergy(8, "patient-side")),
			expectedNames: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EvaluateSingle(tt.patient, tt.drug)

			if result.Names == nil {
				t.Fatal("Names should never be nil")
			}
			if !slices.Equal(result.Names, tt.expectedNames) {
				t.Errorf("Expected names %v, got %v", tt.expectedNames, result.Names)
			}
			if result.HasConflict != (len(tt.expectedNames) > 0) {
				t.Errorf("HasConflict = %v, expected %v", result.HasConflict, len(tt.expectedNames) > 0)
			}
		})
	}
}

func TestEvaluateSingleUsesDrugSideNameAndPatientDetails(t *testing.T) {
	patient := &entities.Patient{ID: 4, AllergyRecords: []entities.AllergyRecord{
		{
			Allergy:  &entities.Allergy{ID: 7, Name: "penicilin (old spelling)"},
			Reaction: "hives",
			Severity: entities.SeveritySevere,
		},
	}}
	drug := drugWith(12, allergy(7, "Penicillin"))

	result := EvaluateSingle(patient, drug)

	if result.DrugID != 12 {
		t.Errorf("Expected drug id 12, got %d", result.DrugID)
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("Expected 1 conflict, got %d", len(result.Conflicts))
	}
	c := result.Conflicts[0]
	if c.Allergy.Name != "Penicillin" {
		t.Errorf("Expected drug-side name, got %q", c.Allergy.Name)
	}
	if c.Reaction != "hives" || c.Severity != entities.SeveritySevere {
		t.Errorf("Patient details not carried: %+v", c)
	}
}

func TestEvaluateSingleEmptyDrugNameWarning(t *testing.T) {
	patient := &entities.Patient{ID: 1, AllergyRecords: []entities.AllergyRecord{
		{Allergy: &entities.Allergy{ID: 7, Name: "Penicillin"}, Reaction: "hives"},
	}}

	result := EvaluateSingle(patient, drugWith(3, allergy(7, "")))

	warning, ok := FormatWarning(result)
	if !ok {
		t.Fatal("Expected a warning")
	}
	expected := "Warning: Patient is allergic to: Penicillin. This drug may cause an allergic reaction."
	if warning != expected {
		t.Errorf("Expected %q, got %q", expected, warning)
	}
	if result.Conflicts[0].Allergy.Name != "Penicillin" {
		t.Errorf("Expected resolved name on conflict, got %q", result.Conflicts[0].Allergy.Name)
	}
}

func TestEvaluateSingleDoesNotMutateInputs(t *testing.T) {
	patient := patientWith(7, 9)
	drug := drugWith(1, allergy(9, "Sulfa"), allergy(7, "Penicillin"))

	EvaluateSingle(patient, drug)

	if len(patient.AllergyRecords) != 2 || patient.AllergyRecords[0].Allergy.ID != 7 {
		t.Error("patient was modified")
	}
	if len(drug.AllergyConflicts) != 2 || drug.AllergyConflicts[0].Name != "Sulfa" {
		t.Error("drug was modified")
	}
}

func TestEvaluateSingleIsIdempotent(t *testing.T) {
	patient := patientWith(7, 9)
	drug := drugWith(1, allergy(9, "Sulfa"), allergy(7, "Penicillin"))

	first := EvaluateSingle(patient, drug)
	for i := 0; i < 100; i++ {
		again := EvaluateSingle(patient, drug)
		if again.HasConflict != first.HasConflict || !slices.Equal(again.Names, first.Names) {
			t.Fatalf("iteration %d drifted: %+v vs %+v", i, again, first)
		}
	}
}

func TestEvaluateSingleConcurrent(t *testing.T) {
	patient := patientWith(7)
	drug := drugWith(1, allergy(7, "Penicillin"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := EvaluateSingle(patient, drug)
			if !result.HasConflict {
				t.Error("expected conflict")
			}
		}()
	}
	wg.Wait()
}

func TestEvaluateMany(t *testing.T) {
	patient := patientWith(7)
	drugs := []*entities.Drug{
		drugWith(1, allergy(3, "Latex")),
		drugWith(2, allergy(9, "Sulfa"), allergy(7, "Penicillin")),
		drugWith(3),
	}

	results := EvaluateMany(patient, drugs)

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	expected := []bool{false, true, false}
	for i, r := range results {
		if r.HasConflict != expected[i] {
			t.Errorf("result %d: HasConflict = %v, expected %v", i, r.HasConflict, expected[i])
		}
		if r.DrugID != drugs[i].ID {
			t.Errorf("result %d: order not preserved, got drug %d", i, r.DrugID)
		}
	}
	if !slices.Equal(results[1].Names, []string{"Penicillin"}) {
		t.Errorf("unexpected names %v", results[1].Names)
	}
}

func TestEvaluateManyEdgeCases(t *testing.T) {
	if got := EvaluateMany(patientWith(7), nil); got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", got)
	}

	results := EvaluateMany(nil, []*entities.Drug{nil, drugWith(1, allergy(7, "Penicillin"))})
	for i, r := range results {
		if r.HasConflict {
			t.Errorf("result %d should not conflict without a patient", i)
		}
	}
}

func TestFormatWarning(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		expected string
		ok       bool
	}{
		{
			name:   "no conflict",
			result: noConflict(1),
			ok:     false,
		},
		{
			name:     "single allergy",
			result:   EvaluateSingle(patientWith(7), drugWith(1, allergy(7, "Penicillin"), allergy(9, "Sulfa"))),
			expected: "Warning: Patient is allergic to: Penicillin. This drug may cause an allergic reaction.",
			ok:       true,
		},
		{
			name:     "several allergies keep drug order",
			result:   EvaluateSingle(patientWith(7, 9), drugWith(1, allergy(9, "Sulfa"), allergy(7, "Penicillin"))),
			expected: "Warning: Patient is allergic to: Sulfa, Penicillin. This drug may cause an allergic reaction.",
			ok:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warning, ok := FormatWarning(tt.result)
			if ok != tt.ok {
				t.Fatalf("ok = %v, expected %v", ok, tt.ok)
			}
			if warning != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, warning)
			}
		})
	}
}
