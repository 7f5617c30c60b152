package entities

import (
	"encoding/json"
	"testing"
)

func TestAllergyUnmarshalID(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		expectedID int
	}{
		{"number", `{"id":7,"name":"Penicillin"}`, 7},
		{"numeric string", `{"id":"7","name":"Penicillin"}`, 7},
		{"padded string", `{"id":" 12 ","name":"Latex"}`, 12},
		{"non-numeric string", `{"id":"seven","name":"Penicillin"}`, 0},
		{"fraction", `{"id":7.5,"name":"Penicillin"}`, 0},
		{"null", `{"id":null,"name":"Penicillin"}`, 0},
		{"missing", `{"name":"Penicillin"}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Allergy
			if err := json.Unmarshal([]byte(tt.input), &a); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if a.ID != tt.expectedID {
				t.Errorf("Expected id %d, got %d", tt.expectedID, a.ID)
			}
			if a.Name != "Penicillin" && a.Name != "Latex" {
				t.Errorf("Name not decoded: %q", a.Name)
			}
		})
	}
}

func TestAllergyRecordUnmarshalReference(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		expectNil  bool
		expectedID int
	}{
		{"object", `{"allergy":{"id":7,"name":"Penicillin"}}`, false, 7},
		{"object with string id", `{"allergy":{"id":"7"}}`, false, 7},
		{"bare number", `{"allergy":7}`, false, 7},
		{"bare string", `{"allergy":"7"}`, false, 7},
		{"null", `{"allergy":null}`, true, 0},
		{"missing", `{"reaction":"rash"}`, true, 0},
		{"zero", `{"allergy":0}`, true, 0},
		{"unreadable", `{"allergy":true}`, true, 0},
		{"list", `{"allergy":[7]}`, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r AllergyRecord
			if err := json.Unmarshal([]byte(tt.input), &r); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.expectNil {
				if r.Allergy != nil {
					t.Errorf("Expected nil allergy, got %+v", r.Allergy)
				}
				return
			}
			if r.Allergy == nil || r.Allergy.ID != tt.expectedID {
				t.Errorf("Expected allergy id %d, got %+v", tt.expectedID, r.Allergy)
			}
		})
	}
}

func TestAllergyRecordUnmarshalKeepsOtherFields(t *testing.T) {
	var r AllergyRecord
	input := `{"id":3,"allergy":9,"reaction":"hives","date_noted":"2024-02-01","severity":"severe"}`
	if err := json.Unmarshal([]byte(input), &r); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if r.ID != 3 || r.Reaction != "hives" || r.DateNoted != "2024-02-01" || r.Severity != SeveritySevere {
		t.Errorf("Fields not decoded: %+v", r)
	}
	if r.Allergy == nil || r.Allergy.ID != 9 {
		t.Errorf("Expected allergy 9, got %+v", r.Allergy)
	}
}

func TestPatientUnmarshalStillRejectsBadPatientID(t *testing.T) {
	var p Patient
	if err := json.Unmarshal([]byte(`{"id":"one"}`), &p); err == nil {
		t.Error("Expected an error for a non-numeric patient id")
	}
}
