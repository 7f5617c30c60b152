package validation

import (
	"slices"
	"strings"
	"testing"

	"github.com/giygas/allergycheck-api/clinicalsync/entities"
)

func TestReportDataQuality(t *testing.T) {
	v := NewDataValidator()

	allergies := []entities.Allergy{
		{ID: 7, Name: "Penicillin"},
		{ID: 9, Name: "Sulfa"},
		{ID: 9, Name: "Sulfonamides"},
		{ID: 11, Name: " "},
	}
	drugs := []entities.Drug{
		{ID: 1, Name: "Amoxicillin", AllergyConflicts: []entities.Allergy{{ID: 7, Name: "Penicillin"}}},
		{ID: 2, Name: "Bactrim", AllergyConflicts: []entities.Allergy{{ID: 9, Name: "Sulfa"}, {ID: 99, Name: "Ghost"}}},
		{ID: 2, Name: ""},
		{ID: 3, Name: "Paracetamol"},
	}

	report := v.ReportDataQuality(allergies, drugs)

	if !slices.Equal(report.DuplicateAllergyIDs, []int{9}) {
		t.Errorf("DuplicateAllergyIDs = %v", report.DuplicateAllergyIDs)
	}
	if !slices.Equal(report.DuplicateDrugIDs, []int{2}) {
		t.Errorf("DuplicateDrugIDs = %v", report.DuplicateDrugIDs)
	}
	if report.AllergiesWithoutName != 1 {
		t.Errorf("AllergiesWithoutName = %d", report.AllergiesWithoutName)
	}
	if report.DrugsWithoutName != 1 {
		t.Errorf("DrugsWithoutName = %d", report.DrugsWithoutName)
	}
	if report.DrugsWithConflicts != 2 {
		t.Errorf("DrugsWithConflicts = %d", report.DrugsWithConflicts)
	}
	if report.UnknownConflictRefs != 1 || !slices.Equal(report.UnknownConflictDrugIDs, []int{2}) {
		t.Errorf("unknown refs = %d on %v", report.UnknownConflictRefs, report.UnknownConflictDrugIDs)
	}
	// The later duplicate (Sulfonamides) wins in the catalogue, so "Sulfa" on drug 2 diverges
	if report.ConflictNameMismatches != 1 || !slices.Equal(report.ConflictNameMismatchDrug, []int{2}) {
		t.Errorf("mismatches = %d on %v", report.ConflictNameMismatches, report.ConflictNameMismatchDrug)
	}
}

func TestReportDataQualityEmpty(t *testing.T) {
	report := NewDataValidator().ReportDataQuality(nil, nil)
	if report == nil || report.DuplicateDrugIDs == nil {
		t.Fatal("empty catalogue should yield an empty, non-nil report")
	}
}

func TestValidateInput(t *testing.T) {
	v := NewDataValidator()

	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"simple", "amoxicillin", ""},
		{"accented", "pénicilline", ""},
		{"with strength", "ibuprofen 400mg", ""},
		{"punctuation", "co-trimoxazole (DS) 5%", ""},
		{"empty", "   ", "cannot be empty"},
		{"too short", "a", "too short"},
		{"too long", strings.Repeat("ab", 41), "too long"},
		{"too many words", "a1 b2 c3 d4 e5 f6 g7", "too complex"},
		{"script", "<script>alert(1)</script>", "dangerous"},
		{"sql", "x' or 1=1", "dangerous"},
		{"invalid chars", "drug;rm", "invalid characters"},
		{"repetition", "aaaaaaaaaaaaaa", "repetition"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateInput(tt.input)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateID(t *testing.T) {
	v := NewDataValidator()

	tests := []struct {
		input    string
		expected int
		wantErr  bool
	}{
		{"1", 1, false},
		{"42", 42, false},
		{"", -1, true},
		{"0", -1, true},
		{"-3", -1, true},
		{"+3", -1, true},
		{"abc", -1, true},
		{" 4", -1, true},
		{"12345678901", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			id, err := v.ValidateID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if id != tt.expected {
				t.Errorf("ValidateID(%q) = %d, want %d", tt.input, id, tt.expected)
			}
		})
	}
}

type sampleRequest struct {
	Patient     int                           `validate:"required,gt=0"`
	Medications []entities.MedicationLineItem `validate:"required,min=1,dive"`
}

func TestValidateStruct(t *testing.T) {
	v := NewDataValidator()

	valid := sampleRequest{Patient: 1, Medications: []entities.MedicationLineItem{{DrugID: 3, Quantity: 2}}}
	if err := v.ValidateStruct(valid); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	tests := []struct {
		name    string
		req     sampleRequest
		wantErr string
	}{
		{"missing patient", sampleRequest{Medications: valid.Medications}, "Patient"},
		{"no medications", sampleRequest{Patient: 1, Medications: []entities.MedicationLineItem{}}, "Medications"},
		{"bad drug id", sampleRequest{Patient: 1, Medications: []entities.MedicationLineItem{{DrugID: 0}}}, "DrugID"},
		{"negative refills", sampleRequest{Patient: 1, Medications: []entities.MedicationLineItem{{DrugID: 1, Refills: -1}}}, "Refills"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.req)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
