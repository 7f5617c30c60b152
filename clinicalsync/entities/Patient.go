package entities

import (
	"bytes"
	"encoding/json"
)

// Severity grades a documented patient allergy.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityUnknown  Severity = ""
)

// ParseSeverity maps free backend input onto a known severity.
// Anything unrecognised becomes SeverityUnknown.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityMild, SeverityModerate, SeveritySevere:
		return Severity(s)
	}
	return SeverityUnknown
}

// UnmarshalJSON never fails: non-string or unknown values decode to SeverityUnknown.
func (s *Severity) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		*s = SeverityUnknown
		return nil
	}
	*s = ParseSeverity(raw)
	return nil
}

// AllergyRecord is one documented allergy on a patient chart.
// Allergy is nil when the backend could not resolve the reference.
type AllergyRecord struct {
	ID        int      `json:"id,omitempty"`
	Allergy   *Allergy `json:"allergy"`
	Reaction  string   `json:"reaction,omitempty"`
	DateNoted string   `json:"date_noted,omitempty"`
	Severity  Severity `json:"severity,omitempty"`
}

// UnmarshalJSON accepts the allergy reference either as an object or as a bare id.
// A reference that cannot be read leaves Allergy nil.
func (r *AllergyRecord) UnmarshalJSON(b []byte) error {
	type plain AllergyRecord
	var raw struct {
		*plain
		Allergy json.RawMessage `json:"allergy"`
	}
	raw.plain = (*plain)(r)
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.Allergy = decodeAllergyRef(raw.Allergy)
	return nil
}

func decodeAllergyRef(raw json.RawMessage) *Allergy {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '{' {
		var a Allergy
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil
		}
		return &a
	}
	if id := parseID(raw); id != 0 {
		return &Allergy{ID: id}
	}
	return nil
}

// Patient is a read-only snapshot of a patient as served by the clinical backend.
type Patient struct {
	ID             int             `json:"id"`
	FirstName      string          `json:"first_name,omitempty"`
	LastName       string          `json:"last_name,omitempty"`
	AllergyRecords []AllergyRecord `json:"detailed_allergies"`
}

// FullName returns "first last", trimmed when either part is missing.
func (p *Patient) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
