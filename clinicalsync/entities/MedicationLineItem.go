package entities

// MedicationLineItem is one drug entry of a prescription being composed.
// Only DrugID matters for allergy evaluation.
type MedicationLineItem struct {
	DrugID    int    `json:"drug" validate:"required,gt=0"`
	Dosage    string `json:"dosage,omitempty" validate:"max=100"`
	Frequency string `json:"frequency,omitempty" validate:"max=100"`
	Duration  string `json:"duration,omitempty" validate:"max=100"`
	Quantity  int    `json:"quantity,omitempty" validate:"gte=0"`
	Refills   int    `json:"refills,omitempty" validate:"gte=0"`
}
