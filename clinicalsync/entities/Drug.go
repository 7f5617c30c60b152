package entities

// Drug is a catalogue entry together with the allergies it is known to conflict with.
type Drug struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	GenericName      string    `json:"generic_name,omitempty"`
	Strength         string    `json:"strength,omitempty"`
	Form             string    `json:"form,omitempty"`
	Category         string    `json:"category,omitempty"`
	Manufacturer     string    `json:"manufacturer,omitempty"`
	Availability     string    `json:"availability,omitempty"`
	AllergyConflicts []Allergy `json:"allergy_conflicts"`
	SearchNormalized string    `json:"-"` // Pre-computed: name + generic name + category, lowercased without accents
}
