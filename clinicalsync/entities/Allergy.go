package entities

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Allergy is the immutable reference entity for a named patient sensitivity.
type Allergy struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UnmarshalJSON accepts the id as a number or a numeric string.
// Any other id decodes to 0, which the evaluator treats as unresolved.
func (a *Allergy) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID          json.RawMessage `json:"id"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*a = Allergy{ID: parseID(raw.ID), Name: raw.Name, Description: raw.Description}
	return nil
}

// parseID reads an integer id from a JSON number or string. Unusable input yields 0.
func parseID(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
	} else {
		s = string(raw)
	}
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return id
}
