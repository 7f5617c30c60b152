// Package validation checks catalogue quality after each sync and validates
// user input reaching the HTTP handlers.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/giygas/allergycheck-api/clinicalsync/entities"
	"github.com/giygas/allergycheck-api/interfaces"
	"github.com/go-playground/validator/v10"
)

// Pre-compiled patterns, compiled once at package initialization
var (
	// Letters of any script, digits, spaces and the punctuation found in drug names
	inputRegex = regexp.MustCompile(`^[\p{L}\p{N}\s\-\.\+'/%,()]+$`)

	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"--", "/*", "*/", "$(", "${", "`",
		"../", "..\\", "%2e%2e", "file://",
		"{$ne:", "{$gt:", "{$where:", "{$regex:",
	}
)

// Compile-time check
var _ interfaces.DataValidator = (*DataValidatorImpl)(nil)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct {
	structs *validator.Validate
}

// NewDataValidator creates a new data validator
func NewDataValidator() *DataValidatorImpl {
	return &DataValidatorImpl{structs: validator.New(validator.WithRequiredStructEnabled())}
}

// ReportDataQuality inspects a freshly fetched catalogue. Problems are
// reported, never fixed: the conflict evaluator copes with all of them.
func (v *DataValidatorImpl) ReportDataQuality(allergies []entities.Allergy, drugs []entities.Drug) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		DuplicateAllergyIDs:      []int{},
		DuplicateDrugIDs:         []int{},
		UnknownConflictDrugIDs:   []int{},
		ConflictNameMismatchDrug: []int{},
	}

	catalogue := make(map[int]string, len(allergies))
	for _, a := range allergies {
		if _, dup := catalogue[a.ID]; dup {
			report.DuplicateAllergyIDs = append(report.DuplicateAllergyIDs, a.ID)
		}
		catalogue[a.ID] = a.Name
		if strings.TrimSpace(a.Name) == "" {
			report.AllergiesWithoutName++
		}
	}

	seenDrugs := make(map[int]struct{}, len(drugs))
	for _, d := range drugs {
		if _, dup := seenDrugs[d.ID]; dup {
			report.DuplicateDrugIDs = append(report.DuplicateDrugIDs, d.ID)
		}
		seenDrugs[d.ID] = struct{}{}

		if strings.TrimSpace(d.Name) == "" {
			report.DrugsWithoutName++
		}
		if len(d.AllergyConflicts) > 0 {
			report.DrugsWithConflicts++
		}

		unknown, mismatch := false, false
		for _, c := range d.AllergyConflicts {
			name, known := catalogue[c.ID]
			switch {
			case !known:
				report.UnknownConflictRefs++
				unknown = true
			case name != c.Name:
				report.ConflictNameMismatches++
				mismatch = true
			}
		}
		if unknown {
			report.UnknownConflictDrugIDs = append(report.UnknownConflictDrugIDs, d.ID)
		}
		if mismatch {
			report.ConflictNameMismatchDrug = append(report.ConflictNameMismatchDrug, d.ID)
		}
	}

	sort.Ints(report.DuplicateAllergyIDs)
	sort.Ints(report.DuplicateDrugIDs)
	return report
}

// ValidateInput validates user search strings
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if len(input) < 2 {
		return fmt.Errorf("input too short: minimum 2 characters")
	}

	if len(input) > 80 {
		return fmt.Errorf("input too long: maximum 80 characters")
	}

	// Word count limit keeps the linear scan over the catalogue cheap
	if len(strings.Fields(input)) > 6 {
		return fmt.Errorf("search query too complex: maximum 6 words allowed")
	}

	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}

	if !inputRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters")
	}

	if hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// ValidateID validates a positive numeric identifier.
// strconv.Atoi already rejects anything non-numeric.
func (v *DataValidatorImpl) ValidateID(input string) (int, error) {
	if input == "" {
		return -1, fmt.Errorf("id cannot be empty")
	}

	if len(input) > 10 {
		return -1, fmt.Errorf("id too long")
	}

	id, err := strconv.Atoi(input)
	if err != nil || strings.ContainsAny(input, "+- ") {
		return -1, fmt.Errorf("id must contain only digits")
	}

	if id <= 0 {
		return -1, fmt.Errorf("id must be positive")
	}

	return id, nil
}

// ValidateStruct validates a decoded request body against its validate tags
func (v *DataValidatorImpl) ValidateStruct(s any) error {
	if err := v.structs.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			parts := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				parts = append(parts, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid request: %s", strings.Join(parts, "; "))
		}
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

// hasExcessiveRepetition reports the same byte repeated more than 10 times in a row
func hasExcessiveRepetition(input string) bool {
	run := 1
	for i := 1; i < len(input); i++ {
		if input[i] == input[i-1] {
			run++
			if run > 10 {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
