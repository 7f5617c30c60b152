// Package interfaces defines core abstractions for the allergy conflict API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/allergycheck-api/clinicalsync/entities"
)

// DataQualityReport provides a summary of catalogue quality issues
type DataQualityReport struct {
	DuplicateAllergyIDs      []int
	DuplicateDrugIDs         []int
	AllergiesWithoutName     int
	DrugsWithoutName         int
	DrugsWithConflicts       int
	UnknownConflictRefs      int   // Conflict entries pointing at allergies missing from the catalogue
	UnknownConflictDrugIDs   []int // Drugs carrying at least one such entry
	ConflictNameMismatches   int   // Conflict entries whose name differs from the catalogue name
	ConflictNameMismatchDrug []int
}

// DataStore defines the contract for the synced allergy and drug catalogue.
// It provides thread-safe access with atomic swaps for zero-downtime updates.
type DataStore interface {
	// Data retrieval methods
	GetAllergies() []entities.Allergy
	GetAllergiesMap() map[int]entities.Allergy
	GetDrugs() []entities.Drug
	GetDrugsMap() map[int]entities.Drug
	FindDrug(id int) (*entities.Drug, bool)
	GetConflictIndex() map[int][]int
	GetDataQualityReport() *DataQualityReport
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	// Data update methods
	UpdateData(allergies []entities.Allergy, drugs []entities.Drug,
		allergiesMap map[int]entities.Allergy, drugsMap map[int]entities.Drug,
		conflictIndex map[int][]int, report *DataQualityReport)
	BeginUpdate() bool
	EndUpdate()
}

// CatalogueFetcher defines the contract for pulling reference data from the clinical backend.
type CatalogueFetcher interface {
	// FetchCatalogue downloads every allergy and every drug with its allergy conflicts
	FetchCatalogue(ctx context.Context) ([]entities.Allergy, []entities.Drug, error)
}

// PatientSource loads a fresh patient snapshot from the clinical backend.
type PatientSource interface {
	FetchPatient(ctx context.Context, id int) (*entities.Patient, error)
}

// PatientCache keeps short-lived patient snapshots keyed by patient id.
// Implementations must treat failures as misses.
type PatientCache interface {
	Get(ctx context.Context, id int) (*entities.Patient, bool)
	Set(ctx context.Context, patient *entities.Patient)
	Invalidate(ctx context.Context, id int)
}

// Scheduler defines the contract for job scheduling and health monitoring.
// It manages automated catalogue refreshes.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// HTTPHandler defines the contract for HTTP request handlers.
type HTTPHandler interface {
	// Conflict evaluation
	EvaluateConflict(w http.ResponseWriter, r *http.Request)
	EvaluateConflicts(w http.ResponseWriter, r *http.Request)
	PatientConflicts(w http.ResponseWriter, r *http.Request)
	CheckPrescription(w http.ResponseWriter, r *http.Request)

	// Catalogue
	ServeDrugs(w http.ResponseWriter, r *http.Request)
	FindDrugByID(w http.ResponseWriter, r *http.Request)
	ServeAllergies(w http.ResponseWriter, r *http.Request)
	FindAllergyByID(w http.ResponseWriter, r *http.Request)

	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns current system health status
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled catalogue refresh
	CalculateNextUpdate() time.Time
}

// DataValidator defines the contract for data validation operations.
type DataValidator interface {
	// ReportDataQuality generates a quality report for a freshly fetched catalogue
	ReportDataQuality(allergies []entities.Allergy, drugs []entities.Drug) *DataQualityReport

	// ValidateInput validates user search strings
	ValidateInput(input string) error

	// ValidateID validates a positive numeric identifier from a path or query
	ValidateID(input string) (int, error)

	// ValidateStruct validates a decoded request body against its validate tags
	ValidateStruct(s any) error
}
