// Package data provides thread-safe storage for the synced allergy and drug
// catalogue. Updates swap whole snapshots atomically so readers never see a
// half-written catalogue.
package data

import (
	"sync/atomic"
	"time"

	"github.com/giygas/allergycheck-api/clinicalsync/entities"
	"github.com/giygas/allergycheck-api/interfaces"
	"github.com/giygas/allergycheck-api/logging"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// DataContainer holds all the data with atomic pointers for zero-downtime updates
type DataContainer struct {
	allergies       atomic.Value // []entities.Allergy
	drugs           atomic.Value // []entities.Drug
	allergiesMap    atomic.Value // map[int]entities.Allergy
	drugsMap        atomic.Value // map[int]entities.Drug
	conflictIndex   atomic.Value // map[int][]int, allergy id -> conflicting drug ids
	report          atomic.Pointer[interfaces.DataQualityReport]
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a new DataContainer with empty data
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.allergies.Store(make([]entities.Allergy, 0))
	dc.drugs.Store(make([]entities.Drug, 0))
	dc.allergiesMap.Store(make(map[int]entities.Allergy))
	dc.drugsMap.Store(make(map[int]entities.Drug))
	dc.conflictIndex.Store(make(map[int][]int))
	dc.report.Store(&interfaces.DataQualityReport{})
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

// Thread-safe getters with type check

// GetAllergies returns the allergy reference list
func (dc *DataContainer) GetAllergies() []entities.Allergy {
	if v, ok := dc.allergies.Load().([]entities.Allergy); ok {
		return v
	}

	logging.Warn("Allergy list is empty or invalid")
	return []entities.Allergy{}
}

// GetDrugs returns the drug catalogue
func (dc *DataContainer) GetDrugs() []entities.Drug {
	if v, ok := dc.drugs.Load().([]entities.Drug); ok {
		return v
	}

	logging.Warn("Drug list is empty or invalid")
	return []entities.Drug{}
}

// GetAllergiesMap returns allergies by id for O(1) lookups
func (dc *DataContainer) GetAllergiesMap() map[int]entities.Allergy {
	if v, ok := dc.allergiesMap.Load().(map[int]entities.Allergy); ok {
		return v
	}

	logging.Warn("Allergies map is empty or invalid")
	return make(map[int]entities.Allergy)
}

// GetDrugsMap returns drugs by id for O(1) lookups
func (dc *DataContainer) GetDrugsMap() map[int]entities.Drug {
	if v, ok := dc.drugsMap.Load().(map[int]entities.Drug); ok {
		return v
	}

	logging.Warn("Drugs map is empty or invalid")
	return make(map[int]entities.Drug)
}

// GetConflictIndex returns, per allergy id, the ids of drugs that conflict with it
func (dc *DataContainer) GetConflictIndex() map[int][]int {
	if v, ok := dc.conflictIndex.Load().(map[int][]int); ok {
		return v
	}

	logging.Warn("Conflict index is empty or invalid")
	return make(map[int][]int)
}

// GetDataQualityReport returns the report computed during the last update
func (dc *DataContainer) GetDataQualityReport() *interfaces.DataQualityReport {
	if r := dc.report.Load(); r != nil {
		return r
	}
	return &interfaces.DataQualityReport{}
}

// FindDrug resolves a drug by id. It matches conflicts.DrugLookup.
func (dc *DataContainer) FindDrug(id int) (*entities.Drug, bool) {
	drug, ok := dc.GetDrugsMap()[id]
	if !ok {
		return nil, false
	}
	return &drug, true
}

// GetLastUpdated returns the timestamp of the last catalogue update
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v, ok := dc.lastUpdated.Load().(time.Time); ok {
		return v
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if a catalogue update is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v, ok := dc.serverStartTime.Load().(time.Time); ok {
		return v
	}
	return time.Time{}
}

// UpdateData atomically replaces the catalogue
func (dc *DataContainer) UpdateData(allergies []entities.Allergy, drugs []entities.Drug,
	allergiesMap map[int]entities.Allergy, drugsMap map[int]entities.Drug,
	conflictIndex map[int][]int, report *interfaces.DataQualityReport) {

	if report == nil {
		report = &interfaces.DataQualityReport{}
	}

	dc.allergies.Store(allergies)
	dc.drugs.Store(drugs)
	dc.allergiesMap.Store(allergiesMap)
	dc.drugsMap.Store(drugsMap)
	dc.conflictIndex.Store(conflictIndex)
	dc.report.Store(report)
	dc.lastUpdated.Store(time.Now())
}

// BeginUpdate marks the start of a catalogue update.
// Returns true if the update can proceed, false if another one is running.
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a catalogue update
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
