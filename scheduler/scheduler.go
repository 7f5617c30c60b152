// Package scheduler keeps the allergy and drug catalogue in sync with the
// clinical backend. It runs an initial load, refreshes on a fixed interval with
// gocron and warns when the served catalogue goes stale.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/giygas/allergycheck-api/clinicalsync/entities"
	"github.com/giygas/allergycheck-api/interfaces"
	"github.com/giygas/allergycheck-api/logging"
	"github.com/giygas/allergycheck-api/metrics"
	"github.com/giygas/allergycheck-api/validation"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

const syncTimeout = 2 * time.Minute

// Scheduler handles catalogue refreshes and staleness monitoring
type Scheduler struct {
	dataStore interfaces.DataStore
	fetcher   interfaces.CatalogueFetcher
	interval  time.Duration
	scheduler *gocron.Scheduler

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewScheduler creates a scheduler refreshing dataStore from fetcher every interval
func NewScheduler(dataStore interfaces.DataStore, fetcher interfaces.CatalogueFetcher, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		dataStore: dataStore,
		fetcher:   fetcher,
		interval:  interval,
		scheduler: gocron.NewScheduler(time.Local),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start performs the initial load, schedules periodic refreshes and starts
// staleness monitoring. A failed initial load is logged and retried on the
// next tick; the conflict endpoints that take inline snapshots keep working.
func (s *Scheduler) Start() error {
	if err := s.updateData(); err != nil {
		logging.Error("Failed to perform initial catalogue load", "error", err)
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().SingletonMode().Do(func() {
		if err := s.updateData(); err != nil {
			logging.Error("Failed to refresh catalogue", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule catalogue refresh", "error", err)
		return fmt.Errorf("failed to schedule catalogue refresh: %w", err)
	}

	s.scheduler.StartAsync()
	logging.Info("Catalogue refresh scheduled", "interval", s.interval.String())

	go s.monitorStaleness()

	return nil
}

// Stop stops the scheduler and aborts an in-flight refresh
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.scheduler.Stop()
	})
}

// updateData fetches the catalogue and swaps it into the data store
func (s *Scheduler) updateData() error {
	if !s.dataStore.BeginUpdate() {
		logging.Info("Catalogue update already in progress, skipping")
		metrics.CatalogueSyncs.WithLabelValues("skipped").Inc()
		return nil
	}
	defer s.dataStore.EndUpdate()

	logging.Info("Starting catalogue update")
	start := time.Now()

	ctx, cancel := context.WithTimeout(s.ctx, syncTimeout)
	defer cancel()

	allergies, drugs, err := s.fetcher.FetchCatalogue(ctx)
	if err != nil {
		metrics.CatalogueSyncs.WithLabelValues("failure").Inc()
		return fmt.Errorf("failed to fetch catalogue: %w", err)
	}

	allergiesMap, drugsMap, conflictIndex := buildIndexes(allergies, drugs)

	report := validation.NewDataValidator().ReportDataQuality(allergies, drugs)
	logQualityReport(report)

	s.dataStore.UpdateData(allergies, drugs, allergiesMap, drugsMap, conflictIndex, report)

	elapsed := time.Since(start)
	metrics.CatalogueSyncs.WithLabelValues("success").Inc()
	metrics.CatalogueSyncDuration.Observe(elapsed.Seconds())
	metrics.CatalogueSize.WithLabelValues("allergies").Set(float64(len(allergies)))
	metrics.CatalogueSize.WithLabelValues("drugs").Set(float64(len(drugs)))

	logging.Info("Catalogue update completed",
		"duration", elapsed.String(),
		"allergy_count", len(allergies),
		"drug_count", len(drugs),
	)

	return nil
}

// buildIndexes builds the id lookups and the allergy id -> conflicting drug ids index.
// Later duplicates overwrite earlier ones in the maps.
func buildIndexes(allergies []entities.Allergy, drugs []entities.Drug) (map[int]entities.Allergy, map[int]entities.Drug, map[int][]int) {
	allergiesMap := make(map[int]entities.Allergy, len(allergies))
	for _, a := range allergies {
		allergiesMap[a.ID] = a
	}

	drugsMap := make(map[int]entities.Drug, len(drugs))
	conflictIndex := make(map[int][]int)
	seen := make(map[[2]int]struct{})

	for _, d := range drugs {
		drugsMap[d.ID] = d
		for _, c := range d.AllergyConflicts {
			if c.ID == 0 {
				continue
			}
			key := [2]int{c.ID, d.ID}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			conflictIndex[c.ID] = append(conflictIndex[c.ID], d.ID)
		}
	}

	for _, ids := range conflictIndex {
		sort.Ints(ids)
	}

	return allergiesMap, drugsMap, conflictIndex
}

func logQualityReport(report *interfaces.DataQualityReport) {
	if len(report.DuplicateAllergyIDs) > 0 {
		logging.Warn("Duplicate allergy IDs detected",
			"total", len(report.DuplicateAllergyIDs),
			"ids", report.DuplicateAllergyIDs,
		)
	}

	if len(report.DuplicateDrugIDs) > 0 {
		logging.Warn("Duplicate drug IDs detected",
			"total", len(report.DuplicateDrugIDs),
			"ids", report.DuplicateDrugIDs,
		)
	}

	if report.AllergiesWithoutName > 0 || report.DrugsWithoutName > 0 {
		logging.Warn("Catalogue entries without name",
			"allergies", report.AllergiesWithoutName,
			"drugs", report.DrugsWithoutName,
		)
	}

	if report.UnknownConflictRefs > 0 {
		logging.Warn("Drug conflicts reference unknown allergies",
			"count", report.UnknownConflictRefs,
			"drug_ids", report.UnknownConflictDrugIDs,
		)
	}

	if report.ConflictNameMismatches > 0 {
		logging.Warn("Drug conflict names differ from the allergy catalogue",
			"count", report.ConflictNameMismatches,
			"drug_ids", report.ConflictNameMismatchDrug,
		)
	}
}

// isStale reports whether the last successful update is older than two
// refresh intervals.
func (s *Scheduler) isStale(now time.Time) bool {
	last := s.dataStore.GetLastUpdated()
	if last.IsZero() {
		return true
	}
	return now.Sub(last) > 2*s.interval
}

func (s *Scheduler) monitorStaleness() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			if s.isStale(now) {
				logging.Warn("Catalogue is stale",
					"last_updated", s.dataStore.GetLastUpdated(),
					"interval", s.interval.String(),
				)
			}
		}
	}
}
