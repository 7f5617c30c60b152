// Package health provides health checking functionality for the allergy conflict API.
package health

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/giygas/allergycheck-api/interfaces"
)

type pinger interface {
	Health(ctx context.Context) error
}

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore    interfaces.DataStore
	syncInterval time.Duration
	cache        interfaces.PatientCache
	now          func() time.Time
}

// NewHealthChecker creates a health checker judging catalogue freshness against syncInterval.
// cache may be nil; when it can be pinged its state is reported but never fails the check.
func NewHealthChecker(dataStore interfaces.DataStore, syncInterval time.Duration, cache interfaces.PatientCache) *HealthCheckerImpl {
	return &HealthCheckerImpl{
		dataStore:    dataStore,
		syncInterval: syncInterval,
		cache:        cache,
		now:          time.Now,
	}
}

// HealthCheck returns HTTP-specific health data
// Used by /health HTTP endpoint
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	allergies := h.dataStore.GetAllergies()
	drugs := h.dataStore.GetDrugs()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()

	dataAge := h.now().Sub(lastUpdate)

	switch {
	case lastUpdate.IsZero() || len(drugs) == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 4*h.syncInterval:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 2*h.syncInterval:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"allergies":   len(allergies),
		"drugs":       len(drugs),
		"is_updating": isUpdating,
		"next_update": h.CalculateNextUpdate().Format(time.RFC3339),
	}
	if !lastUpdate.IsZero() {
		data["last_update"] = lastUpdate.Format(time.RFC3339)
		data["data_age_minutes"] = math.Round(dataAge.Minutes()*10) / 10
	}

	if report := h.dataStore.GetDataQualityReport(); report != nil {
		data["drugs_with_conflicts"] = report.DrugsWithConflicts
		data["unknown_conflict_refs"] = report.UnknownConflictRefs
	}

	if p, ok := h.cache.(pinger); ok {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := p.Health(ctx); err != nil {
			data["patient_cache"] = "unavailable"
		} else {
			data["patient_cache"] = "ok"
		}
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled catalogue refresh
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	now := h.now()

	last := h.dataStore.GetLastUpdated()
	if last.IsZero() || h.syncInterval <= 0 {
		return now.Add(h.syncInterval)
	}

	next := last.Add(h.syncInterval)
	if next.After(now) {
		return next
	}

	missed := now.Sub(last) / h.syncInterval
	return last.Add((missed + 1) * h.syncInterval)
}
