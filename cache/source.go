package cache

import (
	"context"

	"github.com/giygas/allergycheck-api/clinicalsync/entities"
	"github.com/giygas/allergycheck-api/interfaces"
	"github.com/giygas/allergycheck-api/metrics"
)

var _ interfaces.PatientSource = (*CachedSource)(nil)

// CachedSource serves patients from the cache and falls back to the backend
type CachedSource struct {
	source interfaces.PatientSource
	cache  interfaces.PatientCache
}

// NewCachedSource puts cache in front of source. A nil cache disables caching.
func NewCachedSource(source interfaces.PatientSource, cache interfaces.PatientCache) *CachedSource {
	return &CachedSource{source: source, cache: cache}
}

// FetchPatient returns the cached snapshot of id or loads and caches a fresh one
func (s *CachedSource) FetchPatient(ctx context.Context, id int) (*entities.Patient, error) {
	if s.cache != nil {
		if patient, ok := s.cache.Get(ctx, id); ok {
			metrics.PatientCacheLookups.WithLabelValues("hit").Inc()
			return patient, nil
		}
		metrics.PatientCacheLookups.WithLabelValues("miss").Inc()
	}

	patient, err := s.source.FetchPatient(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, patient)
	}
	return patient, nil
}
