// Package cache keeps short-lived patient snapshots so that the repeated
// evaluations of one prescription dialog do not re-fetch the same patient.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/giygas/allergycheck-api/clinicalsync/entities"
	"github.com/giygas/allergycheck-api/interfaces"
)

var _ interfaces.PatientCache = (*MemoryCache)(nil)

type memoryEntry struct {
	patient   entities.Patient
	expiresAt time.Time
}

// MemoryCache is an in-process PatientCache with per-entry expiry
type MemoryCache struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	entries map[int]memoryEntry
}

// NewMemoryCache creates a cache whose entries live for ttl
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int]memoryEntry),
	}
}

// Get returns a copy of the cached patient, if present and fresh
func (c *MemoryCache) Get(_ context.Context, id int) (*entities.Patient, bool) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()

	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, false
	}

	patient := clonePatient(&entry.patient)
	return &patient, true
}

// Set stores a snapshot of patient
func (c *MemoryCache) Set(_ context.Context, patient *entities.Patient) {
	if patient == nil || c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	c.entries[patient.ID] = memoryEntry{patient: clonePatient(patient), expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate drops the cached snapshot of id
func (c *MemoryCache) Invalidate(_ context.Context, id int) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// Purge removes expired entries and returns how many were dropped
func (c *MemoryCache) Purge() int {
	now := c.now()
	removed := 0

	c.mu.Lock()
	for id, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, id)
			removed++
		}
	}
	c.mu.Unlock()

	return removed
}

// Len returns the number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// clonePatient copies the record slice and allergy pointers so callers cannot
// alter the cached snapshot.
func clonePatient(p *entities.Patient) entities.Patient {
	out := *p
	if p.AllergyRecords == nil {
		return out
	}
	out.AllergyRecords = make([]entities.AllergyRecord, len(p.AllergyRecords))
	for i, record := range p.AllergyRecords {
		if record.Allergy != nil {
			a := *record.Allergy
			record.Allergy = &a
		}
		out.AllergyRecords[i] = record
	}
	return out
}
