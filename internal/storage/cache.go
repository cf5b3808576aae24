// cache.go - In-memory report archive with TTL, used when MongoDB is not configured

package storage

import (
	"context"
	"sync"
	"time"
)

type cachedReport struct {
	report   StoredReport
	loadedAt time.Time
}

// MemoryReportStore implements ReportStore on a map. Entries expire after ttl.
type MemoryReportStore struct {
	reports map[string]cachedReport
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
}

// NewMemoryReportStore creates the store. A non-positive ttl keeps reports forever.
func NewMemoryReportStore(ttl time.Duration) *MemoryReportStore {
	return &MemoryReportStore{
		reports: make(map[string]cachedReport),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Save stores a copy of r.
func (s *MemoryReportStore) Save(ctx context.Context, r StoredReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Report != nil {
		rep := *r.Report
		rep.Alternatives = append(rep.Alternatives[:0:0], rep.Alternatives...)
		r.Report = &rep
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.ReportID] = cachedReport{report: r, loadedAt: s.now()}
	return nil
}

// Get returns the report or ErrNotFound when missing or expired.
func (s *MemoryReportStore) Get(ctx context.Context, id string) (*StoredReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entry, exists := s.reports[id]
	s.mu.RUnlock()

	if !exists || s.expired(entry) {
		return nil, ErrNotFound
	}
	r := entry.report
	return &r, nil
}

// Sweep drops expired entries and returns how many were removed.
func (s *MemoryReportStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.reports {
		if s.expired(entry) {
			delete(s.reports, id)
			removed++
		}
	}
	return removed
}

func (s *MemoryReportStore) expired(entry cachedReport) bool {
	return s.ttl > 0 && s.now().Sub(entry.loadedAt) >= s.ttl
}
