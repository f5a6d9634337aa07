package mesh

import (
	"sort"
	"sync"
)

// ScanResult is the retained output of one pipeline run, kept in memory for
// HTTP endpoints and combined MQTT publishes.
type ScanResult struct {
	ScanID         string
	Mesh           *TriangleMesh
	Classification *Classification
	Report         *ScanReport
}

// StateTracker tracks the latest analysis result per scan for the HTTP and
// MQTT surfaces. Safe for concurrent use.
type StateTracker struct {
	mu      sync.RWMutex
	results map[string]*ScanResult
}

// NewStateTracker creates a new state tracker.
func NewStateTracker() *StateTracker {
	return &StateTracker{
		results: make(map[string]*ScanResult),
	}
}

// UpdateResult stores the latest analysis result for a scan, replacing any
// previous run.
func (st *StateTracker) UpdateResult(result *ScanResult) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.results[result.ScanID] = result
}

// GetResult returns the latest result for a scan id.
func (st *StateTracker) GetResult(scanID string) (*ScanResult, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	r, ok := st.results[scanID]
	return r, ok
}

// GetReports returns the latest report per scan, keyed by scan id.
func (st *StateTracker) GetReports() map[string]*ScanReport {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make(map[string]*ScanReport, len(st.results))
	for id, r := range st.results {
		out[id] = r.Report
	}
	return out
}

// ScanIDs returns the ids of all tracked scans, sorted.
func (st *StateTracker) ScanIDs() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	ids := make([]string, 0, len(st.results))
	for id := range st.results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasResults returns true if at least one scan has been analyzed.
func (st *StateTracker) HasResults() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.results) > 0
}

// RemoveResult drops a scan's result (e.g. when its source goes away).
func (st *StateTracker) RemoveResult(scanID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.results, scanID)
}
