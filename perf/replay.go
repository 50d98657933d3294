package perf

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ReplayRecord is one captured hook or component execution, kept for
// later timeline navigation and state diffing. Grounded on
// original_source/llmspell-kernel/src/sessions/replay/session_debug.rs's
// CapturedState / SessionState.
type ReplayRecord struct {
	ExecutionID     string
	HookID          string
	Timestamp       time.Time
	ContextSnapshot map[string]any
	Result          string
	Metadata        map[string]string
	Duration        time.Duration
}

// Persister durably records a ReplayRecord as it's captured, so a
// session's replay timeline survives past process restart instead of
// living only in the in-memory map below. Satisfied by
// *storage/mongostore.EventLog.
type Persister interface {
	Append(ctx context.Context, scope, key string, payload map[string]any) error
}

// ReplayStore is a session-scoped store of ReplayRecords supporting
// timeline navigation and JSON-path-aware diffing between two captured
// points in time. The in-memory map always serves Timeline/InspectAt/
// NavigateTo; an attached Persister is an optional durable side log.
type ReplayStore struct {
	mu        sync.RWMutex
	records   map[string][]ReplayRecord // sessionID -> ordered records
	persister Persister
}

// NewReplayStore builds an empty ReplayStore.
func NewReplayStore() *ReplayStore {
	return &ReplayStore{records: make(map[string][]ReplayRecord)}
}

// WithPersister attaches p as the store's durable side log; every future
// Record call also appends to p, best-effort (a persist failure doesn't
// block or drop the in-memory record).
func (s *ReplayStore) WithPersister(p Persister) *ReplayStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persister = p
	return s
}

// Record appends a ReplayRecord to sessionID's timeline, and to the
// attached Persister if one is set.
func (s *ReplayStore) Record(sessionID string, rec ReplayRecord) {
	s.mu.Lock()
	s.records[sessionID] = append(s.records[sessionID], rec)
	persister := s.persister
	s.mu.Unlock()

	if persister == nil {
		return
	}
	_ = persister.Append(context.Background(), "replay", sessionID, map[string]any{
		"execution_id":     rec.ExecutionID,
		"hook_id":          rec.HookID,
		"timestamp":        rec.Timestamp,
		"context_snapshot": rec.ContextSnapshot,
		"result":           rec.Result,
		"metadata":         rec.Metadata,
		"duration":         rec.Duration,
	})
}

// Timeline returns sessionID's captured records in recorded order.
func (s *ReplayStore) Timeline(sessionID string) []ReplayRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.records[sessionID]
	out := make([]ReplayRecord, len(recs))
	copy(out, recs)
	return out
}

// InspectAt returns the latest record at or before timestamp.
func (s *ReplayStore) InspectAt(sessionID string, timestamp time.Time) (ReplayRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.records[sessionID]
	var best ReplayRecord
	found := false
	for _, r := range recs {
		if !r.Timestamp.After(timestamp) && (!found || r.Timestamp.After(best.Timestamp)) {
			best = r
			found = true
		}
	}
	return best, found
}

// NavigateTo returns the record at entryIndex in sessionID's timeline.
func (s *ReplayStore) NavigateTo(sessionID string, entryIndex int) (ReplayRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.records[sessionID]
	if entryIndex < 0 || entryIndex >= len(recs) {
		return ReplayRecord{}, fmt.Errorf("perf: timeline index %d out of range (%d entries)", entryIndex, len(recs))
	}
	return recs[entryIndex], nil
}

// Clear discards all captured records for sessionID.
func (s *ReplayStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
}

// Difference is one field-level divergence found between two records.
type Difference struct {
	Path        string
	Original    any
	Replayed    any
	Description string
}

// Comparison is the full diff between two captured records.
type Comparison struct {
	Timestamp1   time.Time
	Timestamp2   time.Time
	ContextDiffs []Difference
	ResultDiff   *Difference
	MetadataDiffs []MetadataDiff
	Summary      string
}

// MetadataDiff is a changed metadata key between two records.
type MetadataDiff struct {
	Key      string
	Original *string
	Replayed *string
}

// Compare produces a JSON-path-aware diff between two ReplayRecords'
// context snapshots, results, and metadata.
func Compare(a, b ReplayRecord) Comparison {
	contextDiffs := compareJSON(a.ContextSnapshot, b.ContextSnapshot, "")

	var resultDiff *Difference
	if a.Result != b.Result {
		resultDiff = &Difference{
			Path:        "result",
			Original:    a.Result,
			Replayed:    b.Result,
			Description: "hook result changed",
		}
	}

	metaDiffs := compareMetadata(a.Metadata, b.Metadata)

	return Comparison{
		Timestamp1:    a.Timestamp,
		Timestamp2:    b.Timestamp,
		ContextDiffs:  contextDiffs,
		ResultDiff:    resultDiff,
		MetadataDiffs: metaDiffs,
		Summary: fmt.Sprintf("found %d context differences, %d result differences, %d metadata differences",
			len(contextDiffs), boolToInt(resultDiff != nil), len(metaDiffs)),
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func compareMetadata(a, b map[string]string) []MetadataDiff {
	keys := make(map[string]struct{})
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	sortedKeys := make([]string, 0, len(keys))
	for k := range keys {
		sortedKeys = append(sortedKeys, k)
	}
	sort.Strings(sortedKeys)

	var diffs []MetadataDiff
	for _, k := range sortedKeys {
		va, oka := a[k]
		vb, okb := b[k]
		if oka && okb && va == vb {
			continue
		}
		d := MetadataDiff{Key: k}
		if oka {
			d.Original = &va
		}
		if okb {
			d.Replayed = &vb
		}
		diffs = append(diffs, d)
	}
	return diffs
}

// compareJSON walks two arbitrary JSON-like values (maps/slices/scalars,
// as decoded by encoding/json) and reports field-level differences using
// dotted JSON-path notation.
func compareJSON(a, b any, path string) []Difference {
	var diffs []Difference
	compareJSONRecursive(toJSONValue(a), toJSONValue(b), path, &diffs)
	return diffs
}

func toJSONValue(v any) any {
	if v == nil {
		return nil
	}
	// round-trip through JSON so map[string]any built from Go structs
	// compares the same way decoded JSON would.
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func compareJSONRecursive(a, b any, path string, diffs *[]Difference) {
	am, aIsMap := a.(map[string]any)
	bm, bIsMap := b.(map[string]any)

	if aIsMap && bIsMap {
		keys := make(map[string]struct{})
		for k := range am {
			keys[k] = struct{}{}
		}
		for k := range bm {
			keys[k] = struct{}{}
		}
		sortedKeys := make([]string, 0, len(keys))
		for k := range keys {
			sortedKeys = append(sortedKeys, k)
		}
		sort.Strings(sortedKeys)

		for _, k := range sortedKeys {
			newPath := k
			if path != "" {
				newPath = path + "." + k
			}
			va, oka := am[k]
			vb, okb := bm[k]
			switch {
			case oka && okb:
				compareJSONRecursive(va, vb, newPath, diffs)
			case oka && !okb:
				*diffs = append(*diffs, Difference{Path: newPath, Original: va, Description: "field removed"})
			case !oka && okb:
				*diffs = append(*diffs, Difference{Path: newPath, Replayed: vb, Description: "field added"})
			}
		}
		return
	}

	if !jsonEqual(a, b) {
		*diffs = append(*diffs, Difference{Path: path, Original: a, Replayed: b, Description: "value changed"})
	}
}

func jsonEqual(a, b any) bool {
	ra, _ := json.Marshal(a)
	rb, _ := json.Marshal(b)
	return string(ra) == string(rb)
}
