package moa

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"catalystcore/types"
	"catalystcore/xerrors"
)

// Store is the §6 file-backed persistence layer for MOA: append-only JSONL
// logs for rejected/accepted items and outcomes, plain JSON for the last
// recommendations/analysis-state snapshot. Each log has its own mutex so an
// append to rejected_items.jsonl never blocks a read of outcomes.jsonl.
type Store struct {
	rejectedPath         string
	acceptedPath         string
	outcomesPath         string
	recommendationsPath string
	stateStatePath       string

	rejectedMu  sync.Mutex
	acceptedMu  sync.Mutex
	outcomesMu  sync.Mutex
	recommendMu sync.Mutex
}

// Open wires a Store to its five files, all rooted at dir (the repo's data/
// directory in production). Open itself creates nothing; each write creates
// the directory its file needs.
func Open(dir string) *Store {
	return &Store{
		rejectedPath:         filepath.Join(dir, "rejected_items.jsonl"),
		acceptedPath:         filepath.Join(dir, "accepted_items.jsonl"),
		outcomesPath:         filepath.Join(dir, "moa", "outcomes.jsonl"),
		recommendationsPath: filepath.Join(dir, "moa", "recommendations.json"),
		stateStatePath:       filepath.Join(dir, "moa", "analysis_state.json"),
	}
}

func appendLine(path string, line []byte, mu *sync.Mutex) error {
	mu.Lock()
	defer mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return xerrors.Wrap(xerrors.ErrStateCorruption, "creating directory for "+path, err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrStateCorruption, "opening "+path, err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return xerrors.Wrap(xerrors.ErrStateCorruption, "appending to "+path, err)
	}
	return nil
}

func readLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrStateCorruption, "opening "+path, err)
	}
	defer f.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		lines = append(lines, cp)
	}
	if err := scanner.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.ErrStateCorruption, "reading "+path, err)
	}
	return lines, nil
}

// AppendRejected logs one rejected item; malformed writes never happen
// since the JSON encoding of RejectedItem cannot fail.
func (s *Store) AppendRejected(item RejectedItem) error {
	line, _ := json.Marshal(item)
	return appendLine(s.rejectedPath, line, &s.rejectedMu)
}

// AppendAccepted logs one accepted item.
func (s *Store) AppendAccepted(item AcceptedItem) error {
	line, _ := json.Marshal(item)
	return appendLine(s.acceptedPath, line, &s.acceptedMu)
}

// LoadRejectedSince returns every rejected item with Timestamp >= cutoff,
// skipping (and not failing on) malformed lines, matching the source
// reader's "log and continue" behavior.
func (s *Store) LoadRejectedSince(cutoff time.Time) ([]RejectedItem, error) {
	lines, err := readLines(s.rejectedPath)
	if err != nil {
		return nil, err
	}
	items := make([]RejectedItem, 0, len(lines))
	for _, line := range lines {
		var item RejectedItem
		if err := json.Unmarshal(line, &item); err != nil {
			continue
		}
		if item.Timestamp.Before(cutoff) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// LoadAcceptedSince returns every accepted item with Timestamp >= cutoff.
func (s *Store) LoadAcceptedSince(cutoff time.Time) ([]AcceptedItem, error) {
	lines, err := readLines(s.acceptedPath)
	if err != nil {
		return nil, err
	}
	items := make([]AcceptedItem, 0, len(lines))
	for _, line := range lines {
		var item AcceptedItem
		if err := json.Unmarshal(line, &item); err != nil {
			continue
		}
		if item.Timestamp.Before(cutoff) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func outcomeKey(ticker string, rejectionTS time.Time) string {
	return ticker + "|" + rejectionTS.UTC().Format(time.RFC3339Nano)
}

// LoadOutcomes returns every persisted outcome record, keyed by
// (ticker, rejection_ts), as the tracker and analyzer need to look them up
// without a linear scan per item.
func (s *Store) LoadOutcomes() (map[string]*types.OutcomeRecord, error) {
	s.outcomesMu.Lock()
	defer s.outcomesMu.Unlock()
	return s.loadOutcomesLocked()
}

func (s *Store) loadOutcomesLocked() (map[string]*types.OutcomeRecord, error) {
	lines, err := readLines(s.outcomesPath)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*types.OutcomeRecord, len(lines))
	for _, line := range lines {
		var rec types.OutcomeRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		out[outcomeKey(rec.Ticker, rec.RejectionTS)] = &rec
	}
	return out, nil
}

// UpsertOutcome writes rec to outcomes.jsonl by rewriting the whole file,
// replacing any record with the same key (§6's "updated by rewrite-in-place
// when an existing key reappears"); a new key is rewritten the same way.
func (s *Store) UpsertOutcome(rec *types.OutcomeRecord) error {
	s.outcomesMu.Lock()
	defer s.outcomesMu.Unlock()

	existing, err := s.loadOutcomesLocked()
	if err != nil {
		return err
	}
	key := outcomeKey(rec.Ticker, rec.RejectionTS)
	existing[key] = rec

	if err := os.MkdirAll(filepath.Dir(s.outcomesPath), 0o755); err != nil {
		return xerrors.Wrap(xerrors.ErrStateCorruption, "creating moa directory", err)
	}
	f, err := os.Create(s.outcomesPath)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrStateCorruption, "rewriting outcomes log", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, o := range existing {
		line, err := json.Marshal(o)
		if err != nil {
			continue
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return xerrors.Wrap(xerrors.ErrStateCorruption, "writing outcomes log", err)
		}
	}
	if err := w.Flush(); err != nil {
		return xerrors.Wrap(xerrors.ErrStateCorruption, "flushing outcomes log", err)
	}
	return nil
}

// SaveRecommendations persists the latest recommendation set, overwriting
// any prior snapshot.
func (s *Store) SaveRecommendations(recs []Recommendation) error {
	s.recommendMu.Lock()
	defer s.recommendMu.Unlock()
	return writeJSONFile(s.recommendationsPath, recs)
}

// LoadRecommendations reads the last persisted recommendation set, or an
// empty slice if none has been written yet.
func (s *Store) LoadRecommendations() ([]Recommendation, error) {
	s.recommendMu.Lock()
	defer s.recommendMu.Unlock()
	var recs []Recommendation
	ok, err := readJSONFile(s.recommendationsPath, &recs)
	if err != nil || !ok {
		return nil, err
	}
	return recs, nil
}

// SaveAnalysisState persists the last-run metadata.
func (s *Store) SaveAnalysisState(state AnalysisState) error {
	return writeJSONFile(s.stateStatePath, state)
}

// LoadAnalysisState reads the last-run metadata, or (nil, false, nil) if
// analysis has never run.
func (s *Store) LoadAnalysisState() (*AnalysisState, bool, error) {
	var state AnalysisState
	ok, err := readJSONFile(s.stateStatePath, &state)
	if err != nil || !ok {
		return nil, false, err
	}
	return &state, true, nil
}

func writeJSONFile(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return xerrors.Wrap(xerrors.ErrStateCorruption, "creating directory for "+path, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return xerrors.Wrap(xerrors.ErrStateCorruption, "encoding "+path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return xerrors.Wrap(xerrors.ErrStateCorruption, "writing "+path, err)
	}
	return nil
}

func readJSONFile(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, xerrors.Wrap(xerrors.ErrStateCorruption, "reading "+path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, xerrors.Wrap(xerrors.ErrStateCorruption, "decoding "+path, err)
	}
	return true, nil
}
