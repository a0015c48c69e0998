// Package storage provides durable, restart-safe signal stores.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/raykavin/signalrun/pkg/core"
)

// Timestamp layouts accepted on load. RFC3339 is written; the space-separated
// layout is tolerated for files produced by older tooling.
const (
	timeLayout         = time.RFC3339
	timeLayoutFallback = "2006-01-02 15:04:05"
)

// signalRecord is the on-disk shape of a signal. created_at travels as a
// string so the file stays portable.
type signalRecord struct {
	ID          string    `json:"signal_id"`
	Symbol      string    `json:"symbol"`
	Direction   string    `json:"direction"`
	EntryPrice  float64   `json:"entry_price"`
	StopLoss    float64   `json:"stop_loss"`
	TakeProfits []float64 `json:"take_profit_levels"`
	CreatedAt   string    `json:"created_at"`
}

type stateRecord struct {
	LastUpdateTime   string  `json:"last_update_time"`
	LastUpdatePct    float64 `json:"last_update_pct"`
	UpdatesSent      int     `json:"updates_sent"`
	CompletedTargets []int   `json:"completed_targets"`
}

type fileDocument struct {
	Signals map[string]signalRecord `json:"signals"`
	States  map[string]stateRecord  `json:"states"`
}

// FileStorage keeps the whole signal collection in a single JSON document.
// Every mutation rewrites the document to a temporary file and atomically
// replaces the store file, so a crash mid-write cannot leave a partial file.
type FileStorage struct {
	mu      sync.Mutex
	path    string
	signals map[string]*core.Signal
	states  map[string]*core.UpdateState
}

// FromJSON opens (or creates) a file-backed store. A missing file means zero
// signals, not an error.
func FromJSON(path string) (*FileStorage, error) {
	s := &FileStorage{
		path:    path,
		signals: make(map[string]*core.Signal),
		states:  make(map[string]*core.UpdateState),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Add implements core.SignalStorage.
func (s *FileStorage) Add(signal *core.Signal) (string, error) {
	if err := signal.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if signal.CreatedAt.IsZero() {
		signal.CreatedAt = time.Now().UTC()
	}
	if signal.ID == "" {
		signal.ID = core.NewSignalID(signal.Symbol, signal.Direction, signal.CreatedAt)
	}

	s.signals[signal.ID] = signal
	s.states[signal.ID] = core.NewUpdateState()

	if err := s.persist(); err != nil {
		delete(s.signals, signal.ID)
		delete(s.states, signal.ID)
		return "", err
	}
	return signal.ID, nil
}

// Remove implements core.SignalStorage. It is idempotent.
func (s *FileStorage) Remove(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.signals[id]; !ok {
		return false, nil
	}
	delete(s.signals, id)
	delete(s.states, id)

	if err := s.persist(); err != nil {
		return false, err
	}
	return true, nil
}

// Signals returns active signals ordered by creation time, then id.
func (s *FileStorage) Signals() ([]*core.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	signals := make([]*core.Signal, 0, len(s.signals))
	for _, sig := range s.signals {
		signals = append(signals, sig)
	}
	sortSignals(signals)
	return signals, nil
}

// State implements core.SignalStorage.
func (s *FileStorage) State(id string) (*core.UpdateState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[id]
	if !ok {
		return nil, core.ErrSignalNotFound
	}
	return state, nil
}

// SaveState implements core.SignalStorage.
func (s *FileStorage) SaveState(id string, state *core.UpdateState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.signals[id]; !ok {
		return core.ErrSignalNotFound
	}
	s.states[id] = state
	return s.persist()
}

// Close implements core.SignalStorage. The file store holds no open handles.
func (s *FileStorage) Close() error { return nil }

func (s *FileStorage) load() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return &core.PersistenceError{Op: "load", Err: err}
	}

	var doc fileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &core.PersistenceError{Op: "load", Err: err}
	}

	for id, rec := range doc.Signals {
		createdAt, err := parseTime(rec.CreatedAt)
		if err != nil {
			return &core.PersistenceError{Op: "load", Err: fmt.Errorf("signal %s: %w", id, err)}
		}
		s.signals[id] = &core.Signal{
			ID:          rec.ID,
			Symbol:      rec.Symbol,
			Direction:   core.Direction(rec.Direction),
			EntryPrice:  rec.EntryPrice,
			StopLoss:    rec.StopLoss,
			TakeProfits: rec.TakeProfits,
			CreatedAt:   createdAt,
		}

		state := core.NewUpdateState()
		if st, ok := doc.States[id]; ok {
			lastUpdate, err := parseTime(st.LastUpdateTime)
			if err == nil {
				state.LastUpdateTime = lastUpdate
			}
			state.LastUpdatePct = st.LastUpdatePct
			state.UpdatesSent = st.UpdatesSent
			state.CompletedTargets = st.CompletedTargets
		}
		s.states[id] = state
	}

	return nil
}

// persist rewrites the full collection. Callers hold s.mu.
func (s *FileStorage) persist() error {
	doc := fileDocument{
		Signals: make(map[string]signalRecord, len(s.signals)),
		States:  make(map[string]stateRecord, len(s.states)),
	}
	for id, sig := range s.signals {
		doc.Signals[id] = signalRecord{
			ID:          sig.ID,
			Symbol:      sig.Symbol,
			Direction:   string(sig.Direction),
			EntryPrice:  sig.EntryPrice,
			StopLoss:    sig.StopLoss,
			TakeProfits: sig.TakeProfits,
			CreatedAt:   sig.CreatedAt.UTC().Format(timeLayout),
		}
	}
	for id, st := range s.states {
		doc.States[id] = stateRecord{
			LastUpdateTime:   st.LastUpdateTime.UTC().Format(timeLayout),
			LastUpdatePct:    st.LastUpdatePct,
			UpdatesSent:      st.UpdatesSent,
			CompletedTargets: st.CompletedTargets,
		}
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &core.PersistenceError{Op: "save", Err: err}
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return &core.PersistenceError{Op: "save", Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &core.PersistenceError{Op: "save", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &core.PersistenceError{Op: "save", Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &core.PersistenceError{Op: "save", Err: err}
	}
	return nil
}

func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(timeLayoutFallback, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
	}
	return t, nil
}

func sortSignals(signals []*core.Signal) {
	sort.Slice(signals, func(i, j int) bool {
		if !signals[i].CreatedAt.Equal(signals[j].CreatedAt) {
			return signals[i].CreatedAt.Before(signals[j].CreatedAt)
		}
		return signals[i].ID < signals[j].ID
	})
}
