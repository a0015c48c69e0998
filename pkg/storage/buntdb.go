package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/raykavin/signalrun/pkg/core"
	"github.com/tidwall/buntdb"
)

const (
	signalPrefix = "signal:"
	statePrefix  = "state:"
)

// BuntStorage implements core.SignalStorage on BuntDB. BuntDB gives the same
// crash-safe persistence guarantees as the file store through its own
// journaled writes.
type BuntStorage struct {
	db *buntdb.DB
}

// FromMemory creates an in-memory store, used by tests and dry runs.
func FromMemory() (*BuntStorage, error) {
	return NewBuntStorage(":memory:")
}

// FromFile creates a file-based store.
func FromFile(file string) (*BuntStorage, error) {
	return NewBuntStorage(file)
}

// NewBuntStorage opens a BuntDB-backed signal store.
func NewBuntStorage(sourceFile string) (*BuntStorage, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	err = db.CreateIndex("created_index", signalPrefix+"*", buntdb.IndexJSON("created_at"))
	if err != nil && err != buntdb.ErrIndexExists {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &BuntStorage{db: db}, nil
}

// Add implements core.SignalStorage.
func (b *BuntStorage) Add(signal *core.Signal) (string, error) {
	if err := signal.Validate(); err != nil {
		return "", err
	}

	if signal.CreatedAt.IsZero() {
		signal.CreatedAt = time.Now().UTC()
	}
	if signal.ID == "" {
		signal.ID = core.NewSignalID(signal.Symbol, signal.Direction, signal.CreatedAt)
	}

	err := b.db.Update(func(tx *buntdb.Tx) error {
		sigContent, err := json.Marshal(signal)
		if err != nil {
			return err
		}
		if _, _, err = tx.Set(signalPrefix+signal.ID, string(sigContent), nil); err != nil {
			return err
		}

		stateContent, err := json.Marshal(core.NewUpdateState())
		if err != nil {
			return err
		}
		_, _, err = tx.Set(statePrefix+signal.ID, string(stateContent), nil)
		return err
	})
	if err != nil {
		return "", &core.PersistenceError{Op: "add", Err: err}
	}
	return signal.ID, nil
}

// Remove implements core.SignalStorage.
func (b *BuntStorage) Remove(id string) (bool, error) {
	present := false
	err := b.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Delete(signalPrefix + id); err != nil {
			if err == buntdb.ErrNotFound {
				return nil
			}
			return err
		}
		present = true
		if _, err := tx.Delete(statePrefix + id); err != nil && err != buntdb.ErrNotFound {
			return err
		}
		return nil
	})
	if err != nil {
		return false, &core.PersistenceError{Op: "remove", Err: err}
	}
	return present, nil
}

// Signals implements core.SignalStorage with stable creation order.
func (b *BuntStorage) Signals() ([]*core.Signal, error) {
	signals := make([]*core.Signal, 0)

	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("created_index", func(key, value string) bool {
			if !strings.HasPrefix(key, signalPrefix) {
				return true
			}
			var signal core.Signal
			if err := json.Unmarshal([]byte(value), &signal); err != nil {
				return true // skip unreadable entries
			}
			signals = append(signals, &signal)
			return true
		})
	})
	if err != nil {
		return nil, &core.PersistenceError{Op: "enumerate", Err: err}
	}

	sortSignals(signals)
	return signals, nil
}

// State implements core.SignalStorage.
func (b *BuntStorage) State(id string) (*core.UpdateState, error) {
	var state core.UpdateState
	err := b.db.View(func(tx *buntdb.Tx) error {
		value, err := tx.Get(statePrefix + id)
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(value), &state)
	})
	if err == buntdb.ErrNotFound {
		return nil, core.ErrSignalNotFound
	}
	if err != nil {
		return nil, &core.PersistenceError{Op: "state", Err: err}
	}
	return &state, nil
}

// SaveState implements core.SignalStorage.
func (b *BuntStorage) SaveState(id string, state *core.UpdateState) error {
	err := b.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(signalPrefix + id); err != nil {
			return err
		}
		content, err := json.Marshal(state)
		if err != nil {
			return err
		}
		_, _, err = tx.Set(statePrefix+id, string(content), nil)
		return err
	})
	if err == buntdb.ErrNotFound {
		return core.ErrSignalNotFound
	}
	if err != nil {
		return &core.PersistenceError{Op: "save state", Err: err}
	}
	return nil
}

// Close closes the underlying database.
func (b *BuntStorage) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
