package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/raykavin/pairwatch/pkg/core"
	"github.com/tidwall/buntdb"
)

const keyPrefix = "signal:"

type record struct {
	State     core.SignalState `json:"state"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// BuntStorage implements core.StateStore using BuntDB
type BuntStorage struct {
	db  *buntdb.DB
	now func() time.Time
}

// FromMemory creates an in-memory storage
func FromMemory() (*BuntStorage, error) {
	return NewBuntStorage(":memory:")
}

// FromFile creates a file-based storage
func FromFile(file string) (*BuntStorage, error) {
	return NewBuntStorage(file)
}

// NewBuntStorage creates a new BuntDB storage instance
func NewBuntStorage(sourceFile string) (*BuntStorage, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	err = db.CreateIndex("update_index", keyPrefix+"*", buntdb.IndexJSON("updated_at"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &BuntStorage{
		db:  db,
		now: time.Now,
	}, nil
}

// State returns the recorded state of the pair
func (b *BuntStorage) State(pair string) (core.SignalState, error) {
	var state core.SignalState

	err := b.db.View(func(tx *buntdb.Tx) error {
		value, err := tx.Get(keyPrefix + pair)
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var r record
		if err := json.Unmarshal([]byte(value), &r); err != nil {
			return fmt.Errorf("failed to unmarshal state of %s: %w", pair, err)
		}

		state = r.State
		return nil
	})

	return state, err
}

// SetState records the state of the pair
func (b *BuntStorage) SetState(pair string, state core.SignalState) error {
	content, err := json.Marshal(record{State: state, UpdatedAt: b.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	return b.db.Update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set(keyPrefix+pair, string(content), nil); err != nil {
			return fmt.Errorf("failed to store state of %s: %w", pair, err)
		}
		return nil
	})
}

// States returns every recorded pair state
func (b *BuntStorage) States() (map[string]core.SignalState, error) {
	states := make(map[string]core.SignalState)

	err := b.db.View(func(tx *buntdb.Tx) error {
		var iterErr error
		err := tx.Ascend("update_index", func(key, value string) bool {
			var r record
			if err := json.Unmarshal([]byte(value), &r); err != nil {
				iterErr = fmt.Errorf("failed to unmarshal state of %s: %w", key, err)
				return false
			}

			states[key[len(keyPrefix):]] = r.State
			return true
		})
		if err != nil {
			return fmt.Errorf("failed to iterate over states: %w", err)
		}
		return iterErr
	})

	if err != nil {
		return nil, err
	}

	return states, nil
}

// Close closes the database connection
func (b *BuntStorage) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
