package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sudorandom/arc-globe/pkg/globeworker"
)

const (
	latestKey     = "arcs/latest"
	historyPrefix = "arcs/history/"
)

// ArcStore keeps arc batches received from the feed in badger. The newest batch is
// also kept under a fixed key so it can be shown again on the next start.
type ArcStore struct {
	db  *badger.DB
	now func() time.Time
}

func OpenArcStore(path string) (*ArcStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening arc store: %w", err)
	}
	return &ArcStore{db: db, now: time.Now}, nil
}

func (s *ArcStore) Close() error {
	return s.db.Close()
}

// Save records arcs as the latest batch and appends it to the history.
func (s *ArcStore) Save(arcs []globeworker.ArcRecord) error {
	if arcs == nil {
		arcs = []globeworker.ArcRecord{}
	}
	data, err := json.Marshal(arcs)
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	if err := wb.Set([]byte(latestKey), data); err != nil {
		return err
	}
	// Zero-padded so keys sort in time order.
	histKey := fmt.Sprintf("%s%020d", historyPrefix, s.now().UnixNano())
	if err := wb.Set([]byte(histKey), data); err != nil {
		return err
	}
	return wb.Flush()
}

// Latest returns the most recently saved batch. ok is false when nothing was saved.
func (s *ArcStore) Latest() (arcs []globeworker.ArcRecord, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(latestKey))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &arcs)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return arcs, true, nil
}

// History calls fn for every saved batch, oldest first, until fn returns an error.
func (s *ArcStore) History(fn func(saved time.Time, arcs []globeworker.ArcRecord) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(historyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			nanos, err := strconv.ParseInt(string(item.Key()[len(historyPrefix):]), 10, 64)
			if err != nil {
				return fmt.Errorf("bad history key %q: %w", item.Key(), err)
			}
			var arcs []globeworker.ArcRecord
			if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &arcs) }); err != nil {
				return err
			}
			if err := fn(time.Unix(0, nanos), arcs); err != nil {
				return err
			}
		}
		return nil
	})
}
