package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore is a Store backed by BadgerDB v4.
type BadgerStore struct {
	db *badger.DB
}

// BadgerOptions configures the badger-backed store.
type BadgerOptions struct {
	// Dir is the directory for data files. Required unless InMemory.
	Dir string

	// InMemory runs badger without disk persistence. Useful for tests that
	// want the real engine.
	InMemory bool

	// Logger overrides the badger logger. If nil, a quiet logger is used
	// that forwards only warnings and errors to slog.
	Logger badger.Logger
}

// OpenBadger opens or creates a badger-backed store.
func OpenBadger(opts BadgerOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("widget: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		dbOpts = dbOpts.WithLogger(opts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(quietLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open widget store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Put implements Store.
func (s *BadgerStore) Put(_ context.Context, d *Definition) error {
	if err := prepare(d); err != nil {
		return err
	}
	data, err := encodeRecord(d)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(d.ID), data)
	})
}

// Get implements Store.
func (s *BadgerStore) Get(_ context.Context, id string) (*Definition, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(data)
}

// List implements Store.
func (s *BadgerStore) List(_ context.Context) ([]*Definition, error) {
	prefix := []byte(recordPrefix)
	var defs []*Definition
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			d, err := decodeRecord(data)
			if err != nil {
				return err
			}
			defs = append(defs, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortDefinitions(defs)
	return defs, nil
}

// Delete implements Store.
func (s *BadgerStore) Delete(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		key := recordKey(id)
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// quietLogger forwards badger warnings and errors to slog and drops the
// chatty informational output.
type quietLogger struct{}

func (quietLogger) Errorf(f string, v ...interface{}) {
	slog.Error("badger: " + fmt.Sprintf(f, v...))
}

func (quietLogger) Warningf(f string, v ...interface{}) {
	slog.Warn("badger: " + fmt.Sprintf(f, v...))
}

func (quietLogger) Infof(string, ...interface{})  {}
func (quietLogger) Debugf(string, ...interface{}) {}
