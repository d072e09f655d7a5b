package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/wbrown/saturn/datalog"
)

// factPrefix namespaces fact keys so the database can hold other records
const factPrefix byte = 'f'

var errCorruptKey = errors.New("corrupt fact key")

// BadgerStore persists ground facts in BadgerDB. Each fact is a key with
// an empty value, so saving the same fact twice is harmless.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a store at path. An empty path opens
// an in-memory database.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable BadgerDB logs
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// SaveFacts writes facts in a single batch
func (s *BadgerStore) SaveFacts(facts []*datalog.Atom) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, f := range facts {
		key, err := encodeFactKey(f)
		if err != nil {
			return err
		}
		if err := wb.Set(key, nil); err != nil {
			return fmt.Errorf("failed to write fact %s: %w", f, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to flush facts: %w", err)
	}
	return nil
}

// LoadFacts reads every stored fact, interning terms through table
func (s *BadgerStore) LoadFacts(table *datalog.TermTable) ([]*datalog.Atom, error) {
	var facts []*datalog.Atom
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // Facts live entirely in the key
		opts.Prefix = []byte{factPrefix}

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			fact, err := decodeFactKey(table, it.Item().Key())
			if err != nil {
				return err
			}
			facts = append(facts, fact)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load facts: %w", err)
	}
	return facts, nil
}

// Close closes the underlying database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// encodeFactKey lays a fact out as prefix, name, arity, then each
// argument, with every string length-prefixed
func encodeFactKey(f *datalog.Atom) ([]byte, error) {
	if !f.IsGround() {
		return nil, fmt.Errorf("cannot store non-ground atom %s", f)
	}
	key := []byte{factPrefix}
	key = appendString(key, f.Pred.Name())
	key = binary.AppendUvarint(key, uint64(f.Pred.Arity()))
	for _, t := range f.Args {
		key = appendString(key, t.(*datalog.Constant).Name())
	}
	return key, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func decodeFactKey(table *datalog.TermTable, key []byte) (*datalog.Atom, error) {
	if len(key) == 0 || key[0] != factPrefix {
		return nil, errCorruptKey
	}
	rest := key[1:]

	name, rest, err := readString(rest)
	if err != nil {
		return nil, err
	}
	arity, n := binary.Uvarint(rest)
	if n <= 0 {
		return nil, errCorruptKey
	}
	rest = rest[n:]
	if arity > uint64(len(rest)) {
		// every argument takes at least its length byte
		return nil, errCorruptKey
	}

	args := make([]datalog.Term, arity)
	for i := range args {
		var c string
		c, rest, err = readString(rest)
		if err != nil {
			return nil, err
		}
		args[i] = table.Constant(c)
	}
	if len(rest) != 0 {
		return nil, errCorruptKey
	}
	return datalog.NewAtom(table.Predicate(name, int(arity)), args...), nil
}

func readString(buf []byte) (string, []byte, error) {
	l, n := binary.Uvarint(buf)
	if n <= 0 || uint64(len(buf)-n) < l {
		return "", nil, errCorruptKey
	}
	return string(buf[n : n+int(l)]), buf[n+int(l):], nil
}
