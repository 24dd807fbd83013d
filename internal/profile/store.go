package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"WalletCore/internal/factors"
	"WalletCore/internal/matrix"
	"WalletCore/internal/storage"
	"WalletCore/internal/wire"
)

// ErrNoProfile is returned by Load when nothing was saved yet.
var ErrNoProfile = errors.New("no profile stored")

// Storage key prefixes. List prefixes carry a zero padded position to keep order.
var (
	keyHeader          = []byte("h")
	prefixFactorSource = []byte("f/")
	prefixAccount      = []byte("a/")
	prefixPersona      = []byte("p/")
	prefixStructure    = []byte("s/")
)

// allPrefixes are every prefix a profile is written under.
var allPrefixes = [][]byte{keyHeader, prefixFactorSource, prefixAccount, prefixPersona, prefixStructure}

// Store persists a profile in a Pebble database.
type Store struct {
	db *storage.Storage // db is the underlying key-value store
	mu sync.Mutex       // mu serializes read-modify-write cycles
}

// NewStore wraps an open storage.
func NewStore(db *storage.Storage) *Store {
	return &Store{db: db}
}

// listKey returns prefix followed by a zero padded position.
func listKey(prefix []byte, i int) []byte {
	return append(bytes.Clone(prefix), fmt.Sprintf("%08d", i)...)
}

// encodeProfile turns a profile into storage records.
func encodeProfile(p *Profile) ([]wire.Record, error) {
	var records []wire.Record

	add := func(key []byte, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s:\n%w", key, err)
		}
		records = append(records, wire.Record{Key: key, Value: data})
		return nil
	}

	if err := add(keyHeader, p.Header); err != nil {
		return nil, err
	}

	for i, fs := range p.FactorSources.All() {
		if err := add(listKey(prefixFactorSource, i), fs); err != nil {
			return nil, err
		}
	}

	for i, e := range p.Accounts {
		if err := add(listKey(prefixAccount, i), e); err != nil {
			return nil, err
		}
	}

	for i, e := range p.Personas {
		if err := add(listKey(prefixPersona, i), e); err != nil {
			return nil, err
		}
	}

	for i, s := range p.SecurityStructures {
		if err := add(listKey(prefixStructure, i), s); err != nil {
			return nil, err
		}
	}

	return records, nil
}

// decodeProfile rebuilds a profile from records sorted by key.
func decodeProfile(records []wire.Record) (*Profile, error) {
	p := &Profile{}
	haveHeader := false

	for _, r := range records {
		var err error

		switch {
		case bytes.Equal(r.Key, keyHeader):
			haveHeader = true
			err = json.Unmarshal(r.Value, &p.Header)

		case bytes.HasPrefix(r.Key, prefixFactorSource):
			var fs factors.FactorSource
			if err = json.Unmarshal(r.Value, &fs); err == nil {
				err = p.FactorSources.Add(fs)
			}

		case bytes.HasPrefix(r.Key, prefixAccount), bytes.HasPrefix(r.Key, prefixPersona):
			var e Entity
			if err = json.Unmarshal(r.Value, &e); err == nil {
				err = e.Validate()
			}
			if bytes.HasPrefix(r.Key, prefixAccount) {
				p.Accounts = append(p.Accounts, e)
			} else {
				p.Personas = append(p.Personas, e)
			}

		case bytes.HasPrefix(r.Key, prefixStructure):
			var s matrix.SecurityStructureOfFactorSourceIDs
			err = json.Unmarshal(r.Value, &s)
			p.SecurityStructures = append(p.SecurityStructures, s)

		default:
			err = fmt.Errorf("unexpected key")
		}

		if err != nil {
			return nil, fmt.Errorf("decode record %q:\n%w", r.Key, err)
		}
	}

	if !haveHeader {
		return nil, ErrNoProfile
	}

	return p, nil
}

// readRecords loads every profile record in key order.
func (s *Store) readRecords() ([]wire.Record, error) {
	var records []wire.Record

	for _, prefix := range allPrefixes {
		err := s.db.IteratePrefix(prefix, func(key, value []byte) error {
			records = append(records, wire.Record{Key: bytes.Clone(key), Value: bytes.Clone(value)})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return records, nil
}

// writeRecords atomically replaces every profile record.
func (s *Store) writeRecords(records []wire.Record) error {
	existing, err := s.readRecords()
	if err != nil {
		return fmt.Errorf("read existing records:\n%w", err)
	}

	keep := make(map[string]bool, len(records))
	ops := make([]storage.Op, 0, len(records)+len(existing))

	for _, r := range records {
		keep[string(r.Key)] = true
		ops = append(ops, storage.Put(r.Key, r.Value))
	}

	for _, r := range existing {
		if !keep[string(r.Key)] {
			ops = append(ops, storage.Remove(r.Key))
		}
	}

	return s.db.Apply(ops)
}

// Save writes the whole profile atomically.
func (s *Store) Save(p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(p)
}

// save is Save without locking.
func (s *Store) save(p *Profile) error {
	records, err := encodeProfile(p)
	if err != nil {
		return err
	}

	if err := s.writeRecords(records); err != nil {
		return fmt.Errorf("save profile %s:\n%w", p.Header.ID, err)
	}

	return nil
}

// Load reads the profile. Returns ErrNoProfile if nothing was saved.
func (s *Store) Load() (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

// load is Load without locking.
func (s *Store) load() (*Profile, error) {
	records, err := s.readRecords()
	if err != nil {
		return nil, fmt.Errorf("read profile:\n%w", err)
	}

	return decodeProfile(records)
}

// Update loads the profile, applies fn and saves the result.
// Nothing is written if fn fails.
func (s *Store) Update(fn func(*Profile) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load()
	if err != nil {
		return err
	}

	if err := fn(p); err != nil {
		return err
	}

	return s.save(p)
}

// MarkFactorSourcesUsed stamps sources that just signed or derived.
func (s *Store) MarkFactorSourcesUsed(ids []factors.FactorSourceID, at time.Time) error {
	return s.Update(func(p *Profile) error {
		p.MarkFactorSourcesUsed(ids, at)
		return nil
	})
}

// ExportBackup returns a compressed, checksummed dump of the profile.
func (s *Store) ExportBackup() ([]byte, error) {
	s.mu.Lock()
	records, err := s.readRecords()
	s.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("read profile:\n%w", err)
	}

	if len(records) == 0 {
		return nil, ErrNoProfile
	}

	return wire.EncodeBackup(wire.NewBackup(records))
}

// ImportBackup verifies a backup and replaces the stored profile with it.
func (s *Store) ImportBackup(data []byte) (*Profile, error) {
	b, err := wire.DecodeBackup(data)
	if err != nil {
		return nil, fmt.Errorf("import backup:\n%w", err)
	}

	p, err := decodeProfile(b.Records)
	if err != nil {
		return nil, fmt.Errorf("import backup:\n%w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeRecords(b.Records); err != nil {
		return nil, fmt.Errorf("import backup:\n%w", err)
	}

	return p, nil
}
