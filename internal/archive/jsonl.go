package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// JSONLStore appends one JSON record per line to a file. The file holds
// finding metadata, so it is created owner-only.
type JSONLStore struct {
	mu   sync.Mutex
	path string
}

func NewJSONLStore(path string) *JSONLStore {
	return &JSONLStore{path: path}
}

func (s *JSONLStore) Save(_ context.Context, rec Record) (Record, error) {
	rec = prepare(rec)
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return Record{}, fmt.Errorf("failed to open archive log: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(rec); err != nil {
		return Record{}, fmt.Errorf("failed to write archive record: %w", err)
	}
	return rec, nil
}

// load reads every record in file order. Lines that fail to decode are
// skipped.
func (s *JSONLStore) load() ([]Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open archive log: %w", err)
	}
	defer f.Close()

	var records []Record
	dec := json.NewDecoder(f)
	for dec.More() {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			var syn *json.SyntaxError
			if errors.As(err, &syn) {
				break
			}
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *JSONLStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.load()
	if err != nil {
		return Record{}, err
	}
	for _, r := range recs {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

func (s *JSONLStore) List(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	recs, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	sortNewestFirst(recs)
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

// Delete rewrites the log without the record.
func (s *JSONLStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.load()
	if err != nil {
		return err
	}
	kept := recs[:0]
	found := false
	for _, r := range recs {
		if r.ID == id {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return ErrNotFound
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create archive log: %w", err)
	}
	enc := json.NewEncoder(f)
	for _, r := range kept {
		if err := enc.Encode(r); err != nil {
			f.Close()
			return fmt.Errorf("failed to write archive record: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *JSONLStore) Totals(ctx context.Context) (Totals, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return Totals{}, err
	}
	return computeTotals(recs), nil
}

func (s *JSONLStore) Close() error { return nil }
