package scheduling

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the whole appointment list in a single JSON document and
// rewrites it on every change.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) GetAll(_ context.Context) ([]Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) Upsert(_ context.Context, a Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	appts, err := s.load()
	if err != nil {
		return err
	}
	replaced := false
	for i := range appts {
		if appts[i].ID == a.ID {
			appts[i] = a
			replaced = true
			break
		}
	}
	if !replaced {
		appts = append(appts, a)
	}
	return s.save(appts)
}

func (s *FileStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	appts, err := s.load()
	if err != nil {
		return err
	}
	kept := appts[:0]
	for _, a := range appts {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(appts) {
		return nil
	}
	return s.save(kept)
}

func (s *FileStore) load() ([]Appointment, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	appts, err := decodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return appts, nil
}

func (s *FileStore) save(appts []Appointment) error {
	data, err := encodeRecords(appts)
	if err != nil {
		return fmt.Errorf("encode appointments: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".appointments-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
