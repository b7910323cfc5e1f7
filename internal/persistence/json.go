package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"storefront.chapter42.de/mailer/internal/attemptlog"
)

const DefaultFileName string = "email_log.json"

// FileStore keeps the attempt log as one indented JSON document on disk.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFileName
	}
	return &FileStore{Path: path}
}

func (s *FileStore) Load(_ context.Context) ([]attemptlog.Entry, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fehler beim Lesen von %s: %w", s.Path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var entries []attemptlog.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: fehler beim Deserialisieren von %s: %w", attemptlog.ErrCorruptLog, s.Path, err)
	}
	return entries, nil
}

// Save replaces the document. It writes a temp file first so a crash never
// leaves a half-written log behind.
func (s *FileStore) Save(_ context.Context, entries []attemptlog.Entry) error {
	if entries == nil {
		entries = []attemptlog.Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("fehler beim Serialisieren des Protokolls: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("fehler beim Anlegen von %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("fehler beim Speichern in %s: %w", s.Path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("fehler beim Speichern in %s: %w", s.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fehler beim Speichern in %s: %w", s.Path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("fehler beim Speichern in %s: %w", s.Path, err)
	}
	return os.Rename(tmp.Name(), s.Path)
}
