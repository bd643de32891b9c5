package infra

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// fileBackend keeps one JSON document per guild under root/guilds. Writes go
// through a temp file and an atomic rename, so a crash mid-write leaves the
// previous valid document loadable.
type fileBackend struct {
	root string
}

// NewFileStore opens the default file-backed datastore rooted at DATA_DIR
// (./data when unset).
func NewFileStore() (*Store, error) {
	root := "./data"
	if os.Getenv("DATA_DIR") != "" {
		root = os.Getenv("DATA_DIR")
	}
	return NewFileStoreAt(root)
}

func NewFileStoreAt(root string) (*Store, error) {
	dir := filepath.Join(root, "guilds")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir %s: %w", dir, err)
	}
	return &Store{backend: &fileBackend{root: dir}}, nil
}

func (f *fileBackend) path(guildID string) string {
	return filepath.Join(f.root, guildID+".json")
}

func (f *fileBackend) loadDocument(guildID string) (*guildDocument, error) {
	data, err := os.ReadFile(f.path(guildID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newGuildDocument(), nil
		}
		return nil, fmt.Errorf("failed to read guild document: %w", err)
	}

	var doc guildDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		// Corruption is unrecoverable at this granularity. Reinitialize the
		// document and surface the data loss loudly.
		slog.Error("guild document corrupted, reinitializing with defaults (data loss)",
			slog.String("guild_id", guildID), slog.Any("err", err))
		return newGuildDocument(), nil
	}
	doc.normalize()
	return &doc, nil
}

func (f *fileBackend) saveDocument(guildID string, doc *guildDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal guild document: %w", err)
	}

	tmp, err := os.CreateTemp(f.root, guildID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write guild document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync guild document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path(guildID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace guild document: %w", err)
	}
	return nil
}
