package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileBackend grava o documento inteiro em um arquivo JSON a cada upsert.
// A escrita vai para um arquivo temporário e depois é renomeada, então um
// crash no meio da escrita não deixa o db.json pela metade.
type FileBackend struct {
	mu   sync.Mutex
	path string
	doc  Document
}

// NewFileBackend cria o backend de arquivo. O arquivo só é lido em Load.
func NewFileBackend(path string) *FileBackend {
	if path == "" {
		path = "db.json"
	}
	return &FileBackend{path: path, doc: NewDocument()}
}

func (b *FileBackend) Load(ctx context.Context) (Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		b.doc = NewDocument()
		return NewDocument(), nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", b.path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		// Arquivo ilegível vai para o lado antes que o próximo upsert o sobrescreva.
		b.doc = NewDocument()
		aside := fmt.Sprintf("%s.corrupt-%d", b.path, time.Now().UnixNano())
		if rerr := os.Rename(b.path, aside); rerr != nil {
			return Document{}, fmt.Errorf("decode %s: %w (move aside: %v)", b.path, err, rerr)
		}
		return Document{}, fmt.Errorf("decode %s (moved to %s): %w", b.path, aside, err)
	}
	doc.Normalize()
	b.doc = doc
	return doc.Copy(), nil
}

func (b *FileBackend) Upsert(ctx context.Context, id Identity, rec Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.doc.Set(id, rec)
	return b.writeLocked()
}

func (b *FileBackend) Ping(ctx context.Context) error {
	dir := filepath.Dir(b.path)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("store dir %s: %w", dir, err)
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }

func (b *FileBackend) writeLocked() error {
	data, err := json.MarshalIndent(b.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", b.path, err)
	}
	return nil
}
