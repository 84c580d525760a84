package store

import (
	"context"
	"sync"
)

// MemoryBackend guarda o documento só em memória. Usado em testes e quando
// o operador não quer persistência.
type MemoryBackend struct {
	mu  sync.Mutex
	doc Document

	upserts int
	// err, se definido, é devolvido por Upsert (simula falha de disco).
	err error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{doc: NewDocument()}
}

func (b *MemoryBackend) Load(ctx context.Context) (Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.doc.Copy(), nil
}

func (b *MemoryBackend) Upsert(ctx context.Context, id Identity, rec Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.upserts++
	b.doc.Set(id, rec)
	return nil
}

// Document devolve uma cópia do que foi gravado até agora.
func (b *MemoryBackend) Document() Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.doc.Copy()
}

// UpsertCount devolve o número de gravações bem sucedidas.
func (b *MemoryBackend) UpsertCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.upserts
}

// SetErr troca o erro devolvido por Upsert.
func (b *MemoryBackend) SetErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

func (b *MemoryBackend) Ping(ctx context.Context) error { return nil }
func (b *MemoryBackend) Close() error                   { return nil }
