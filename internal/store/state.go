package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"fishingchat/internal/game"
)

const defaultTimeout = 2 * time.Second

// State é o serviço de estado do jogo do processo. Ele mantém os registros
// em memória e grava cada alteração no Backend antes de retornar, para que a
// gravação aconteça antes do broadcast do resultado.
//
// As mutações vêm da goroutine do Hub; o mutex existe para as leituras feitas
// pelos handlers HTTP.
type State struct {
	mu      sync.RWMutex
	records map[Identity]Record

	backend Backend
	catalog *game.Catalog
	log     *zap.Logger
	timeout time.Duration
	loadErr error

	// OnPersistError é chamado quando o backend falha. Opcional.
	OnPersistError func(err error)
}

// NewState carrega o documento do backend e monta o estado em memória.
//
// Falha de leitura não é fatal: o erro é logado, fica disponível em LoadErr
// e o estado começa vazio. A partir daí a memória é a fonte da verdade.
func NewState(ctx context.Context, backend Backend, catalog *game.Catalog, log *zap.Logger, timeout time.Duration) *State {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	s := &State{
		records: make(map[Identity]Record),
		backend: backend,
		catalog: catalog,
		log:     log,
		timeout: timeout,
	}

	doc, err := backend.Load(ctx)
	if err != nil {
		s.loadErr = fmt.Errorf("load state: %w", err)
		log.Error("state load failed, starting empty", zap.Error(err))
		doc = NewDocument()
	}
	doc.Normalize()

	for id, inv := range doc.Inventories {
		s.records[id] = Record{Inventory: inv.Clone(), Gold: doc.UserGold[id]}
	}
	for id, gold := range doc.UserGold {
		if _, ok := s.records[id]; !ok {
			s.records[id] = Record{Inventory: game.Inventory{}, Gold: gold}
		}
	}
	log.Info("state loaded", zap.Int("identities", len(s.records)))
	return s
}

// LoadErr devolve o erro da carga inicial, ou nil.
func (s *State) LoadErr() error { return s.loadErr }

// Ensure cria inventário vazio e ouro zero para uma identidade nova e grava.
// Retorna true se o registro foi criado agora.
func (s *State) Ensure(ctx context.Context, id Identity) bool {
	s.mu.Lock()
	if _, ok := s.records[id]; ok {
		s.mu.Unlock()
		return false
	}
	rec := Record{Inventory: game.Inventory{}, Gold: 0}
	s.records[id] = rec
	s.mu.Unlock()

	s.persist(ctx, id, rec)
	return true
}

// Get devolve uma cópia do registro. Identidade desconhecida devolve
// inventário vazio, ouro zero e false, sem criar nada.
func (s *State) Get(id Identity) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{Inventory: game.Inventory{}}, false
	}
	return rec.Clone(), true
}

// AddItem soma um ao item no inventário da identidade e grava.
func (s *State) AddItem(ctx context.Context, id Identity, item string) Record {
	s.mu.Lock()
	rec := s.recordLocked(id)
	rec.Inventory[item]++
	s.records[id] = rec
	out := rec.Clone()
	s.mu.Unlock()

	s.persist(ctx, id, out)
	return out
}

// SellAll vende tudo que está na tabela, soma o valor ao ouro e grava.
func (s *State) SellAll(ctx context.Context, id Identity) (int64, Record) {
	s.mu.Lock()
	rec := s.recordLocked(id)
	earned, updated := s.catalog.Sell(rec.Inventory)
	rec = Record{Inventory: updated, Gold: rec.Gold + earned}
	s.records[id] = rec
	out := rec.Clone()
	s.mu.Unlock()

	s.persist(ctx, id, out)
	return earned, out
}

// Snapshot exporta o estado inteiro no formato de documento.
func (s *State) Snapshot() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := NewDocument()
	for id, rec := range s.records {
		doc.Set(id, rec)
	}
	return doc
}

// Len devolve o número de identidades conhecidas.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Ping verifica o backend (usado pelo health check).
func (s *State) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Close fecha o backend.
func (s *State) Close() error {
	return s.backend.Close()
}

func (s *State) recordLocked(id Identity) Record {
	rec, ok := s.records[id]
	if !ok {
		rec = Record{Inventory: game.Inventory{}}
	}
	if rec.Inventory == nil {
		rec.Inventory = game.Inventory{}
	}
	return rec
}

// persist grava o registro. Falhas são só logadas: a memória continua valendo
// e o jogo segue.
func (s *State) persist(ctx context.Context, id Identity, rec Record) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.backend.Upsert(ctx, id, rec); err != nil {
		s.log.Error("persist record failed", zap.String("identity", id), zap.Error(err))
		if s.OnPersistError != nil {
			s.OnPersistError(err)
		}
	}
}
