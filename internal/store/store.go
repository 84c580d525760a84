// Package store guarda o estado do jogo (inventário e ouro por identidade).
//
// O State em memória é a fonte de verdade durante a vida do processo; o
// Backend é só o lugar onde cada registro alterado é gravado (upsert por
// identidade). Trocar o motor de armazenamento não muda o protocolo.
package store

import (
	"context"
	"errors"

	"fishingchat/internal/game"
)

// Identity é a chave estável de um participante entre reconexões.
type Identity = string

// Driver nomeia uma implementação de Backend.
type Driver string

const (
	DriverFile     Driver = "file"
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverConsul   Driver = "consul"
	DriverS3       Driver = "s3"
)

// ErrUnknownDriver é retornado pela fábrica de backends para drivers desconhecidos.
var ErrUnknownDriver = errors.New("unknown store driver")

// Record é o estado persistido de uma identidade.
type Record struct {
	Inventory game.Inventory `json:"inventory"`
	Gold      int64          `json:"gold"`
}

// Clone devolve uma cópia sem compartilhar o mapa de inventário.
func (r Record) Clone() Record {
	inv := r.Inventory.Clone()
	return Record{Inventory: inv, Gold: r.Gold}
}

// Document é o formato completo do banco: dois mapas de topo, exatamente
// como o db.json do servidor original.
type Document struct {
	Inventories map[Identity]game.Inventory `json:"inventories"`
	UserGold    map[Identity]int64          `json:"userGold"`
}

// NewDocument cria um documento vazio com os mapas inicializados.
func NewDocument() Document {
	return Document{
		Inventories: make(map[Identity]game.Inventory),
		UserGold:    make(map[Identity]int64),
	}
}

// Normalize garante mapas não nulos (documentos antigos podem ter só um deles).
func (d *Document) Normalize() {
	if d.Inventories == nil {
		d.Inventories = make(map[Identity]game.Inventory)
	}
	if d.UserGold == nil {
		d.UserGold = make(map[Identity]int64)
	}
	for id, inv := range d.Inventories {
		if inv == nil {
			d.Inventories[id] = game.Inventory{}
		}
	}
}

// Copy devolve uma cópia profunda do documento.
func (d Document) Copy() Document {
	out := NewDocument()
	for id, inv := range d.Inventories {
		out.Inventories[id] = inv.Clone()
	}
	for id, gold := range d.UserGold {
		out.UserGold[id] = gold
	}
	return out
}

// Set grava o registro de uma identidade no documento.
func (d *Document) Set(id Identity, rec Record) {
	if d.Inventories == nil {
		d.Inventories = make(map[Identity]game.Inventory)
	}
	if d.UserGold == nil {
		d.UserGold = make(map[Identity]int64)
	}
	d.Inventories[id] = rec.Inventory.Clone()
	d.UserGold[id] = rec.Gold
}

// Backend é o contrato do armazenamento durável. Upsert precisa ser atômico
// por identidade: ou o registro inteiro é gravado, ou nada.
type Backend interface {
	Load(ctx context.Context) (Document, error)
	Upsert(ctx context.Context, id Identity, rec Record) error
	Ping(ctx context.Context) error
	Close() error
}
