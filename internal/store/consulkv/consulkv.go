// Package consulkv implementa store.Backend no KV do Consul: uma chave por
// identidade, com o registro em JSON.
package consulkv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	consul "github.com/hashicorp/consul/api"

	"fishingchat/internal/game"
	"fishingchat/internal/store"
)

const defaultPrefix = "fishingchat/players"

// ClientSource fornece o cliente Consul atual (cluster.ConsulManager satisfaz).
type ClientSource interface {
	Client() *consul.Client
	Ping(ctx context.Context) error
}

// Backend grava registros em <prefix>/<identity>.
type Backend struct {
	source ClientSource
	prefix string
}

var _ store.Backend = (*Backend)(nil)

// New cria o backend. Identidades são escapadas para virar um segmento de chave
// válido (endereços IPv6 têm ':').
func New(source ClientSource, prefix string) *Backend {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Backend{source: source, prefix: prefix}
}

func (b *Backend) key(id store.Identity) string {
	return b.prefix + "/" + url.PathEscape(id)
}

func (b *Backend) Load(ctx context.Context) (store.Document, error) {
	doc := store.NewDocument()
	pairs, _, err := b.source.Client().KV().List(b.prefix+"/", (&consul.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return doc, fmt.Errorf("list %s: %w", b.prefix, err)
	}
	for _, pair := range pairs {
		raw := strings.TrimPrefix(pair.Key, b.prefix+"/")
		id, err := url.PathUnescape(raw)
		if err != nil {
			return doc, fmt.Errorf("decode key %s: %w", pair.Key, err)
		}
		var rec store.Record
		if err := json.Unmarshal(pair.Value, &rec); err != nil {
			return doc, fmt.Errorf("decode record %s: %w", pair.Key, err)
		}
		if rec.Inventory == nil {
			rec.Inventory = game.Inventory{}
		}
		doc.Set(id, rec)
	}
	return doc, nil
}

func (b *Backend) Upsert(ctx context.Context, id store.Identity, rec store.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	pair := &consul.KVPair{Key: b.key(id), Value: data}
	if _, err := b.source.Client().KV().Put(pair, (&consul.WriteOptions{}).WithContext(ctx)); err != nil {
		return fmt.Errorf("write %s to consul: %w", pair.Key, err)
	}
	return nil
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.source.Ping(ctx)
}

func (b *Backend) Close() error { return nil }
