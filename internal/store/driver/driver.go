// Package driver escolhe a implementação de store.Backend pela configuração.
package driver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"fishingchat/internal/services/cluster"
	"fishingchat/internal/store"
	"fishingchat/internal/store/consulkv"
	"fishingchat/internal/store/s3store"
	"fishingchat/internal/store/sqlstore"
)

// Options reúne o que cada driver precisa. Só os campos do driver escolhido
// são usados.
type Options struct {
	Driver store.Driver

	Path string // file, sqlite
	DSN  string // postgres

	ConsulAddrs  string
	ConsulPrefix string
	// Consul reaproveita um manager já conectado (o mesmo do registro de serviço).
	Consul *cluster.ConsulManager

	S3 s3store.Config

	Log *zap.Logger
}

// Open devolve o backend configurado.
//
//	file (padrão) | memory | sqlite | postgres | consul | s3
func Open(ctx context.Context, opts Options) (store.Backend, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	d := opts.Driver
	if d == "" {
		d = store.DriverFile
	}
	log.Info("opening store", zap.String("driver", string(d)))

	switch d {
	case store.DriverFile:
		return store.NewFileBackend(opts.Path), nil
	case store.DriverMemory:
		return store.NewMemoryBackend(), nil
	case store.DriverSQLite:
		return sqlstore.OpenSQLite(ctx, opts.Path)
	case store.DriverPostgres:
		return sqlstore.OpenPostgres(ctx, opts.DSN)
	case store.DriverConsul:
		m := opts.Consul
		if m == nil {
			if opts.ConsulAddrs == "" {
				return nil, fmt.Errorf("consul store requires CONSUL_HTTP_ADDR")
			}
			var err error
			m, err = cluster.NewConsulManager(ctx, opts.ConsulAddrs, log)
			if err != nil {
				return nil, fmt.Errorf("connect consul: %w", err)
			}
		}
		return consulkv.New(m, opts.ConsulPrefix), nil
	case store.DriverS3:
		return s3store.Open(ctx, opts.S3)
	default:
		return nil, fmt.Errorf("%w: %q", store.ErrUnknownDriver, d)
	}
}
