// Package sqlstore implementa store.Backend sobre database/sql, com SQLite
// (modernc.org/sqlite, Go puro) ou Postgres (pgx via stdlib).
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib" // registra o driver "pgx"
	_ "modernc.org/sqlite"             // registra o driver "sqlite"

	"fishingchat/internal/game"
	"fishingchat/internal/store"
)

// Um registro por identidade; o inventário vai como JSON.
const createTable = `CREATE TABLE IF NOT EXISTS players (
	identity  TEXT PRIMARY KEY,
	inventory TEXT NOT NULL,
	gold      BIGINT NOT NULL DEFAULT 0
)`

type dialect struct {
	driver string
	upsert string
}

var (
	sqliteDialect = dialect{
		driver: "sqlite",
		upsert: `INSERT INTO players(identity, inventory, gold) VALUES(?, ?, ?)
			ON CONFLICT(identity) DO UPDATE SET inventory = excluded.inventory, gold = excluded.gold`,
	}
	postgresDialect = dialect{
		driver: "pgx",
		upsert: `INSERT INTO players(identity, inventory, gold) VALUES($1, $2, $3)
			ON CONFLICT(identity) DO UPDATE SET inventory = excluded.inventory, gold = excluded.gold`,
	}
)

// Backend grava cada registro como uma linha da tabela players.
type Backend struct {
	db      *sql.DB
	dialect dialect
}

var _ store.Backend = (*Backend)(nil)

// OpenSQLite abre (ou cria) o arquivo SQLite em path.
func OpenSQLite(ctx context.Context, path string) (*Backend, error) {
	if path == "" {
		path = "fishingchat.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open(sqliteDialect.driver, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite aceita um escritor por vez; uma conexão evita SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return open(ctx, db, sqliteDialect)
}

// OpenPostgres conecta no Postgres usando o DSN informado.
func OpenPostgres(ctx context.Context, dsn string) (*Backend, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres store requires a DSN")
	}
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return open(ctx, db, postgresDialect)
}

func open(ctx context.Context, db *sql.DB, d dialect) (*Backend, error) {
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create players table: %w", err)
	}
	return &Backend{db: db, dialect: d}, nil
}

func (b *Backend) Load(ctx context.Context) (store.Document, error) {
	doc := store.NewDocument()
	rows, err := b.db.QueryContext(ctx, `SELECT identity, inventory, gold FROM players`)
	if err != nil {
		return doc, fmt.Errorf("select players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   string
			raw  string
			gold int64
		)
		if err := rows.Scan(&id, &raw, &gold); err != nil {
			return doc, fmt.Errorf("scan player: %w", err)
		}
		inv := game.Inventory{}
		if err := json.Unmarshal([]byte(raw), &inv); err != nil {
			return doc, fmt.Errorf("decode inventory of %s: %w", id, err)
		}
		doc.Inventories[id] = inv
		doc.UserGold[id] = gold
	}
	if err := rows.Err(); err != nil {
		return doc, fmt.Errorf("iterate players: %w", err)
	}
	return doc, nil
}

func (b *Backend) Upsert(ctx context.Context, id store.Identity, rec store.Record) error {
	inv := rec.Inventory
	if inv == nil {
		inv = game.Inventory{}
	}
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encode inventory: %w", err)
	}
	if _, err := b.db.ExecContext(ctx, b.dialect.upsert, id, string(data), rec.Gold); err != nil {
		return fmt.Errorf("upsert %s: %w", id, err)
	}
	return nil
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *Backend) Close() error {
	return b.db.Close()
}
