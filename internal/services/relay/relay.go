// Package relay espelha os eventos das salas em subjects NATS, para que outros
// processos (bots, arquivamento, painéis) acompanhem o chat sem abrir WebSocket.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const defaultPrefix = "fishingchat.room"

// ErrNotConnected é devolvido pelo health check enquanto o NATS está fora.
var ErrNotConnected = errors.New("nats not connected")

// Conn é o pedaço de *nats.Conn que o relay usa.
type Conn interface {
	Publish(subject string, data []byte) error
	IsConnected() bool
	Drain() error
}

type Publisher struct {
	conn   Conn
	prefix string
	log    *zap.Logger
}

// Connect abre a conexão NATS com reconexão infinita.
func Connect(url, prefix, name string, log *zap.Logger) (*Publisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	log.Info("relay connected", zap.String("url", nc.ConnectedUrl()))
	return New(nc, prefix, log), nil
}

func New(conn Conn, prefix string, log *zap.Logger) *Publisher {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{conn: conn, prefix: strings.TrimSuffix(prefix, "."), log: log}
}

// Publish manda o evento já serializado para o subject da sala.
func (p *Publisher) Publish(room string, data []byte) error {
	return p.conn.Publish(p.Subject(room), data)
}

// Subject devolve "<prefix>.<sala>", com a sala reduzida a um token válido.
func (p *Publisher) Subject(room string) string {
	return p.prefix + "." + Token(room)
}

// Check serve como health check.
func (p *Publisher) Check(ctx context.Context) error {
	if !p.conn.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Close entrega o que está pendente e fecha.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}

// Token troca por '_' o que não pode aparecer num token de subject NATS
// ('.', '*', '>' e espaços).
func Token(room string) string {
	t := strings.Map(func(r rune) rune {
		if r == '.' || r == '*' || r == '>' || unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, room)
	if t == "" {
		return "_"
	}
	return t
}
