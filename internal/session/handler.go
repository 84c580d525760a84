package session

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"fishingchat/internal/game"
	"fishingchat/internal/metrics"
	"fishingchat/internal/network"
	"fishingchat/internal/session/message"
	"fishingchat/internal/store"
)

// CommandHandlerFunc define a assinatura das funções que tratam cada tipo de evento.
type CommandHandlerFunc func(h *ChatHandler, p network.Peer, msg network.Message)

// ChatLog guarda as linhas da sala. Implementado por chatlog.Writer.
type ChatLog interface {
	Append(room, line string) error
}

// Options reúne as dependências do ChatHandler. State e Catalog são obrigatórios.
type Options struct {
	State   *store.State
	Catalog *game.Catalog
	Rand    game.Rand
	ChatLog ChatLog
	Sink    Sink
	Metrics *metrics.Metrics
	Log     *zap.Logger
	// Clock devolve a hora usada nos textos. Padrão: time.Now.
	Clock func() time.Time
	// Context das gravações no store. Padrão: context.Background().
	Context context.Context
}

// ChatHandler implementa network.EventHandler: a máquina de estados
// Connected -> Joined -> Closed de cada conexão.
//
// Todos os métodos rodam na goroutine do Hub, então Registry e State nunca
// são alterados em paralelo.
type ChatHandler struct {
	registry    *Registry
	broadcaster *Broadcaster
	state       *store.State
	catalog     *game.Catalog
	rand        game.Rand
	chatlog     ChatLog
	metrics     *metrics.Metrics
	log         *zap.Logger
	clock       func() time.Time
	ctx         context.Context

	router map[string]CommandHandlerFunc
}

func NewChatHandler(opts Options) *ChatHandler {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Rand == nil {
		opts.Rand = game.NewRand()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}

	notice, err := network.Encode(message.CreateChat(message.EvictionText))
	if err != nil {
		// Texto constante; falhar aqui é erro de programação.
		panic(fmt.Sprintf("encode eviction notice: %v", err))
	}
	registry := NewRegistry(notice)

	h := &ChatHandler{
		registry:    registry,
		broadcaster: NewBroadcaster(registry, opts.Sink, opts.Metrics, log.Named("broadcast")),
		state:       opts.State,
		catalog:     opts.Catalog,
		rand:        opts.Rand,
		chatlog:     opts.ChatLog,
		metrics:     opts.Metrics,
		log:         log,
		clock:       opts.Clock,
		ctx:         opts.Context,
		router:      make(map[string]CommandHandlerFunc),
	}
	h.registerHandlers()
	return h
}

// Registry só deve ser lido de dentro do Hub (Hub.Do).
func (h *ChatHandler) Registry() *Registry { return h.registry }

// --- Implementação da Interface network.EventHandler ---

func (h *ChatHandler) OnConnect(p network.Peer) {
	h.metrics.ConnectionOpened()
	h.log.Debug("connection opened", zap.String("conn", p.ID()), zap.String("remote", p.RemoteAddr()))
	message.Send(p, message.CreateRequestNickname())
}

func (h *ChatHandler) OnDisconnect(p network.Peer) {
	h.metrics.ConnectionClosed()
	// Conexões expulsas já saíram do registro: nada de aviso duplicado.
	s, ok := h.registry.Remove(p)
	if !ok {
		return
	}
	h.metrics.SetSessions(h.registry.Len())
	h.log.Info("session closed",
		zap.String("identity", s.Identity),
		zap.String("nickname", s.Nickname),
		zap.String("room", s.Room),
	)
	h.broadcaster.Broadcast(s.Room, message.CreateChat(message.LeaveText(h.stamp(), s.Nickname)))
}

// OnMessage despacha pelo tipo do evento.
func (h *ChatHandler) OnMessage(p network.Peer, msg network.Message) {
	// Frame lido antes de uma expulsão: a conexão já foi substituída.
	if p.Closed() {
		h.drop(p, "closed", zap.String("type", msg.Type))
		return
	}
	handler, found := h.router[msg.Type]
	if !found {
		h.drop(p, "unknown_type", zap.String("type", msg.Type))
		return
	}
	h.metrics.Event(msg.Type)
	handler(h, p, msg)
}

func (h *ChatHandler) stamp() string {
	return message.Stamp(h.clock())
}

func (h *ChatHandler) drop(p network.Peer, reason string, fields ...zap.Field) {
	h.metrics.Dropped(reason)
	fields = append([]zap.Field{zap.String("conn", p.ID()), zap.String("reason", reason)}, fields...)
	h.log.Debug("event dropped", fields...)
}

func (h *ChatHandler) appendLog(room, line string) {
	if h.chatlog == nil {
		return
	}
	if err := h.chatlog.Append(room, line); err != nil {
		h.log.Warn("chat log append failed", zap.String("room", room), zap.Error(err))
	}
}

// IdentityOf extrai a identidade do endereço remoto: o host, sem a porta.
func IdentityOf(remoteAddr string) store.Identity {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
