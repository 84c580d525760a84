package network

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrHubStopped é retornado por Do quando o Hub já parou.
var ErrHubStopped = errors.New("hub stopped")

// clientMessage empacota uma mensagem com o cliente que a enviou.
type clientMessage struct {
	client *Client
	msg    Message
}

// Hub mantém o conjunto de clientes ativos e entrega os eventos ao handler.
//
// Tudo que o handler faz acontece dentro da goroutine de Run, um evento por
// vez. É essa disciplina que dispensa locks no registro de sessões e garante
// que a expulsão por identidade duplicada não tenha corrida.
type Hub struct {
	// Acessado SOMENTE pela goroutine do Hub.
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	incoming   chan clientMessage
	// calls executa funções arbitrárias na goroutine do Hub (leituras de admin).
	calls chan func()

	// fechado quando Run termina
	stopped chan struct{}

	handler EventHandler
	log     *zap.Logger
}

// NewHub cria, inicializa e retorna um novo Hub.
func NewHub(handler EventHandler, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		incoming:   make(chan clientMessage),
		calls:      make(chan func()),
		stopped:    make(chan struct{}),
		handler:    handler,
		log:        log,
	}
}

// Run processa eventos até o ctx ser cancelado. Ao sair, fecha todos os clientes.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				client.Close()
				h.handler.OnDisconnect(client)
			}
			h.clients = make(map[*Client]bool)
			h.log.Info("hub stopped")
			return

		case client := <-h.register:
			h.clients[client] = true
			h.log.Debug("client registered", zap.String("conn", client.ID()), zap.Int("clients", len(h.clients)))
			h.handler.OnConnect(client)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				h.log.Debug("client unregistered", zap.String("conn", client.ID()), zap.Int("clients", len(h.clients)))
				h.handler.OnDisconnect(client)
			}

		case cm := <-h.incoming:
			// O cliente pode ter sido desregistrado ou fechado (expulso) entre
			// a leitura e a entrega.
			if !h.clients[cm.client] || cm.client.Closed() {
				continue
			}
			h.handler.OnMessage(cm.client, cm.msg)

		case fn := <-h.calls:
			fn()
		}
	}
}

// Do executa fn na goroutine do Hub e espera terminar.
func (h *Hub) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case h.calls <- wrapped:
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// Len devolve o número de clientes conectados.
func (h *Hub) Len(ctx context.Context) (int, error) {
	var n int
	err := h.Do(ctx, func() { n = len(h.clients) })
	return n, err
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

func (h *Hub) deliver(cm clientMessage) bool {
	select {
	case h.incoming <- cm:
		return true
	case <-h.stopped:
		return false
	}
}
