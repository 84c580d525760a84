package network

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// Tempo para aguardar por uma escrita na conexão.
	writeWait = 10 * time.Second

	// Tempo máximo para aguardar por uma resposta de pong do cliente.
	pongWait = 60 * time.Second

	// Frequência com que enviamos pings para o cliente. Deve ser menor que pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Tamanho do buffer de saída por cliente.
	sendBuffer = 256
)

// Client é a representação de um participante conectado do ponto de vista do servidor.
type Client struct {
	id         string
	remoteAddr string

	conn *websocket.Conn
	hub  *Hub
	log  *zap.Logger

	// O Hub (via handler) coloca frames aqui, e a goroutine writeLoop os envia.
	// O canal nunca é fechado; o fim da conexão é sinalizado por done.
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once

	// limiter descarta frames de entrada acima da taxa configurada. nil = sem limite.
	limiter *rate.Limiter
}

func newClient(conn *websocket.Conn, hub *Hub, remoteAddr string, limiter *rate.Limiter, log *zap.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:         id,
		remoteAddr: remoteAddr,
		conn:       conn,
		hub:        hub,
		log:        log.With(zap.String("conn", id), zap.String("remote", remoteAddr)),
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		limiter:    limiter,
	}
}

func (c *Client) ID() string         { return c.id }
func (c *Client) RemoteAddr() string { return c.remoteAddr }

// Send enfileira um frame sem bloquear o Hub.
func (c *Client) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		c.log.Warn("send buffer full, dropping frame")
		return false
	}
}

// Close sinaliza o writeLoop para esvaziar a fila, mandar o frame de
// fechamento e encerrar a conexão.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Closed informa se Close já foi chamado.
func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) readLoop() {
	// Garante que a limpeza ocorrerá quando o loop terminar.
	defer func() {
		c.hub.leave(c)
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	// O pong atualiza o read deadline, mantendo a conexão viva.
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Info("unexpected close", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if c.limiter != nil && !c.limiter.Allow() {
			c.log.Debug("rate limit exceeded, dropping frame")
			continue
		}

		// Frame malformado: descarta e segue com a conexão aberta.
		msg, err := DecodeMessage(data)
		if err != nil {
			c.log.Debug("dropping malformed frame", zap.Error(err))
			continue
		}

		if !c.hub.deliver(clientMessage{client: c, msg: msg}) {
			return
		}
	}
}

// writeLoop bombeia frames do canal send para a conexão WebSocket.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			if err := c.write(data); err != nil {
				c.log.Debug("write failed", zap.Error(err))
				c.Close()
				return
			}

		case <-c.done:
			// Entrega o que já estava na fila (ex: aviso de expulsão) antes de fechar.
			c.flush()
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return // Se o ping falhar, a conexão está morta.
			}
		}
	}
}

func (c *Client) flush() {
	for {
		select {
		case data := <-c.send:
			if err := c.write(data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}
