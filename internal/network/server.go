package network

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// upgrader armazena as configurações para promover uma conexão HTTP para WebSocket.
var upgrader = websocket.Upgrader{
	// Qualquer origem: o chat não tem autenticação além do endereço de rede.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ServerOptions configura o limite de taxa de entrada por conexão.
type ServerOptions struct {
	// RatePerSec <= 0 desliga o limite.
	RatePerSec float64
	Burst      int
	Log        *zap.Logger
}

// Server junta o Hub, o upgrade WebSocket e as rotas HTTP auxiliares.
type Server struct {
	hub  *Hub
	mux  *http.ServeMux
	opts ServerOptions
	log  *zap.Logger
}

// NewServer aceita o EventHandler que vai receber os eventos do Hub.
// Este é o ponto de injeção da lógica do chat.
func NewServer(handler EventHandler, opts ServerOptions) *Server {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		hub:  NewHub(handler, log.Named("hub")),
		mux:  http.NewServeMux(),
		opts: opts,
		log:  log,
	}
	s.mux.HandleFunc("/ws", s.wsHandler)
	// Clientes antigos conectam direto na raiz.
	s.mux.HandleFunc("/", s.rootHandler)
	return s
}

// Hub expõe o Hub para quem precisa rodar código na goroutine dele.
func (s *Server) Hub() *Hub { return s.hub }

// Handle registra uma rota HTTP extra (health, métricas, admin).
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// ServeHTTP permite usar o Server direto em httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" && websocket.IsWebSocketUpgrade(r) {
		s.wsHandler(w, r)
		return
	}
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("chat server running"))
}

// wsHandler promove a requisição para WebSocket e inicia as goroutines do cliente.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// O upgrader já respondeu com o erro HTTP.
		s.log.Debug("upgrade failed", zap.Error(err))
		return
	}

	var limiter *rate.Limiter
	if s.opts.RatePerSec > 0 {
		burst := s.opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(s.opts.RatePerSec), burst)
	}

	client := newClient(conn, s.hub, conn.RemoteAddr().String(), limiter, s.log.Named("client"))

	// O writeLoop sobe antes do registro: o OnConnect já enfileira o
	// request_nickname.
	go client.writeLoop()
	if !client.hub.join(client) {
		client.Close()
		return
	}
	go client.readLoop()
}

// Start sobe só a goroutine do Hub. Útil em testes com httptest.
func (s *Server) Start(ctx context.Context) {
	go s.hub.Run(ctx)
}

// Listen inicia o Hub e o servidor HTTP, e bloqueia até o ctx ser cancelado
// ou o servidor falhar.
func (s *Server) Listen(ctx context.Context, addr string) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	s.Start(hubCtx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("websocket server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Fecha as conexões WebSocket pelo Hub antes de esperar o Shutdown,
	// que não acompanha conexões sequestradas.
	stopHub()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
