// cmd/server/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"fishingchat/internal/chatlog"
	"fishingchat/internal/config"
	"fishingchat/internal/game"
	"fishingchat/internal/logging"
	"fishingchat/internal/metrics"
	"fishingchat/internal/network"
	"fishingchat/internal/services/cluster"
	"fishingchat/internal/services/relay"
	"fishingchat/internal/session"
	"fishingchat/internal/store"
	"fishingchat/internal/store/driver"
	"fishingchat/internal/store/s3store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. CARREGA A CONFIGURAÇÃO
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer log.Sync()
	log.Info("[Main] config loaded",
		zap.Int("port", cfg.Port),
		zap.String("store", cfg.StoreDriver),
		zap.String("consul", cfg.ConsulAddr),
		zap.String("nats", cfg.NATSURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. CATÁLOGO
	catalog := game.DefaultCatalog()
	if cfg.CatalogFile != "" {
		if catalog, err = game.LoadCatalog(cfg.CatalogFile); err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
	}
	log.Info("[Main] catalog ready", zap.Strings("items", catalog.Names()))

	m := metrics.New()

	// 3. CONSUL (opcional): usado pelo registro e, se escolhido, pelo store.
	var consulMgr *cluster.ConsulManager
	if cfg.ConsulAddr != "" {
		consulMgr, err = cluster.NewConsulManager(ctx, cfg.ConsulAddr, log)
		if err != nil {
			return fmt.Errorf("connect consul: %w", err)
		}
	}

	// 4. STORE
	backend, err := driver.Open(ctx, driver.Options{
		Driver:       store.Driver(cfg.StoreDriver),
		Path:         cfg.StorePath,
		DSN:          cfg.StoreDSN,
		ConsulAddrs:  cfg.ConsulAddr,
		ConsulPrefix: cfg.ConsulKVPrefix,
		Consul:       consulMgr,
		S3: s3store.Config{
			Bucket:    cfg.S3Bucket,
			Key:       cfg.S3Key,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		},
		Log: log.Named("store"),
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	// Falha de leitura não derruba o processo: o estado começa vazio.
	state := store.NewState(ctx, backend, catalog, log.Named("state"), cfg.StoreTimeout)
	if err := state.LoadErr(); err != nil {
		m.StoreError(err)
	}
	defer state.Close()
	state.OnPersistError = m.StoreError

	// 5. RELAY (opcional)
	var sink session.Sink
	var publisher *relay.Publisher
	if cfg.NATSURL != "" {
		publisher, err = relay.Connect(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.ServiceName, log.Named("relay"))
		if err != nil {
			return err
		}
		defer publisher.Close()
		sink = publisher
	}

	// 6. LÓGICA DO CHAT E REDE
	handler := session.NewChatHandler(session.Options{
		State:   state,
		Catalog: catalog,
		ChatLog: chatlog.New(cfg.ChatLogDir),
		Sink:    sink,
		Metrics: m,
		Log:     log.Named("session"),
		Context: ctx,
	})
	server := network.NewServer(handler, network.ServerOptions{
		RatePerSec: cfg.RateLimitPerSec,
		Burst:      cfg.RateLimitBurst,
		Log:        log.Named("network"),
	})

	// 7. HANDLERS HTTP
	health := cluster.NewHealthAggregator(2 * time.Second)
	health.AddCheck("store", state.Ping)
	if publisher != nil {
		health.AddCheck("relay", publisher.Check)
	}
	if consulMgr != nil {
		health.AddCheck("consul", consulMgr.Ping)
	}
	server.Handle("/health", health.Handler())
	server.Handle("/metrics", m.Handler())
	server.Handle("GET /rooms", roomsHandler(server.Hub(), handler))
	server.Handle("GET /players/{id}", playerHandler(state))
	log.Info("[Main] http handlers registered")

	// 8. REGISTRO NO CONSUL
	if consulMgr != nil {
		deregister, err := cluster.RegisterService(consulMgr.Client(), cluster.Registration{
			ServiceName: cfg.ServiceName,
			Port:        cfg.Port,
			HealthPath:  "/health",
			Tags:        []string{"websocket", "chat"},
		})
		if err != nil {
			return err
		}
		log.Info("[Main] registered in consul", zap.String("service", cfg.ServiceName))
		defer func() {
			if err := deregister(); err != nil {
				log.Warn("[Main] consul deregister failed", zap.Error(err))
			}
		}()
	}

	// 9. INICIA O SERVIDOR
	log.Info("[Main] chat server running", zap.String("addr", cfg.Addr()))
	if err := server.Listen(ctx, cfg.Addr()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	log.Info("[Main] shutdown complete")
	return nil
}

// roomsHandler lê o registro dentro da goroutine do Hub.
func roomsHandler(hub *network.Hub, h *session.ChatHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rooms map[string]int
		err := hub.Do(r.Context(), func() { rooms = h.Registry().Rooms() })
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, rooms)
	}
}

func playerHandler(state *store.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		rec, ok := state.Get(id)
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{
			"userId":    id,
			"inventory": rec.Inventory,
			"gold":      rec.Gold,
		})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
