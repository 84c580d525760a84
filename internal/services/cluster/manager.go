package cluster

import (
	"context"
	"sync"
	"time"

	consul "github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

// ConsulManager mantém um cliente Consul funcional, trocando de nó quando o
// atual para de responder. O backend de KV e o registro usam o mesmo manager.
type ConsulManager struct {
	addrs  string
	log    *zap.Logger
	mu     sync.RWMutex
	client *consul.Client
}

// NewConsulManager conecta no primeiro nó saudável e inicia o monitor, que
// roda até o ctx ser cancelado.
func NewConsulManager(ctx context.Context, addrs string, log *zap.Logger) (*ConsulManager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	m := &ConsulManager{addrs: addrs, log: log.Named("consul")}
	if err := m.reconnect(); err != nil {
		return nil, err
	}
	go m.monitor(ctx, 10*time.Second)
	return m, nil
}

// Client retorna o cliente atual.
func (m *ConsulManager) Client() *consul.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// Ping verifica se o nó atual ainda enxerga um líder.
func (m *ConsulManager) Ping(ctx context.Context) error {
	_, err := m.Client().Status().LeaderWithQueryOptions((&consul.QueryOptions{}).WithContext(ctx))
	return err
}

func (m *ConsulManager) reconnect() error {
	client, err := NewConsulClient(m.addrs, m.log)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.client = client
	m.mu.Unlock()
	return nil
}

// monitor verifica periodicamente a conexão e tenta outros nós se necessário.
func (m *ConsulManager) monitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Client().Status().Leader(); err != nil {
				m.log.Warn("consul health check failed, trying other nodes", zap.Error(err))
				if err := m.reconnect(); err != nil {
					m.log.Error("consul reconnect failed", zap.Error(err))
				}
			}
		}
	}
}
