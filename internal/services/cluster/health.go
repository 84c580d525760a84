package cluster

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// CheckFunc é uma verificação de saúde. Retorna erro se a dependência falhou.
type CheckFunc func(ctx context.Context) error

// HealthAggregator junta várias verificações atrás de um único endpoint.
type HealthAggregator struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	timeout time.Duration
}

// NewHealthAggregator cria um agregador; cada check roda com o timeout dado.
func NewHealthAggregator(timeout time.Duration) *HealthAggregator {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthAggregator{
		checks:  make(map[string]CheckFunc),
		timeout: timeout,
	}
}

// AddCheck registra uma nova verificação.
func (h *HealthAggregator) AddCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Run executa todas as verificações e devolve os erros por nome.
func (h *HealthAggregator) Run(ctx context.Context) map[string]string {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checks := make(map[string]CheckFunc, len(h.checks))
	for k, v := range h.checks {
		checks[k] = v
	}
	h.mu.RUnlock()
	sort.Strings(names)

	failures := make(map[string]string)
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, h.timeout)
		err := checks[name](cctx)
		cancel()
		if err != nil {
			failures[name] = err.Error()
		}
	}
	return failures
}

// Handler devolve 200 se tudo passou e 503 com os erros caso contrário.
func (h *HealthAggregator) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		failures := h.Run(r.Context())

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if len(failures) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(failures)
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}
}
