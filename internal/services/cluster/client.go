package cluster

import (
	"fmt"
	"strings"

	consul "github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

// NewConsulClient cria um cliente Consul tentando cada endereço da lista
// (separada por vírgula) até achar um agente que responda com um líder.
func NewConsulClient(addrs string, log *zap.Logger) (*consul.Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	for _, node := range strings.Split(addrs, ",") {
		node = strings.TrimSpace(node)
		if node == "" {
			continue
		}
		cfg := consul.DefaultConfig()
		cfg.Address = node

		client, err := consul.NewClient(cfg)
		if err != nil {
			log.Warn("consul client creation failed", zap.String("node", node), zap.Error(err))
			continue
		}

		// Teste rápido de saúde
		if _, err := client.Status().Leader(); err != nil {
			log.Warn("consul node did not answer leader check", zap.String("node", node), zap.Error(err))
			continue
		}

		log.Info("connected to consul", zap.String("node", node))
		return client, nil
	}

	return nil, fmt.Errorf("no consul node available in %q", addrs)
}
