package session

import (
	"go.uber.org/zap"

	"fishingchat/internal/metrics"
	"fishingchat/internal/network"
)

// Sink recebe uma cópia de cada evento de sala (ex: relay NATS).
type Sink interface {
	Publish(room string, data []byte) error
}

// Broadcaster entrega eventos para todos da sala.
type Broadcaster struct {
	registry *Registry
	sink     Sink
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewBroadcaster(registry *Registry, sink Sink, m *metrics.Metrics, log *zap.Logger) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{registry: registry, sink: sink, metrics: m, log: log}
}

// Broadcast serializa o evento uma vez e enfileira para cada membro da sala.
// Conexões fechadas ou com buffer cheio são puladas, não removidas: remover é
// trabalho do OnDisconnect. Devolve quantos membros receberam.
func (b *Broadcaster) Broadcast(room string, event any) int {
	data, err := network.Encode(event)
	if err != nil {
		b.log.Error("encode broadcast", zap.String("room", room), zap.Error(err))
		return 0
	}

	delivered, skipped := 0, 0
	for _, s := range b.registry.InRoom(room) {
		if s.Peer.Send(data) {
			delivered++
		} else {
			skipped++
		}
	}
	b.metrics.Broadcast(delivered, skipped)

	if b.sink != nil {
		if err := b.sink.Publish(room, data); err != nil {
			b.metrics.RelayError()
			b.log.Warn("relay publish failed", zap.String("room", room), zap.Error(err))
		}
	}
	return delivered
}
