package message

import (
	"fmt"
	"time"

	"fishingchat/internal/network"
)

// TimeLayout é o formato do carimbo de hora nos textos da sala.
const TimeLayout = "15:04:05"

// EvictionText vai para a conexão antiga quando a mesma identidade entra de outro lugar.
const EvictionText = "⚠️ You were disconnected because the same user connected from another location."

// Stamp formata a hora local no padrão dos textos.
func Stamp(t time.Time) string {
	return t.Format(TimeLayout)
}

func JoinText(stamp, nickname string) string {
	return fmt.Sprintf("[%s] 💬 %s joined.", stamp, nickname)
}

func LeaveText(stamp, nickname string) string {
	return fmt.Sprintf("[%s] ❌ %s left.", stamp, nickname)
}

func CatchText(stamp, nickname, item string) string {
	return fmt.Sprintf("[%s] 🎣 %s caught '%s'!", stamp, nickname, item)
}

func SellText(stamp, nickname string, earned int64) string {
	return fmt.Sprintf("[%s] 💰 %s earned %d gold!", stamp, nickname, earned)
}

func ChatText(stamp, nickname, text string) string {
	return fmt.Sprintf("[%s] %s: %s", stamp, nickname, text)
}

// Send serializa v e enfileira para um único peer.
func Send(p network.Peer, v any) bool {
	data, err := network.Encode(v)
	if err != nil {
		return false
	}
	return p.Send(data)
}
