package session

import (
	"strings"

	"go.uber.org/zap"

	"fishingchat/internal/game"
	"fishingchat/internal/network"
	"fishingchat/internal/session/message"
)

func (h *ChatHandler) registerHandlers() {
	h.router[message.TypeJoin] = handleJoin
	h.router[message.TypeMessage] = handleMessage
	h.router[message.TypeRequestUserInfo] = handleRequestUserInfo
}

func handleJoin(h *ChatHandler, p network.Peer, msg network.Message) {
	if _, joined := h.registry.Lookup(p); joined {
		h.drop(p, "already_joined")
		return
	}
	var req message.JoinRequest
	if err := msg.Decode(&req); err != nil {
		h.drop(p, "bad_payload", zap.Error(err))
		return
	}
	nickname := strings.TrimSpace(req.Nickname)
	room := strings.TrimSpace(req.Room)
	if nickname == "" || room == "" {
		h.drop(p, "empty_join")
		return
	}

	id := IdentityOf(p.RemoteAddr())
	s, evicted := h.registry.Register(p, id, nickname, room, h.clock())
	if evicted != nil {
		h.metrics.Eviction()
		h.log.Info("evicted previous connection",
			zap.String("identity", id),
			zap.String("conn", evicted.ID()),
		)
	}
	h.metrics.SetSessions(h.registry.Len())

	if h.state.Ensure(h.ctx, id) {
		h.log.Info("new identity", zap.String("identity", id))
	}

	h.log.Info("session joined",
		zap.String("identity", id),
		zap.String("nickname", s.Nickname),
		zap.String("room", s.Room),
	)
	h.broadcaster.Broadcast(s.Room, message.CreateJoinNotice(message.JoinText(h.stamp(), s.Nickname), id, s.Nickname))
}

func handleMessage(h *ChatHandler, p network.Peer, msg network.Message) {
	s, ok := h.registry.Lookup(p)
	if !ok {
		h.drop(p, "not_joined")
		return
	}
	var req message.ChatRequest
	if err := msg.Decode(&req); err != nil {
		h.drop(p, "bad_payload", zap.Error(err))
		return
	}
	text := strings.TrimSpace(req.Text)
	stamp := h.stamp()

	switch game.ParseCommand(text) {
	case game.CommandCatch:
		item := h.catalog.Draw(h.rand)
		h.state.AddItem(h.ctx, s.Identity, item.Name)
		h.metrics.Catch(item.Name)
		h.say(s.Room, message.CatchText(stamp, s.Nickname, item.Name), true)

	case game.CommandSell:
		earned, _ := h.state.SellAll(h.ctx, s.Identity)
		h.metrics.GoldEarned(earned)
		h.say(s.Room, message.SellText(stamp, s.Nickname, earned), true)

	case game.CommandInventory:
		rec, _ := h.state.Get(s.Identity)
		h.say(s.Room, h.catalog.Summarize(stamp, s.Nickname, rec.Inventory, rec.Gold), false)

	default:
		h.say(s.Room, message.ChatText(stamp, s.Nickname, text), true)
	}
}

// say grava a linha no log da sala (se pedido) e faz o broadcast.
func (h *ChatHandler) say(room, text string, logged bool) {
	if logged {
		h.appendLog(room, text)
	}
	h.broadcaster.Broadcast(room, message.CreateChat(text))
}

// handleRequestUserInfo vale em qualquer estado e não cria registros.
func handleRequestUserInfo(h *ChatHandler, p network.Peer, msg network.Message) {
	var req message.UserInfoRequest
	if err := msg.Decode(&req); err != nil {
		h.drop(p, "bad_payload", zap.Error(err))
		return
	}
	rec, _ := h.state.Get(req.TargetUserID)
	message.Send(p, message.CreateUserInfo(req.TargetUserID, rec.Inventory, rec.Gold))
}
