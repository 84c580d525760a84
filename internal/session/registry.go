package session

import (
	"time"

	"fishingchat/internal/network"
	"fishingchat/internal/store"
)

// Session liga uma conexão a uma identidade, um apelido e uma sala.
// A sala é definida no join e não muda mais.
type Session struct {
	Peer     network.Peer
	Identity store.Identity
	Nickname string
	Room     string
	JoinedAt time.Time
}

// Registry guarda as sessões ativas por conexão e por identidade.
//
// Não tem mutex: é acessado SOMENTE pela goroutine do Hub (handler) ou via
// Hub.Do. No máximo uma sessão por identidade existe a qualquer momento.
type Registry struct {
	byPeer     map[network.Peer]*Session
	byIdentity map[store.Identity]*Session

	// frame enviado à conexão expulsa antes de fechá-la
	evictNotice []byte
}

func NewRegistry(evictNotice []byte) *Registry {
	return &Registry{
		byPeer:      make(map[network.Peer]*Session),
		byIdentity:  make(map[store.Identity]*Session),
		evictNotice: evictNotice,
	}
}

// Register cria a sessão de peer. Se outra conexão já tem a identidade, ela é
// removida do registro, recebe o aviso de expulsão e é fechada antes da nova
// sessão entrar. Devolve a sessão nova e o peer expulso (ou nil).
func (r *Registry) Register(peer network.Peer, id store.Identity, nickname, room string, now time.Time) (*Session, network.Peer) {
	var evicted network.Peer
	if old, ok := r.byIdentity[id]; ok && old.Peer != peer {
		r.remove(old)
		if len(r.evictNotice) > 0 {
			old.Peer.Send(r.evictNotice)
		}
		old.Peer.Close()
		evicted = old.Peer
	}
	// Mesmo peer com sessão antiga (não deveria acontecer, o handler barra).
	if prev, ok := r.byPeer[peer]; ok {
		r.remove(prev)
	}

	s := &Session{
		Peer:     peer,
		Identity: id,
		Nickname: nickname,
		Room:     room,
		JoinedAt: now,
	}
	r.byPeer[peer] = s
	r.byIdentity[id] = s
	return s, evicted
}

// Lookup devolve a sessão da conexão, se ela já fez join.
func (r *Registry) Lookup(peer network.Peer) (*Session, bool) {
	s, ok := r.byPeer[peer]
	return s, ok
}

// Remove tira a sessão da conexão. Chamar de novo devolve false.
func (r *Registry) Remove(peer network.Peer) (*Session, bool) {
	s, ok := r.byPeer[peer]
	if !ok {
		return nil, false
	}
	r.remove(s)
	return s, true
}

func (r *Registry) remove(s *Session) {
	delete(r.byPeer, s.Peer)
	if cur, ok := r.byIdentity[s.Identity]; ok && cur == s {
		delete(r.byIdentity, s.Identity)
	}
}

// ByIdentity devolve a sessão viva da identidade.
func (r *Registry) ByIdentity(id store.Identity) (*Session, bool) {
	s, ok := r.byIdentity[id]
	return s, ok
}

// InRoom lista as sessões de uma sala, sem ordem definida.
func (r *Registry) InRoom(room string) []*Session {
	var out []*Session
	for _, s := range r.byPeer {
		if s.Room == room {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) Len() int { return len(r.byPeer) }

// Rooms conta os membros de cada sala.
func (r *Registry) Rooms() map[string]int {
	out := make(map[string]int)
	for _, s := range r.byPeer {
		out[s.Room]++
	}
	return out
}
