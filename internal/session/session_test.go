package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"fishingchat/internal/game"
	"fishingchat/internal/network"
	"fishingchat/internal/session/message"
	"fishingchat/internal/store"
)

// fakePeer grava os frames recebidos em vez de mandar para a rede.
type fakePeer struct {
	id   string
	addr string

	mu     sync.Mutex
	frames [][]byte
	closed bool
	full   bool
}

func newPeer(id, addr string) *fakePeer { return &fakePeer{id: id, addr: addr} }

func (p *fakePeer) ID() string         { return p.id }
func (p *fakePeer) RemoteAddr() string { return p.addr }

func (p *fakePeer) Send(data []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.full {
		return false
	}
	p.frames = append(p.frames, data)
	return true
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *fakePeer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// events decodifica todos os frames recebidos.
func (p *fakePeer) events(t *testing.T) []map[string]any {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]map[string]any, 0, len(p.frames))
	for _, f := range p.frames {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err != nil {
			t.Fatalf("bad frame %s: %v", f, err)
		}
		out = append(out, m)
	}
	return out
}

func (p *fakePeer) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = nil
}

// texts devolve os campos "text" dos eventos do tipo pedido.
func (p *fakePeer) texts(t *testing.T, kind string) []string {
	t.Helper()
	var out []string
	for _, ev := range p.events(t) {
		if ev["type"] == kind {
			out = append(out, ev["text"].(string))
		}
	}
	return out
}

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

type memLog struct {
	lines map[string][]string
}

func (l *memLog) Append(room, line string) error {
	if l.lines == nil {
		l.lines = make(map[string][]string)
	}
	l.lines[room] = append(l.lines[room], line)
	return nil
}

type fixture struct {
	h       *ChatHandler
	state   *store.State
	backend *store.MemoryBackend
	log     *memLog
}

func newFixture(t *testing.T, u float64, seed map[store.Identity]store.Record) *fixture {
	t.Helper()
	ctx := context.Background()
	backend := store.NewMemoryBackend()
	for id, rec := range seed {
		if err := backend.Upsert(ctx, id, rec); err != nil {
			t.Fatal(err)
		}
	}
	catalog := game.DefaultCatalog()
	state := store.NewState(ctx, backend, catalog, nil, time.Second)
	if err := state.LoadErr(); err != nil {
		t.Fatalf("NewState: %v", err)
	}
	chatLog := &memLog{}
	h := NewChatHandler(Options{
		State:   state,
		Catalog: catalog,
		Rand:    fixedRand(u),
		ChatLog: chatLog,
		Clock:   func() time.Time { return time.Date(2024, 1, 1, 12, 30, 45, 0, time.Local) },
	})
	return &fixture{h: h, state: state, backend: backend, log: chatLog}
}

func frame(t *testing.T, v any) network.Message {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	msg, err := network.DecodeMessage(data)
	if err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}

func (f *fixture) join(t *testing.T, p *fakePeer, nickname, room string) {
	t.Helper()
	f.h.OnConnect(p)
	f.h.OnMessage(p, frame(t, map[string]string{"type": "join", "nickname": nickname, "room": room}))
}

func (f *fixture) say(t *testing.T, p *fakePeer, text string) {
	t.Helper()
	f.h.OnMessage(p, frame(t, map[string]string{"type": "message", "text": text}))
}

func TestConnectRequestsNickname(t *testing.T) {
	f := newFixture(t, 0, nil)
	p := newPeer("c1", "10.0.0.1:5000")
	f.h.OnConnect(p)
	evs := p.events(t)
	if len(evs) != 1 || evs[0]["type"] != "request_nickname" {
		t.Fatalf("events = %v", evs)
	}
}

func TestJoinBroadcastsAndCreatesRecord(t *testing.T) {
	f := newFixture(t, 0, nil)
	alice := newPeer("c1", "10.0.0.1:5000")
	bob := newPeer("c2", "10.0.0.2:5000")
	other := newPeer("c3", "10.0.0.3:5000")
	f.join(t, alice, "Alice", "lobby")
	f.join(t, other, "Carol", "elsewhere")
	alice.reset()
	f.join(t, bob, "Bob", "lobby")

	var join map[string]any
	for _, ev := range alice.events(t) {
		if ev["type"] == "join" {
			join = ev
		}
	}
	if join == nil {
		t.Fatal("alice did not receive bob's join notice")
	}
	if join["userId"] != "10.0.0.2" || join["nickname"] != "Bob" {
		t.Fatalf("join = %v", join)
	}
	if join["text"] != "[12:30:45] 💬 Bob joined." {
		t.Fatalf("join text = %q", join["text"])
	}
	for _, ev := range other.events(t) {
		if ev["nickname"] == "Bob" {
			t.Fatal("join leaked to another room")
		}
	}

	if _, ok := f.state.Get("10.0.0.2"); !ok {
		t.Fatal("join must create the record")
	}
	if _, ok := f.backend.Document().Inventories["10.0.0.2"]; !ok {
		t.Fatal("new record must be persisted on first join")
	}
	if len(f.log.lines) != 0 {
		t.Fatalf("join must not be logged: %v", f.log.lines)
	}
}

func TestScenarioCatch(t *testing.T) {
	f := newFixture(t, 0.1, nil)
	alice := newPeer("c1", "10.0.0.1:5000")
	f.join(t, alice, "Alice", "lobby")
	alice.reset()

	f.say(t, alice, "  catch  ")

	chats := alice.texts(t, "chat")
	if len(chats) != 1 {
		t.Fatalf("chats = %v", chats)
	}
	if !strings.Contains(chats[0], "Alice") || !strings.Contains(chats[0], "mackerel") {
		t.Fatalf("catch text = %q", chats[0])
	}
	rec, _ := f.state.Get("10.0.0.1")
	if rec.Inventory["mackerel"] != 1 {
		t.Fatalf("inventory = %v", rec.Inventory)
	}
	if got := f.backend.Document().Inventories["10.0.0.1"]["mackerel"]; got != 1 {
		t.Fatalf("persisted mackerel = %d", got)
	}
	if lines := f.log.lines["lobby"]; len(lines) != 1 || lines[0] != chats[0] {
		t.Fatalf("log = %v", lines)
	}
}

func TestCatchKoreanAlias(t *testing.T) {
	f := newFixture(t, 0.75, nil)
	alice := newPeer("c1", "10.0.0.1:5000")
	f.join(t, alice, "Alice", "lobby")
	f.say(t, alice, "낚시하기")
	rec, _ := f.state.Get("10.0.0.1")
	if rec.Inventory["octopus"] != 1 {
		t.Fatalf("inventory = %v", rec.Inventory)
	}
}

func TestScenarioSell(t *testing.T) {
	seed := map[store.Identity]store.Record{
		"10.0.0.1": {Inventory: game.Inventory{"mackerel": 2}, Gold: 5},
	}
	f := newFixture(t, 0, seed)
	alice := newPeer("c1", "10.0.0.1:5000")
	f.join(t, alice, "Alice", "lobby")
	alice.reset()

	f.say(t, alice, "sell")

	chats := alice.texts(t, "chat")
	if len(chats) != 1 || chats[0] != "[12:30:45] 💰 Alice earned 20 gold!" {
		t.Fatalf("chats = %v", chats)
	}
	rec, _ := f.state.Get("10.0.0.1")
	if rec.Gold != 25 || rec.Inventory["mackerel"] != 0 {
		t.Fatalf("record = %+v", rec)
	}
	doc := f.backend.Document()
	if doc.UserGold["10.0.0.1"] != 25 {
		t.Fatalf("persisted gold = %d", doc.UserGold["10.0.0.1"])
	}
}

func TestInventoryIsBroadcastButNotLogged(t *testing.T) {
	seed := map[store.Identity]store.Record{
		"10.0.0.1": {Inventory: game.Inventory{"octopus": 3}, Gold: 7},
	}
	f := newFixture(t, 0, seed)
	alice := newPeer("c1", "10.0.0.1:5000")
	f.join(t, alice, "Alice", "lobby")
	before := f.backend.UpsertCount()
	alice.reset()

	f.say(t, alice, "inventory")

	chats := alice.texts(t, "chat")
	want := "[12:30:45] 📦 Alice's inventory:\n" +
		" - mackerel: 0\n - anchovy: 0\n - octopus: 3\n - webfoot octopus: 0\n" +
		" - 💰 Gold: 7G"
	if len(chats) != 1 || chats[0] != want {
		t.Fatalf("chats = %q", chats)
	}
	if f.backend.UpsertCount() != before {
		t.Fatal("inventory must not persist")
	}
	if len(f.log.lines["lobby"]) != 0 {
		t.Fatal("inventory must not be logged")
	}
}

func TestPlainChat(t *testing.T) {
	f := newFixture(t, 0, nil)
	alice := newPeer("c1", "10.0.0.1:5000")
	f.join(t, alice, "Alice", "lobby")
	alice.reset()

	f.say(t, alice, " hello there ")
	chats := alice.texts(t, "chat")
	if len(chats) != 1 || chats[0] != "[12:30:45] Alice: hello there" {
		t.Fatalf("chats = %q", chats)
	}
	if f.log.lines["lobby"][0] != chats[0] {
		t.Fatalf("log = %v", f.log.lines)
	}
}

func TestScenarioEviction(t *testing.T) {
	f := newFixture(t, 0, nil)
	first := newPeer("c1", "10.0.0.1:5000")
	second := newPeer("c2", "10.0.0.1:6000")
	f.join(t, first, "Alice", "lobby")
	first.reset()

	f.join(t, second, "Alice2", "lobby")

	if !first.Closed() {
		t.Fatal("first connection must be closed")
	}
	chats := first.texts(t, "chat")
	if len(chats) != 1 || chats[0] != message.EvictionText {
		t.Fatalf("first got %v", chats)
	}
	if _, ok := f.h.Registry().Lookup(first); ok {
		t.Fatal("first must be gone from the registry")
	}
	if s, ok := f.h.Registry().ByIdentity("10.0.0.1"); !ok || s.Peer != second {
		t.Fatal("second must own the identity")
	}

	// A desconexão da conexão expulsa não gera aviso de saída.
	second.reset()
	f.h.OnDisconnect(first)
	if got := second.texts(t, "chat"); len(got) != 0 {
		t.Fatalf("duplicate departure notice: %v", got)
	}

	f.say(t, second, "still here")
	if got := second.texts(t, "chat"); len(got) != 1 {
		t.Fatalf("second must keep receiving broadcasts: %v", got)
	}
}

// Um join já lido pela conexão expulsa não pode tomar a identidade de volta.
func TestEvictedPeerCannotRejoin(t *testing.T) {
	f := newFixture(t, 0, nil)
	first := newPeer("c1", "10.0.0.1:5000")
	second := newPeer("c2", "10.0.0.1:6000")
	f.join(t, first, "Alice", "lobby")
	f.join(t, second, "Alice2", "lobby")
	second.reset()

	f.h.OnMessage(first, frame(t, map[string]string{"type": "join", "nickname": "Alice", "room": "lobby"}))
	f.say(t, first, "ghost")

	if second.Closed() {
		t.Fatal("second connection must survive a stale join")
	}
	if s, ok := f.h.Registry().ByIdentity("10.0.0.1"); !ok || s.Peer != second {
		t.Fatal("second must still own the identity")
	}
	if _, ok := f.h.Registry().Lookup(first); ok {
		t.Fatal("evicted connection must not be registered again")
	}
	if got := second.texts(t, "chat"); len(got) != 0 {
		t.Fatalf("second got %v", got)
	}
}

func TestScenarioMessageBeforeJoin(t *testing.T) {
	f := newFixture(t, 0, nil)
	watcher := newPeer("c1", "10.0.0.1:5000")
	f.join(t, watcher, "Watcher", "lobby")
	watcher.reset()

	stranger := newPeer("c2", "10.0.0.2:5000")
	f.h.OnConnect(stranger)
	f.say(t, stranger, "catch")
	f.say(t, stranger, "hi")

	if evs := watcher.events(t); len(evs) != 0 {
		t.Fatalf("broadcast before join: %v", evs)
	}
	if len(f.log.lines) != 0 {
		t.Fatalf("log written before join: %v", f.log.lines)
	}
	if _, ok := f.state.Get("10.0.0.2"); ok {
		t.Fatal("no record before join")
	}
}

func TestDisconnectBroadcastsOnce(t *testing.T) {
	f := newFixture(t, 0, nil)
	alice := newPeer("c1", "10.0.0.1:5000")
	bob := newPeer("c2", "10.0.0.2:5000")
	f.join(t, alice, "Alice", "lobby")
	f.join(t, bob, "Bob", "lobby")
	bob.reset()

	f.h.OnDisconnect(alice)
	f.h.OnDisconnect(alice)

	chats := bob.texts(t, "chat")
	if len(chats) != 1 || chats[0] != "[12:30:45] ❌ Alice left." {
		t.Fatalf("chats = %v", chats)
	}
}

func TestDisconnectBeforeJoinIsSilent(t *testing.T) {
	f := newFixture(t, 0, nil)
	bob := newPeer("c2", "10.0.0.2:5000")
	f.join(t, bob, "Bob", "lobby")
	bob.reset()

	p := newPeer("c1", "10.0.0.1:5000")
	f.h.OnConnect(p)
	f.h.OnDisconnect(p)
	if evs := bob.events(t); len(evs) != 0 {
		t.Fatalf("events = %v", evs)
	}
}

func TestJoinTwiceAndEmptyJoinAreDropped(t *testing.T) {
	f := newFixture(t, 0, nil)
	alice := newPeer("c1", "10.0.0.1:5000")
	f.join(t, alice, "Alice", "lobby")
	f.h.OnMessage(alice, frame(t, map[string]string{"type": "join", "nickname": "Other", "room": "games"}))

	s, _ := f.h.Registry().Lookup(alice)
	if s.Room != "lobby" || s.Nickname != "Alice" {
		t.Fatalf("session changed: %+v", s)
	}

	p := newPeer("c2", "10.0.0.2:5000")
	f.h.OnConnect(p)
	f.h.OnMessage(p, frame(t, map[string]string{"type": "join", "nickname": " ", "room": "lobby"}))
	if _, ok := f.h.Registry().Lookup(p); ok {
		t.Fatal("empty nickname must not join")
	}
}

func TestRequestUserInfo(t *testing.T) {
	seed := map[store.Identity]store.Record{
		"10.0.0.9": {Inventory: game.Inventory{"anchovy": 4}, Gold: 11},
	}
	f := newFixture(t, 0, seed)
	p := newPeer("c1", "10.0.0.1:5000")
	f.h.OnConnect(p)
	p.reset()

	// Vale antes do join.
	f.h.OnMessage(p, frame(t, map[string]string{"type": "requestUserInfo", "targetUserId": "10.0.0.9"}))
	f.h.OnMessage(p, frame(t, map[string]string{"type": "requestUserInfo", "targetUserId": "nobody"}))

	evs := p.events(t)
	if len(evs) != 2 {
		t.Fatalf("events = %v", evs)
	}
	known := evs[0]
	if known["type"] != "userInfo" || known["userId"] != "10.0.0.9" || known["gold"] != float64(11) {
		t.Fatalf("known = %v", known)
	}
	if inv := known["inventory"].(map[string]any); inv["anchovy"] != float64(4) {
		t.Fatalf("inventory = %v", inv)
	}
	unknown := evs[1]
	if inv, ok := unknown["inventory"].(map[string]any); !ok || len(inv) != 0 || unknown["gold"] != float64(0) {
		t.Fatalf("unknown = %v", unknown)
	}
	if _, ok := f.state.Get("nobody"); ok {
		t.Fatal("requestUserInfo must not create records")
	}
}

func TestUnknownTypeIsDropped(t *testing.T) {
	f := newFixture(t, 0, nil)
	p := newPeer("c1", "10.0.0.1:5000")
	f.join(t, p, "Alice", "lobby")
	p.reset()
	f.h.OnMessage(p, frame(t, map[string]string{"type": "dance"}))
	if evs := p.events(t); len(evs) != 0 {
		t.Fatalf("events = %v", evs)
	}
}

func TestIdentityOf(t *testing.T) {
	cases := map[string]string{
		"10.0.0.1:5000": "10.0.0.1",
		"[::1]:8080":    "::1",
		"no-port":       "no-port",
	}
	for in, want := range cases {
		if got := IdentityOf(in); got != want {
			t.Errorf("IdentityOf(%q) = %q, want %q", in, got, want)
		}
	}
}
