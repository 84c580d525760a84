// fishingchat/cmd/bots/mixed-bot/main.go
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"fishingchat/internal/session/message"
)

const defaultServerURL = "ws://server:8080/ws"

func main() {
	// Lê a "personalidade" do bot da variável de ambiente.
	role := os.Getenv("BOT_ROLE")
	if role == "" {
		log.Fatal("FATAL: BOT_ROLE environment variable not set.")
	}
	serverURL := os.Getenv("CHAT_URL")
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	room := os.Getenv("CHAT_ROOM")
	if room == "" {
		room = "lobby"
	}
	hostname, _ := os.Hostname()
	nickname := fmt.Sprintf("%s-%s", role, hostname)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(serverURL, nil)
	if err != nil {
		log.Printf("FAIL (%s): Could not connect: %v\n", role, err)
		return
	}
	defer conn.Close()

	// Handshake: espera o request_nickname e entra na sala.
	if !waitFor(conn, message.TypeRequestNickname, role) {
		return
	}
	send(conn, map[string]string{"type": message.TypeJoin, "nickname": nickname, "room": room})
	if !waitFor(conn, message.TypeJoin, role) {
		return
	}
	log.Printf("SUCCESS (%s): joined %q as %s. Starting main loop.", role, room, nickname)

	// O resto das mensagens da sala é só descartado.
	go drain(conn)

	switch role {
	case "ANGLER":
		runAngler(conn)
	case "CHATTER":
		runChatter(conn)
	case "LURKER":
		select {}
	default:
		log.Fatalf("FATAL: Unknown BOT_ROLE '%s'", role)
	}
}

// runAngler pesca várias vezes e vende tudo, simulando um jogador ativo.
func runAngler(conn *websocket.Conn) {
	for {
		for i := 0; i < 5; i++ {
			if !say(conn, "catch") {
				return
			}
			think()
		}
		if !say(conn, "sell") {
			return
		}
		think()
	}
}

// runChatter manda mensagens comuns.
func runChatter(conn *websocket.Conn) {
	lines := []string{"hi!", "anyone biting today?", "nice catch", "brb"}
	for {
		if !say(conn, lines[rand.IntN(len(lines))]) {
			return
		}
		think()
	}
}

// Pensa por 2-5 segundos.
func think() {
	time.Sleep(time.Duration(2+rand.IntN(4)) * time.Second)
}

func say(conn *websocket.Conn, text string) bool {
	return send(conn, map[string]string{"type": message.TypeMessage, "text": text})
}

func send(conn *websocket.Conn, v any) bool {
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(v); err != nil {
		log.Printf("FAIL: Could not send: %v\n", err)
		return false
	}
	return true
}

func drain(conn *websocket.Conn) {
	for {
		conn.SetReadDeadline(time.Time{})
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Printf("Connection lost: %v", err)
			os.Exit(1)
		}
	}
}

// waitFor lê da conexão até chegar um evento do tipo pedido ou estourar o timeout.
func waitFor(conn *websocket.Conn, kind, role string) bool {
	for {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("FAIL (%s): did not receive %s in time: %v\n", role, kind, err)
			return false
		}
		var env struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(data, &env) == nil && env.Type == kind {
			return true
		}
	}
}
