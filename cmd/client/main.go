// fishingchat/cmd/client/main.go
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fishingchat/internal/session/message"
)

var (
	pingStartTime time.Time
	pingMutex     sync.Mutex
)

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	scanner := bufio.NewScanner(os.Stdin)
	nickname := ask(scanner, "CHAT_NICKNAME", "Nickname: ")
	room := ask(scanner, "CHAT_ROOM", "Room: ")

	// Tenta cada endereço da lista até conseguir.
	// Ex: CHAT_ADDRESSES="192.168.1.10:8080,192.168.1.11:8080"
	addresses := []string{"localhost:8080"}
	if env := os.Getenv("CHAT_ADDRESSES"); env != "" {
		addresses = strings.Split(env, ",")
	}

	var conn *websocket.Conn
	for _, addr := range addresses {
		u := url.URL{Scheme: "ws", Host: strings.TrimSpace(addr), Path: "/ws"}
		log.Printf("Connecting to %s", u.String())

		var resp *http.Response
		var err error
		conn, resp, err = websocket.DefaultDialer.Dial(u.String(), nil)
		if err == nil {
			break
		}
		log.Printf("WARN: could not connect to %s: %v", addr, err)
		if resp != nil {
			log.Printf("WARN: response status: %s", resp.Status)
		}
	}
	if conn == nil {
		log.Fatalf("No chat server reachable. Exiting.")
	}
	defer conn.Close()

	pingResult := make(chan time.Duration, 1)
	conn.SetPongHandler(func(string) error {
		pingMutex.Lock()
		defer pingMutex.Unlock()
		if !pingStartTime.IsZero() {
			select {
			case pingResult <- time.Since(pingStartTime):
			default:
			}
			pingStartTime = time.Time{}
		}
		return nil
	})

	// Uma única goroutine escreve frames de dados na conexão.
	out := make(chan any, 16)
	go writeLoop(conn, out)

	done := make(chan struct{})
	join := message.JoinRequest{Nickname: nickname, Room: room}
	go readLoop(conn, out, join, done)

	go func() {
		for scanner.Scan() {
			handleUserInput(conn, out, scanner.Text(), pingResult)
		}
	}()

	select {
	case <-done:
		log.Println("Disconnected from server.")
	case <-interrupt:
		log.Println("Interrupted, closing connection.")
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	}
}

// ask lê o valor da variável de ambiente ou pergunta no terminal.
func ask(scanner *bufio.Scanner, envKey, prompt string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	for {
		fmt.Print(prompt)
		if !scanner.Scan() {
			os.Exit(0)
		}
		if v := strings.TrimSpace(scanner.Text()); v != "" {
			return v
		}
	}
}

func writeLoop(conn *websocket.Conn, out <-chan any) {
	for v := range out {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(v); err != nil {
			log.Printf("write error: %v", err)
			return
		}
	}
}

func readLoop(conn *websocket.Conn, out chan<- any, join message.JoinRequest, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Println("Connection closed.")
			} else {
				log.Printf("Read error: %v", err)
			}
			return
		}

		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		switch env.Type {
		case message.TypeRequestNickname:
			out <- struct {
				Type string `json:"type"`
				message.JoinRequest
			}{Type: message.TypeJoin, JoinRequest: join}

		case message.TypeJoin:
			var ev message.JoinNotice
			json.Unmarshal(data, &ev)
			fmt.Printf("%s (id: %s)\n", ev.Text, ev.UserID)

		case message.TypeUserInfo:
			var ev message.UserInfo
			json.Unmarshal(data, &ev)
			printUserInfo(ev)

		default:
			var ev message.Chat
			json.Unmarshal(data, &ev)
			fmt.Println(ev.Text)
		}
	}
}

func handleUserInput(conn *websocket.Conn, out chan<- any, input string, pingResult chan time.Duration) {
	input = strings.TrimSpace(input)
	switch {
	case input == "/help":
		fmt.Println("catch | sell | inventory | /info <userId> | /ping | <text>")

	case strings.HasPrefix(input, "/info "):
		target := strings.TrimSpace(strings.TrimPrefix(input, "/info "))
		out <- struct {
			Type string `json:"type"`
			message.UserInfoRequest
		}{Type: message.TypeRequestUserInfo, UserInfoRequest: message.UserInfoRequest{TargetUserID: target}}

	case input == "/ping":
		pingMutex.Lock()
		pingStartTime = time.Now()
		pingMutex.Unlock()

		if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
			log.Println("ping error:", err)
			pingMutex.Lock()
			pingStartTime = time.Time{}
			pingMutex.Unlock()
			return
		}
		select {
		case latency := <-pingResult:
			fmt.Printf("[pong: %v]\n", latency)
		case <-time.After(3 * time.Second):
			fmt.Println("[ping timeout]")
		}

	default:
		out <- struct {
			Type string `json:"type"`
			message.ChatRequest
		}{Type: message.TypeMessage, ChatRequest: message.ChatRequest{Text: input}}
	}
}

func printUserInfo(ev message.UserInfo) {
	fmt.Printf("== %s ==\n", ev.UserID)
	names := make([]string, 0, len(ev.Inventory))
	for name := range ev.Inventory {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf(" - %s: %d\n", name, ev.Inventory[name])
	}
	fmt.Printf(" - gold: %dG\n", ev.Gold)
}
