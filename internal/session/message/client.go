package message

// Isso aqui são as mensagens que vão no sentido servidor -> cliente.
// Todo evento de saída carrega o campo "type".

import (
	"fishingchat/internal/game"
)

const (
	TypeRequestNickname = "request_nickname"
	TypeJoin            = "join"
	TypeChat            = "chat"
	TypeUserInfo        = "userInfo"
)

// RequestNickname é enviado assim que a conexão abre.
type RequestNickname struct {
	Type string `json:"type"`
}

// JoinNotice é o broadcast de entrada na sala.
type JoinNotice struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
}

// Chat carrega qualquer texto exibido na sala: conversa, resultados do jogo,
// saídas e o aviso de expulsão.
type Chat struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// UserInfo é a resposta unicast a requestUserInfo.
type UserInfo struct {
	Type      string         `json:"type"`
	UserID    string         `json:"userId"`
	Inventory game.Inventory `json:"inventory"`
	Gold      int64          `json:"gold"`
}

func CreateRequestNickname() RequestNickname {
	return RequestNickname{Type: TypeRequestNickname}
}

func CreateJoinNotice(text, userID, nickname string) JoinNotice {
	return JoinNotice{Type: TypeJoin, Text: text, UserID: userID, Nickname: nickname}
}

func CreateChat(text string) Chat {
	return Chat{Type: TypeChat, Text: text}
}

// CreateUserInfo garante que o inventário vá como {} e não null.
func CreateUserInfo(userID string, inv game.Inventory, gold int64) UserInfo {
	if inv == nil {
		inv = game.Inventory{}
	}
	return UserInfo{Type: TypeUserInfo, UserID: userID, Inventory: inv, Gold: gold}
}
