package message

// Mensagens no sentido cliente -> servidor. Campos ausentes viram string vazia.

const (
	TypeRequestUserInfo = "requestUserInfo"
	TypeMessage         = "message"
	// TypeJoin é compartilhado com o broadcast de entrada.
)

type JoinRequest struct {
	Nickname string `json:"nickname"`
	Room     string `json:"room"`
}

type ChatRequest struct {
	Text string `json:"text"`
}

type UserInfoRequest struct {
	TargetUserID string `json:"targetUserId"`
}
