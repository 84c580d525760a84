package network

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message é o envelope de entrada já decodificado: o campo "type" para
// roteamento e o frame JSON inteiro para o handler decodificar os campos
// específicos de cada evento.
//
// No fio cada frame é um objeto JSON plano, ex: {"type":"join","nickname":"a","room":"b"}.
type Message struct {
	Type string
	Raw  json.RawMessage
}

// MaxMessageSize limita o tamanho de um frame de entrada.
const MaxMessageSize = 64 * 1024

var errMissingType = errors.New("frame without type")

// DecodeMessage lê o "type" de um frame. Frames que não são objeto JSON ou
// que não têm tipo são erro de protocolo e devem ser descartados.
func DecodeMessage(data []byte) (Message, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Message{}, fmt.Errorf("decode frame: %w", err)
	}
	if envelope.Type == "" {
		return Message{}, errMissingType
	}
	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	return Message{Type: envelope.Type, Raw: raw}, nil
}

// Decode decodifica o frame inteiro em v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Raw, v)
}

// Encode serializa um evento de saída uma única vez; os bytes podem ir para
// quantos clientes forem necessários.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
