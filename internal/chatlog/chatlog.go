// Package chatlog grava o histórico de cada sala em um arquivo de texto
// próprio, só com append.
package chatlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

const defaultDir = "chatlogs"

// Writer abre o arquivo da sala a cada linha: poucas salas, pouco tráfego,
// e nenhum descritor fica preso a salas que esvaziaram.
type Writer struct {
	mu  sync.Mutex
	dir string
}

func New(dir string) *Writer {
	if dir == "" {
		dir = defaultDir
	}
	return &Writer{dir: dir}
}

func (w *Writer) Dir() string { return w.dir }

// Append escreve line + "\n" no arquivo da sala, criando o diretório se preciso.
func (w *Writer) Append(room, line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create chat log dir: %w", err)
	}
	f, err := os.OpenFile(w.Path(room), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open chat log: %w", err)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("write chat log: %w", err)
	}
	return f.Close()
}

// Path devolve o arquivo da sala.
func (w *Writer) Path(room string) string {
	return filepath.Join(w.dir, FileName(room)+".txt")
}

// FileName transforma o nome da sala em um nome de arquivo seguro e sem
// colisões: letras, dígitos, '-' e '_' ficam; cada byte de qualquer outro
// caractere (inclusive '.' e '%') vira %XX. A sala vazia vira "%".
func FileName(room string) string {
	if room == "" {
		return "%"
	}
	var b strings.Builder
	for i := 0; i < len(room); {
		r, size := utf8.DecodeRuneInString(room[i:])
		if r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_') {
			b.WriteString(room[i : i+size])
		} else {
			for _, c := range []byte(room[i : i+size]) {
				fmt.Fprintf(&b, "%%%02X", c)
			}
		}
		i += size
	}
	return b.String()
}
