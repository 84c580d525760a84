package game

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Inventory mapeia nome do item -> quantidade. As quantidades nunca são negativas.
type Inventory map[string]int

// Clone devolve uma cópia independente do inventário.
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for k, v := range inv {
		out[k] = v
	}
	return out
}

// Rand é a fonte de aleatoriedade do sorteio. *rand.Rand de math/rand/v2 satisfaz.
type Rand interface {
	Float64() float64
}

// NewRand cria o gerador usado em produção, semeado pelo relógio.
func NewRand() *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, 0))
}

// Draw sorteia um item usando o limiar acumulado: u em [0,1), percorre a
// tabela somando as chances e devolve o primeiro item cuja soma passa de u.
//
// Se o arredondamento de ponto flutuante fizer a soma terminar abaixo de u,
// devolve a primeira entrada da tabela. Isso favorece levemente o primeiro
// item nesses casos de borda, e é intencional manter esse comportamento.
func (c *Catalog) Draw(r Rand) Item {
	u := r.Float64()
	var total float64
	for _, it := range c.items {
		total += it.Chance
		if u < total {
			return it
		}
	}
	return c.items[0]
}

// Sell calcula o total de venda do inventário. Para cada item da tabela,
// quantidade * preço é somado e a quantidade zerada no inventário devolvido.
// Itens fora da tabela ficam intocados. O inventário de entrada não é alterado.
func (c *Catalog) Sell(inv Inventory) (earned int64, updated Inventory) {
	updated = inv.Clone()
	for _, it := range c.items {
		count := updated[it.Name]
		earned += int64(count) * it.Price
		updated[it.Name] = 0
	}
	return earned, updated
}

// Summarize monta o relatório de inventário: uma linha por item na ordem da
// tabela, mais a linha final de ouro.
func (c *Catalog) Summarize(stamp, nickname string, inv Inventory, gold int64) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] 📦 %s's inventory:\n", stamp, nickname))
	for _, it := range c.items {
		sb.WriteString(fmt.Sprintf(" - %s: %d\n", it.Name, inv[it.Name]))
	}
	sb.WriteString(fmt.Sprintf(" - 💰 Gold: %dG", gold))
	return sb.String()
}
