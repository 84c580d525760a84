package game

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// ErrInvalidCatalog é retornado quando a tabela de itens não passa na validação.
var ErrInvalidCatalog = errors.New("invalid item catalog")

// tolerância para a soma das chances (erros de ponto flutuante do YAML).
const chanceEpsilon = 1e-9

// Item é uma entrada estática da tabela: nome, chance de sorteio e preço de venda.
type Item struct {
	Name   string  `yaml:"name"`
	Chance float64 `yaml:"chance"`
	Price  int64   `yaml:"price"`
}

// Catalog é a tabela de itens na ordem declarada.
// A ordem importa: ela define o limiar acumulado do sorteio e a ordem do relatório.
type Catalog struct {
	items []Item
	index map[string]int
}

type catalogFile struct {
	Items []Item `yaml:"items"`
}

// NewCatalog cria e valida um catálogo a partir de uma lista de itens.
func NewCatalog(items []Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]Item, len(items)),
		index: make(map[string]int, len(items)),
	}
	copy(c.items, items)
	for i, it := range c.items {
		c.index[it.Name] = i
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// DefaultCatalog retorna a tabela embutida no binário.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		// O arquivo embutido é fixo; se ele estiver quebrado o build está errado.
		panic(fmt.Sprintf("default catalog: %v", err))
	}
	return c
}

// LoadCatalog lê um catálogo YAML do disco.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodifica e valida um documento YAML de catálogo.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return NewCatalog(f.Items)
}

// Validate confere as invariantes da tabela: pelo menos um item, nomes únicos,
// chances e preços não negativos e soma das chances igual a 1.0.
func (c *Catalog) Validate() error {
	if len(c.items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidCatalog)
	}
	seen := make(map[string]bool, len(c.items))
	var total float64
	for _, it := range c.items {
		if it.Name == "" {
			return fmt.Errorf("%w: item with empty name", ErrInvalidCatalog)
		}
		if seen[it.Name] {
			return fmt.Errorf("%w: duplicate item %q", ErrInvalidCatalog, it.Name)
		}
		seen[it.Name] = true
		if it.Chance < 0 {
			return fmt.Errorf("%w: item %q has negative chance", ErrInvalidCatalog, it.Name)
		}
		if it.Price < 0 {
			return fmt.Errorf("%w: item %q has negative price", ErrInvalidCatalog, it.Name)
		}
		total += it.Chance
	}
	if math.Abs(total-1.0) > chanceEpsilon {
		return fmt.Errorf("%w: chances sum to %v, want 1.0", ErrInvalidCatalog, total)
	}
	return nil
}

// Items retorna uma cópia da tabela, na ordem declarada.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Lookup busca um item pelo nome.
func (c *Catalog) Lookup(name string) (Item, bool) {
	i, ok := c.index[name]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// Names retorna os nomes dos itens na ordem da tabela.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.items))
	for i, it := range c.items {
		names[i] = it.Name
	}
	return names
}
