package game

import (
	"errors"
	"testing"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	want := []string{"mackerel", "anchovy", "octopus", "webfoot octopus"}
	got := c.Names()
	if len(got) != len(want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("names[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDrawCumulativeThreshold(t *testing.T) {
	c := DefaultCatalog()
	tests := []struct {
		u    float64
		want string
	}{
		{0.0, "mackerel"},
		{0.39, "mackerel"},
		{0.4, "anchovy"},
		{0.69, "anchovy"},
		{0.7, "octopus"},
		{0.89, "octopus"},
		{0.9, "webfoot octopus"},
		{0.999999, "webfoot octopus"},
	}
	for _, tt := range tests {
		if got := c.Draw(fixedRand(tt.u)).Name; got != tt.want {
			t.Errorf("Draw(%v) = %q, want %q", tt.u, got, tt.want)
		}
	}
}

func TestDrawFallsBackToFirstEntry(t *testing.T) {
	// Soma das chances fica um pouco abaixo de 1 (dentro da tolerância),
	// então um u muito alto esgota a tabela.
	c, err := NewCatalog([]Item{
		{Name: "a", Chance: 0.5 - 1e-12, Price: 1},
		{Name: "b", Chance: 0.5, Price: 2},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if got := c.Draw(fixedRand(0.9999999999999)).Name; got != "a" {
		t.Fatalf("fallback draw = %q, want %q", got, "a")
	}
}

func TestDrawAlwaysReturnsCatalogItem(t *testing.T) {
	c := DefaultCatalog()
	r := NewRand()
	for i := 0; i < 1000; i++ {
		it := c.Draw(r)
		if _, ok := c.Lookup(it.Name); !ok {
			t.Fatalf("draw returned unknown item %q", it.Name)
		}
	}
}

func TestSell(t *testing.T) {
	c, err := NewCatalog([]Item{
		{Name: "itemX", Chance: 0.5, Price: 10},
		{Name: "itemY", Chance: 0.5, Price: 3},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	inv := Inventory{"itemX": 2, "itemY": 1, "boot": 4}

	earned, updated := c.Sell(inv)
	if earned != 23 {
		t.Fatalf("earned = %d, want 23", earned)
	}
	if updated["itemX"] != 0 || updated["itemY"] != 0 {
		t.Fatalf("tracked items not zeroed: %v", updated)
	}
	if updated["boot"] != 4 {
		t.Fatalf("untracked item changed: %v", updated)
	}
	if inv["itemX"] != 2 {
		t.Fatalf("input inventory mutated: %v", inv)
	}
}

func TestSellEmptyInventory(t *testing.T) {
	c := DefaultCatalog()
	earned, updated := c.Sell(Inventory{})
	if earned != 0 {
		t.Fatalf("earned = %d, want 0", earned)
	}
	for _, name := range c.Names() {
		if n, ok := updated[name]; !ok || n != 0 {
			t.Fatalf("updated[%q] = %d, %v; want 0, true", name, n, ok)
		}
	}
}

func TestSummarizeFollowsCatalogOrder(t *testing.T) {
	c := DefaultCatalog()
	// Ordem de inserção proposital diferente da tabela.
	inv := Inventory{}
	inv["webfoot octopus"] = 1
	inv["octopus"] = 2
	inv["mackerel"] = 3

	got := c.Summarize("12:00:00", "Alice", inv, 42)
	want := "[12:00:00] 📦 Alice's inventory:\n" +
		" - mackerel: 3\n" +
		" - anchovy: 0\n" +
		" - octopus: 2\n" +
		" - webfoot octopus: 1\n" +
		" - 💰 Gold: 42G"
	if got != want {
		t.Fatalf("Summarize =\n%s\nwant\n%s", got, want)
	}
}

func TestCatalogValidation(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
	}{
		{"empty", nil},
		{"sum below one", []Item{{Name: "a", Chance: 0.5, Price: 1}}},
		{"sum above one", []Item{{Name: "a", Chance: 0.7, Price: 1}, {Name: "b", Chance: 0.7, Price: 1}}},
		{"duplicate", []Item{{Name: "a", Chance: 0.5, Price: 1}, {Name: "a", Chance: 0.5, Price: 1}}},
		{"negative price", []Item{{Name: "a", Chance: 1, Price: -1}}},
		{"blank name", []Item{{Name: "", Chance: 1, Price: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.items)
			if !errors.Is(err, ErrInvalidCatalog) {
				t.Fatalf("err = %v, want ErrInvalidCatalog", err)
			}
		})
	}
}

func TestParseCatalogYAML(t *testing.T) {
	doc := []byte(`
items:
  - name: 고등어
    chance: 0.4
    price: 10
  - name: 멸치
    chance: 0.6
    price: 5
`)
	c, err := ParseCatalog(doc)
	if err != nil {
		t.Fatalf("ParseCatalog: %v", err)
	}
	it, ok := c.Lookup("멸치")
	if !ok || it.Price != 5 {
		t.Fatalf("Lookup(멸치) = %+v, %v", it, ok)
	}
	if _, err := ParseCatalog([]byte("items: [")); !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("broken yaml err = %v", err)
	}
}

func TestParseCommand(t *testing.T) {
	tests := map[string]Command{
		"catch":     CommandCatch,
		"낚시하기":      CommandCatch,
		"sell":      CommandSell,
		"판매":        CommandSell,
		"inventory": CommandInventory,
		"인벤토리":      CommandInventory,
		"Catch":     CommandNone,
		"catch now": CommandNone,
		"":          CommandNone,
	}
	for text, want := range tests {
		if got := ParseCommand(text); got != want {
			t.Errorf("ParseCommand(%q) = %q, want %q", text, got, want)
		}
	}
}
