package catalog

import (
	"errors"
	"testing"
)

func mustLoad(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return c
}

func TestLoad_EmbeddedMenu(t *testing.T) {
	c := mustLoad(t)
	if n := len(c.All()); n != 18 {
		t.Fatalf("expected 18 drinks, got %d", n)
	}
	if n := len(c.Featured()); n != 3 {
		t.Fatalf("expected 3 featured slides, got %d", n)
	}
	d, err := c.ByID(1)
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if d.Name != "Old Fashioned" || d.Category != CategoryCocktail || d.PhotoCredit == nil {
		t.Fatalf("unexpected drink 1: %+v", d)
	}
}

func TestByCategory(t *testing.T) {
	c := mustLoad(t)
	cases := map[string]int{
		"cocktail": 6,
		"beer":     4,
		"Wine":     4,
		" spirit ": 4,
	}
	for name, want := range cases {
		got, err := c.ByCategory(name)
		if err != nil {
			t.Fatalf("ByCategory(%q): %v", name, err)
		}
		if len(got) != want {
			t.Fatalf("ByCategory(%q) = %d drinks, want %d", name, len(got), want)
		}
	}

	if _, err := c.ByCategory("soda"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestPopularAndCategories(t *testing.T) {
	c := mustLoad(t)
	pop := c.Popular()
	if len(pop) != 9 {
		t.Fatalf("expected 9 popular drinks, got %d", len(pop))
	}
	for _, d := range pop {
		if !d.Popular {
			t.Fatalf("non-popular drink %d in Popular()", d.ID)
		}
	}
	cats := c.Categories()
	want := []Category{CategoryCocktail, CategoryBeer, CategoryWine, CategorySpirit}
	if len(cats) != len(want) {
		t.Fatalf("categories = %v, want %v", cats, want)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Fatalf("categories = %v, want %v", cats, want)
		}
	}
}

func TestByID_Missing(t *testing.T) {
	c := mustLoad(t)
	if _, err := c.ByID(999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	c := mustLoad(t)
	all := c.All()
	all[0].Name = "mutated"
	if d, _ := c.ByID(all[0].ID); d.Name == "mutated" {
		t.Fatalf("catalog mutated through All()")
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"duplicate id": `
drinks:
  - {id: 1, name: a, category: beer}
  - {id: 1, name: b, category: wine}
`,
		"bad category": `
drinks:
  - {id: 1, name: a, category: soda}
`,
		"missing id": `
drinks:
  - {name: a, category: beer}
`,
		"malformed": "drinks: [",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
