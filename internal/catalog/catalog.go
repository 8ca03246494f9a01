package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed drinks.yaml
var drinksYAML []byte

var (
	ErrNotFound        = errors.New("drink not found")
	ErrUnknownCategory = errors.New("unknown category")
)

type Category string

const (
	CategoryCocktail Category = "cocktail"
	CategoryBeer     Category = "beer"
	CategoryWine     Category = "wine"
	CategorySpirit   Category = "spirit"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryCocktail, CategoryBeer, CategoryWine, CategorySpirit:
		return true
	default:
		return false
	}
}

type PhotoCredit struct {
	Photographer     string `yaml:"photographer" json:"photographer"`
	PhotographerURL  string `yaml:"photographer_url" json:"photographerUrl"`
	OriginalPhotoURL string `yaml:"original_photo_url" json:"originalPhotoUrl"`
}

type Drink struct {
	ID          int          `yaml:"id" json:"id"`
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description" json:"description"`
	Price       float64      `yaml:"price" json:"price"`
	Image       string       `yaml:"image" json:"image"`
	Category    Category     `yaml:"category" json:"category"`
	Ingredients []string     `yaml:"ingredients" json:"ingredients"`
	ABV         float64      `yaml:"abv" json:"abv"`
	Popular     bool         `yaml:"popular" json:"isPopular"`
	PhotoCredit *PhotoCredit `yaml:"photo_credit" json:"photoCredit,omitempty"`
}

// Slide is one image of the home page carousel.
type Slide struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Image       string `yaml:"image" json:"image"`
}

type document struct {
	Drinks   []Drink `yaml:"drinks"`
	Featured []Slide `yaml:"featured"`
}

// Catalog is an immutable, read-only drinks menu. Returned slices are copies.
type Catalog struct {
	drinks   []Drink
	featured []Slide
}

// Load returns the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(drinksYAML)
}

// Parse decodes a catalog document and checks ids and categories.
func Parse(b []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	seen := make(map[int]struct{}, len(doc.Drinks))
	for _, d := range doc.Drinks {
		if d.ID <= 0 {
			return nil, fmt.Errorf("catalog: drink %q has no id", d.Name)
		}
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate drink id %d", d.ID)
		}
		seen[d.ID] = struct{}{}
		if !d.Category.Valid() {
			return nil, fmt.Errorf("catalog: drink %d: %w %q", d.ID, ErrUnknownCategory, d.Category)
		}
	}
	return &Catalog{drinks: doc.Drinks, featured: doc.Featured}, nil
}

func (c *Catalog) All() []Drink {
	return slices.Clone(c.drinks)
}

// ByCategory filters by category name, case-insensitively.
func (c *Catalog) ByCategory(name string) ([]Drink, error) {
	cat := Category(strings.ToLower(strings.TrimSpace(name)))
	if !cat.Valid() {
		return nil, fmt.Errorf("%w %q", ErrUnknownCategory, name)
	}
	out := make([]Drink, 0, len(c.drinks))
	for _, d := range c.drinks {
		if d.Category == cat {
			out = append(out, d)
		}
	}
	return out, nil
}

func (c *Catalog) Popular() []Drink {
	var out []Drink
	for _, d := range c.drinks {
		if d.Popular {
			out = append(out, d)
		}
	}
	return out
}

func (c *Catalog) ByID(id int) (Drink, error) {
	for _, d := range c.drinks {
		if d.ID == id {
			return d, nil
		}
	}
	return Drink{}, ErrNotFound
}

func (c *Catalog) Featured() []Slide {
	return slices.Clone(c.featured)
}

// Categories lists the categories present in the menu, in first-seen order.
func (c *Catalog) Categories() []Category {
	var out []Category
	for _, d := range c.drinks {
		if !slices.Contains(out, d.Category) {
			out = append(out, d.Category)
		}
	}
	return out
}
