// Package schema loads the per-product field and cost schemas. The engine uses
// them for defaults and save-time required fields only.
package schema

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/dealbook/forecast/pkg/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed products.yaml
var builtin []byte

type FieldKind string

const (
	KindNumber FieldKind = "number"
	KindText   FieldKind = "text"
	KindDate   FieldKind = "date"
	KindSelect FieldKind = "select"
)

type Field struct {
	ID       string    `yaml:"id" json:"id"`
	Label    string    `yaml:"label" json:"label"`
	Kind     FieldKind `yaml:"kind" json:"kind"`
	Default  any       `yaml:"default,omitempty" json:"default,omitempty"`
	Required bool      `yaml:"required,omitempty" json:"required,omitempty"`
	Options  []string  `yaml:"options,omitempty" json:"options,omitempty"`
}

type CostField struct {
	ID        string           `yaml:"id" json:"id"`
	Label     string           `yaml:"label" json:"label"`
	Frequency models.Frequency `yaml:"frequency" json:"frequency"`
}

type Product struct {
	ProductType models.ProductType `yaml:"product_type" json:"product_type"`
	Fields      []Field            `yaml:"fields" json:"fields"`
	Costs       []CostField        `yaml:"costs" json:"costs"`
}

// Set indexes product schemas by product type.
type Set map[models.ProductType]Product

type document struct {
	Products []Product `yaml:"products"`
}

// Default returns the built-in schemas.
func Default() (Set, error) {
	return Parse(builtin)
}

// Load reads schemas from a YAML file. An empty path yields the built-in schemas.
func Load(path string) (Set, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML schema document.
func Parse(data []byte) (Set, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	set := make(Set, len(doc.Products))
	for _, p := range doc.Products {
		if !p.ProductType.Valid() {
			return nil, fmt.Errorf("unknown product type %q in schema", p.ProductType)
		}
		for _, c := range p.Costs {
			if _, ok := models.ParseFrequency(string(c.Frequency)); !ok {
				return nil, fmt.Errorf("cost %s of %s: unknown frequency %q", c.ID, p.ProductType, c.Frequency)
			}
		}
		set[p.ProductType] = p
	}
	return set, nil
}

// RequiredFields lists the ids that must be filled before a deal can be saved.
func (p Product) RequiredFields() []Field {
	var out []Field
	for _, f := range p.Fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

// CostFrequency returns the default frequency configured for a cost id.
func (p Product) CostFrequency(id string) (models.Frequency, bool) {
	for _, c := range p.Costs {
		if c.ID == id {
			freq, ok := models.ParseFrequency(string(c.Frequency))
			return freq, ok
		}
	}
	return "", false
}

// ResolveCosts returns a copy of deal whose cost items without a known
// frequency take the one configured for their id. Items the product does not
// configure are left as they are.
func (s Set) ResolveCosts(deal models.Deal) models.Deal {
	p, ok := s[deal.ProductType]
	if !ok || len(deal.CostItems) == 0 {
		return deal
	}
	items := make(map[string]models.CostItem, len(deal.CostItems))
	for id, item := range deal.CostItems {
		if _, known := models.ParseFrequency(string(item.Frequency)); !known {
			if freq, ok := p.CostFrequency(id); ok {
				item.Frequency = freq
			}
		}
		items[id] = item
	}
	deal.CostItems = items
	return deal
}

// ApplyDefaults returns a copy of values with every missing field set to its default.
func (p Product) ApplyDefaults(values models.FieldValues) models.FieldValues {
	out := values.Clone()
	for _, f := range p.Fields {
		if out.Present(f.ID) || f.Default == nil {
			continue
		}
		out[f.ID] = normalise(f.Default)
	}
	return out
}

// NewCostItems returns zero-amount cost items for every standard cost, each
// carrying its configured frequency.
func (p Product) NewCostItems() map[string]models.CostItem {
	items := make(map[string]models.CostItem, len(p.Costs))
	for _, c := range p.Costs {
		freq, _ := models.ParseFrequency(string(c.Frequency))
		items[c.ID] = models.CostItem{Amount: decimal.Zero, Frequency: freq}
	}
	return items
}

// normalise converts YAML scalars to the types JSON decoding produces.
func normalise(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return v
}
