package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the list of assets seeded at startup.
type Catalog struct {
	Assets []CatalogAsset `yaml:"assets"`
}

// CatalogAsset is one catalog entry. Price is optional and only feeds the
// static quote source.
type CatalogAsset struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
	Class  string `yaml:"class"`
	Price  string `yaml:"price"`
}

// LoadCatalog reads the catalog at path, or the embedded default when
// path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog and rejects duplicate symbols and
// malformed prices.
func ParseCatalog(data []byte) (*Catalog, error) {
	c := &Catalog{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(c.Assets))
	for i := range c.Assets {
		a := &c.Assets[i]
		a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
		if a.Symbol == "" {
			return nil, fmt.Errorf("catalog entry %d: symbol is required", i)
		}
		if seen[a.Symbol] {
			return nil, fmt.Errorf("catalog entry %d: duplicate symbol %s", i, a.Symbol)
		}
		seen[a.Symbol] = true
		if a.Price != "" {
			p, err := decimal.NewFromString(a.Price)
			if err != nil || !p.IsPositive() {
				return nil, fmt.Errorf("catalog entry %s: price must be a positive decimal", a.Symbol)
			}
		}
	}
	return c, nil
}

// Prices returns the static price of every entry that has one, keyed by
// symbol.
func (c *Catalog) Prices() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(c.Assets))
	for _, a := range c.Assets {
		if a.Price == "" {
			continue
		}
		out[a.Symbol] = decimal.RequireFromString(a.Price)
	}
	return out
}
