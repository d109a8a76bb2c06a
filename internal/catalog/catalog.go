// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

// Package catalog holds the read-only list of subscription packages.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"io"
	"regexp"

	"github.com/samber/oops"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

//go:embed packages.yaml
var embeddedPackages []byte

// Audience is who a package is sold to.
type Audience string

// Known audiences.
const (
	AudienceStudent Audience = "student"
	AudienceSchool  Audience = "school"
)

// Valid reports whether a is a known audience.
func (a Audience) Valid() bool {
	return a == AudienceStudent || a == AudienceSchool
}

// Package is one subscription offering.
type Package struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	Audience     Audience `yaml:"audience" json:"audience"`
	PriceCents   int64    `yaml:"priceCents" json:"priceCents"`
	Currency     string   `yaml:"currency" json:"currency"`
	Period       string   `yaml:"period" json:"period"`
	DisplayPrice string   `yaml:"-" json:"displayPrice"`
	Description  string   `yaml:"description" json:"description"`
	Features     []string `yaml:"features" json:"features"`
	Popular      bool     `yaml:"popular" json:"popular"`
	AgeGroup     string   `yaml:"ageGroup,omitempty" json:"ageGroup,omitempty"`
	// MaxStudents is set for school packages; 0 means unlimited.
	MaxStudents *int `yaml:"maxStudents,omitempty" json:"maxStudents,omitempty"`
}

type document struct {
	Packages []Package `yaml:"packages"`
}

// Catalog is an immutable, ordered set of packages.
type Catalog struct {
	packages []Package
	byID     map[string]int
}

var (
	idPattern       = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

var currencySymbols = map[string]string{
	"ZAR": "R",
}

// Embedded parses the catalog compiled into the binary.
func Embedded() (*Catalog, error) {
	return Parse(embeddedPackages)
}

// Parse decodes and validates a YAML catalog. Unknown keys are rejected.
func Parse(data []byte) (*Catalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, oops.Code("CATALOG_INVALID").Errorf("catalog data is empty")
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, oops.Code("CATALOG_INVALID").With("operation", "decode catalog").Wrap(err)
	}
	if len(doc.Packages) == 0 {
		return nil, oops.Code("CATALOG_INVALID").Errorf("catalog has no packages")
	}

	printer := message.NewPrinter(language.English)
	c := &Catalog{
		packages: make([]Package, 0, len(doc.Packages)),
		byID:     make(map[string]int, len(doc.Packages)),
	}
	for i := range doc.Packages {
		p := doc.Packages[i]
		if err := p.validate(); err != nil {
			return nil, oops.With("index", i).Wrap(err)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, oops.Code("CATALOG_INVALID").With("package_id", p.ID).Errorf("duplicate package id")
		}
		p.DisplayPrice = formatPrice(printer, p.Currency, p.PriceCents)
		c.byID[p.ID] = len(c.packages)
		c.packages = append(c.packages, p)
	}
	return c, nil
}

func (p *Package) validate() error {
	invalid := oops.Code("CATALOG_INVALID").With("package_id", p.ID)
	switch {
	case !idPattern.MatchString(p.ID):
		return invalid.Errorf("package id must be lower snake case")
	case p.Name == "":
		return invalid.Errorf("name is required")
	case !p.Audience.Valid():
		return invalid.With("audience", string(p.Audience)).Errorf("unknown audience")
	case p.PriceCents <= 0:
		return invalid.Errorf("price must be positive")
	case !currencyPattern.MatchString(p.Currency):
		return invalid.With("currency", p.Currency).Errorf("currency must be an ISO 4217 code")
	case p.Period == "":
		return invalid.Errorf("period is required")
	case len(p.Features) == 0:
		return invalid.Errorf("at least one feature is required")
	case p.MaxStudents != nil && *p.MaxStudents < 0:
		return invalid.Errorf("maxStudents cannot be negative")
	case p.Audience == AudienceStudent && p.MaxStudents != nil:
		return invalid.Errorf("maxStudents only applies to school packages")
	}
	return nil
}

// formatPrice renders whole currency units with locale grouping, e.g. R6,999.
func formatPrice(p *message.Printer, currency string, cents int64) string {
	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = currency + " "
	}
	if cents%100 == 0 {
		return p.Sprintf("%s%d", symbol, cents/100)
	}
	return p.Sprintf("%s%.2f", symbol, float64(cents)/100)
}

// List returns packages in catalog order, optionally filtered by audience.
// An empty audience returns every package.
func (c *Catalog) List(audience Audience) []Package {
	out := make([]Package, 0, len(c.packages))
	for _, p := range c.packages {
		if audience == "" || p.Audience == audience {
			out = append(out, p)
		}
	}
	return out
}

// Get returns the package with the given id.
func (c *Catalog) Get(id string) (Package, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Package{}, false
	}
	return c.packages[i], true
}

// Len returns the number of packages.
func (c *Catalog) Len() int {
	return len(c.packages)
}
