package model

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	CareEasy     = "Easy"
	CareModerate = "Moderate"
	CareAdvanced = "Advanced"

	LightLow    = "Low"
	LightMedium = "Medium"
	LightBright = "Bright"
)

var (
	careLevels        = []string{CareEasy, CareModerate, CareAdvanced}
	lightRequirements = []string{LightLow, LightMedium, LightBright}
)

type Product struct {
	ID               uuid.UUID
	Name             string
	Description      string
	Price            decimal.Decimal
	Size             string
	Image            string
	Images           []string
	Category         string
	Tags             []string
	InStock          bool
	StockQuantity    int
	Rating           float64
	Reviews          int
	CareLevel        string
	LightRequirement string
	PetFriendly      bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Normalize canonicalises free-form input and recomputes InStock from StockQuantity.
func (p *Product) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Size = strings.TrimSpace(p.Size)
	p.Category = strings.TrimSpace(p.Category)
	p.CareLevel = NormalizeCareLevel(p.CareLevel)
	p.LightRequirement = NormalizeLightRequirement(p.LightRequirement)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	p.InStock = p.StockQuantity > 0
}

func (p *Product) Validate() error {
	switch {
	case p.Name == "":
		return Invalid("product name is required")
	case strings.TrimSpace(p.Description) == "":
		return Invalid("product description is required")
	case p.Size == "":
		return Invalid("product size is required")
	case strings.TrimSpace(p.Image) == "":
		return Invalid("product image is required")
	case p.Category == "":
		return Invalid("product category is required")
	case p.Price.IsNegative():
		return Invalid("price cannot be negative")
	case p.StockQuantity < 0:
		return Invalid("stock quantity cannot be negative")
	}
	if p.CareLevel != "" && !slices.Contains(careLevels, p.CareLevel) {
		return Invalid("careLevel must be one of %s", strings.Join(careLevels, ", "))
	}
	if p.LightRequirement != "" && !slices.Contains(lightRequirements, p.LightRequirement) {
		return Invalid("lightRequirement must be one of %s", strings.Join(lightRequirements, ", "))
	}
	return nil
}

// Sizes splits the comma-joined size field into tokens.
func (p *Product) Sizes() []string {
	var out []string
	for _, s := range strings.Split(p.Size, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// MatchSize returns the product's own spelling of size, ignoring case.
func (p *Product) MatchSize(size string) (string, bool) {
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(size))
	for _, s := range p.Sizes() {
		if fold.String(s) == want {
			return s, true
		}
	}
	return "", false
}

func (p *Product) HasSize(size string) bool {
	_, ok := p.MatchSize(size)
	return ok
}

// NormalizeCareLevel maps "easy", "EASY" etc. to the canonical spelling.
// Unknown values are returned title-cased so validation can reject them.
func NormalizeCareLevel(s string) string {
	return titleWord(s)
}

func NormalizeLightRequirement(s string) string {
	return titleWord(s)
}

// Casers are stateful, so each call gets its own.
func titleWord(s string) string {
	return cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(s)))
}
