// Package seed holds the sample plant catalog used to populate an empty store.
package seed

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/flicky/plant-shop-api/internal/model"
)

//go:embed plants.yaml
var plantsYAML []byte

type catalogFile struct {
	Products []plant `yaml:"products"`
}

type plant struct {
	Name             string   `yaml:"name"`
	Description      string   `yaml:"description"`
	Price            float64  `yaml:"price"`
	Size             string   `yaml:"size"`
	Image            string   `yaml:"image"`
	Images           []string `yaml:"images"`
	Category         string   `yaml:"category"`
	Tags             []string `yaml:"tags"`
	StockQuantity    int      `yaml:"stockQuantity"`
	Rating           float64  `yaml:"rating"`
	Reviews          int      `yaml:"reviews"`
	CareLevel        string   `yaml:"careLevel"`
	LightRequirement string   `yaml:"lightRequirement"`
	PetFriendly      bool     `yaml:"petFriendly"`
}

// Products returns the embedded sample catalog.
func Products() ([]model.Product, error) {
	return Parse(plantsYAML)
}

// LoadFile reads a catalog in the same YAML layout as the embedded one.
func LoadFile(path string) ([]model.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) ([]model.Product, error) {
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	products := make([]model.Product, 0, len(cf.Products))
	for i, p := range cf.Products {
		product := p.toModel()
		product.Normalize()
		if err := product.Validate(); err != nil {
			return nil, fmt.Errorf("products[%d] %q: %w", i, p.Name, err)
		}
		products = append(products, product)
	}
	return products, nil
}

func (p plant) toModel() model.Product {
	return model.Product{
		Name:             p.Name,
		Description:      p.Description,
		Price:            decimal.NewFromFloat(p.Price),
		Size:             p.Size,
		Image:            p.Image,
		Images:           p.Images,
		Category:         p.Category,
		Tags:             p.Tags,
		StockQuantity:    p.StockQuantity,
		Rating:           p.Rating,
		Reviews:          p.Reviews,
		CareLevel:        p.CareLevel,
		LightRequirement: p.LightRequirement,
		PetFriendly:      p.PetFriendly,
	}
}
