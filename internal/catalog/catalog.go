// Package catalog holds the immutable set of purchasable products.
package catalog

import (
	"fmt"
)

// Product describes a single purchasable item. Price is in minor currency
// units (cents) and is never taken from client input.
type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Image string `json:"image"`
	Color string `json:"color"`
}

// Catalog is a read-only product set. Safe for concurrent readers once built.
type Catalog struct {
	products []Product
	byID     map[string]Product
}

// New builds a Catalog from the given products.
// Returns an error if two products share the same ID.
func New(products []Product) (*Catalog, error) {
	byID := make(map[string]Product, len(products))
	for _, p := range products {
		if _, exists := byID[p.ID]; exists {
			return nil, fmt.Errorf("duplicate product ID: %s", p.ID)
		}
		byID[p.ID] = p
	}
	return &Catalog{
		products: append([]Product(nil), products...),
		byID:     byID,
	}, nil
}

// Default returns the built-in demo catalog.
func Default() *Catalog {
	c, err := New([]Product{
		{ID: "tee-classic", Name: "Classic Tee", Price: 2500, Image: "/images/tee-classic.png", Color: "black"},
		{ID: "hoodie-zip", Name: "Zip Hoodie", Price: 5900, Image: "/images/hoodie-zip.png", Color: "navy"},
		{ID: "cap-logo", Name: "Logo Cap", Price: 1900, Image: "/images/cap-logo.png", Color: "olive"},
		{ID: "mug-enamel", Name: "Enamel Mug", Price: 1500, Image: "/images/mug-enamel.png", Color: "white"},
		{ID: "tote-canvas", Name: "Canvas Tote", Price: 1200, Image: "/images/tote-canvas.png", Color: "natural"},
		{ID: "socks-crew", Name: "Crew Socks", Price: 900, Image: "/images/socks-crew.png", Color: "grey"},
	})
	if err != nil {
		// The built-in set is a compile-time constant; a duplicate here is a programming error.
		panic(fmt.Sprintf("invalid default catalog: %v", err))
	}
	return c
}

// Lookup returns the product with the given ID.
func (c *Catalog) Lookup(id string) (Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// List returns all products in insertion order.
func (c *Catalog) List() []Product {
	return append([]Product(nil), c.products...)
}
