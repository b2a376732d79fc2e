package models

import (
	"errors"
	"strings"
	"time"
)

// Product is a marketplace listing sold for Zaryo tokens.
type Product struct {
	ID        string    `json:"id"`
	SellerID  string    `json:"seller_id"`
	Title     string    `json:"title"`
	Price     int64     `json:"price"` // token units per item
	Stock     int       `json:"stock"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *Product) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return errors.New("title required")
	}
	if p.Price <= 0 {
		return errors.New("price must be > 0")
	}
	if p.Stock < 0 {
		return errors.New("stock must be >= 0")
	}
	return nil
}
