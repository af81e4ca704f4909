package models

import (
	"strconv"
	"strings"
)

// ProductID is an opaque, externally assigned identifier. The remote API and
// older persisted carts carry numeric ids in some payloads and strings in
// others, so decoding tolerates both.
type ProductID string

func (p *ProductID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*p = ""
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		*p = ProductID(unquoted)
		return nil
	}
	*p = ProductID(s)
	return nil
}

// CartLine is one distinct product+variant entry in the cart.
//
// The JSON shape is the persistence contract: the cart is stored as an array
// of these objects under the single storage key "cart". Name and image fields
// are display-only and take no part in line identity.
type CartLine struct {
	ProductID ProductID `json:"id"`
	Name      string    `json:"name,omitempty"`
	Color     string    `json:"color,omitempty"`
	Size      string    `json:"size,omitempty"`
	UnitPrice float64   `json:"cost"`
	Quantity  int64     `json:"Quantity"`
	ImageURL  string    `json:"image_url,omitempty"`
	ImageData string    `json:"image_data,omitempty"`
}

func NewCartLine() *CartLine {
	return new(CartLine)
}

// Key returns the identity tuple of the line. Two lines merge iff their keys
// are equal; absent color/size count as empty strings.
func (l CartLine) Key() string {
	return string(l.ProductID) + "\x00" + l.Color + "\x00" + l.Size
}

// Subtotal is the line's contribution to the cart total.
func (l CartLine) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}
