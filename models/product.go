package models

// Product 代表商店中的商品
type Product struct {
	ID          ProductID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Cost        float64   `json:"cost"`
	Price       float64   `json:"price,omitempty"`
	Type        string    `json:"type,omitempty"`
	Type2       string    `json:"type2,omitempty"`
	Style       string    `json:"style,omitempty"`
	Style2      string    `json:"style2,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	ImageData   string    `json:"image_data,omitempty"`
}

// UnitPrice reconciles the two price fields the API uses interchangeably.
func (p *Product) UnitPrice() float64 {
	if p.Cost != 0 {
		return p.Cost
	}
	return p.Price
}

// Line snapshots the product into a cart line with the chosen variant and
// quantity. The unit price is fixed at this moment and not re-fetched later.
func (p *Product) Line(color, size string, quantity int64) CartLine {
	return CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		Color:     color,
		Size:      size,
		UnitPrice: p.UnitPrice(),
		Quantity:  quantity,
		ImageURL:  p.ImageURL,
		ImageData: p.ImageData,
	}
}

// ProductMeta holds the flat browse vocabularies exposed by the API.
type ProductMeta struct {
	Categories []string `json:"categories"`
	Types      []string `json:"types"`
	Styles     []string `json:"styles"`
}
