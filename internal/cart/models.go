package cart

// LineView joins a cart line with the product fields clients render.
// Lines are unique per (user, product); the repo exposes them only in
// this joined form.
type LineView struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Qty        int    `json:"qty"`
	LineCents  int64  `json:"line_cents"`
	Stock      int    `json:"stock"`
}
