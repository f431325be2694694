// Package order defines the payload handed to the external order-submission
// collaborator after checkout reconciliation.
package order

// Contact identifies the customer placing the order.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Address is the shipping destination.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Item is one reconciled order line. UnitPriceCents carries the
// server-trusted price fetched at reconciliation time, never the
// client-cached display price.
type Item struct {
	ProductID      string `json:"productId"`
	Size           string `json:"size,omitempty"`
	Color          string `json:"color,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPrice"`
	DiscountCents  int64  `json:"discount"`
}

// Order is the full submission payload.
type Order struct {
	CustomerContact Contact `json:"customerContact"`
	ShippingAddress Address `json:"shippingAddress"`
	Notes           string  `json:"notes,omitempty"`
	Items           []Item  `json:"items"`
}
