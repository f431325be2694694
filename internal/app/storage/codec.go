package storage

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/Storeline/cart_engine/internal/app/domain/cart"
	"github.com/Storeline/cart_engine/internal/app/domain/discount"
	"github.com/Storeline/cart_engine/internal/app/domain/pricing"
)

// recordVersion is written into every encoded record. Decoding ignores it
// today; it exists so a future format change can branch on it.
const recordVersion = 1

type discountRecord struct {
	Kind  string  `json:"kind"`
	Value float64 `json:"value"`
}

type itemRecord struct {
	ProductID   string            `json:"productId"`
	DisplayName string            `json:"name,omitempty"`
	Variation   map[string]string `json:"variation,omitempty"`
	Quantity    int               `json:"quantity"`
	UnitPrice   int64             `json:"unitPrice"`
	Discount    *discountRecord   `json:"discount,omitempty"`
}

type cartRecord struct {
	Version      int             `json:"version"`
	Items        []itemRecord    `json:"items"`
	CartDiscount *discountRecord `json:"cartDiscount,omitempty"`
	Shipping     string          `json:"shipping,omitempty"`
}

// Encode serializes a cart into its persisted JSON record.
func Encode(c cart.Cart) ([]byte, error) {
	rec := cartRecord{
		Version:  recordVersion,
		Items:    make([]itemRecord, 0, len(c.Items)),
		Shipping: string(c.Shipping),
	}
	for _, li := range c.Items {
		rec.Items = append(rec.Items, itemRecord{
			ProductID:   li.ProductID,
			DisplayName: li.DisplayName,
			Variation:   li.Variation,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPriceCents,
			Discount:    encodeDiscount(li.ItemDiscount),
		})
	}
	rec.CartDiscount = encodeDiscount(c.CartDiscount)
	return json.Marshal(rec)
}

func encodeDiscount(spec *discount.Spec) *discountRecord {
	if spec == nil {
		return nil
	}
	return &discountRecord{Kind: string(spec.Kind), Value: spec.Value}
}

// Decode deserializes a persisted record. It is deliberately forgiving:
// unknown fields are ignored, missing fields default, entries without a
// product, a positive quantity, or a non-negative unit price are dropped,
// and anything that is not a JSON object at the top level decodes as an
// empty cart. Decode never returns an error to its caller; a cart that
// cannot be read is an empty cart (fail-open).
func Decode(data []byte) cart.Cart {
	c := cart.Empty()
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return c
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return c
	}

	if shipping := pricing.ShippingMethod(root.Get("shipping").String()); shipping.Valid() {
		c.Shipping = shipping
	}
	c.CartDiscount = decodeDiscount(root.Get("cartDiscount"))

	root.Get("items").ForEach(func(_, item gjson.Result) bool {
		productID := item.Get("productId").String()
		quantity := int(item.Get("quantity").Int())
		unitPrice := item.Get("unitPrice").Int()
		if productID == "" || quantity <= 0 || unitPrice < 0 {
			return true
		}
		li := cart.LineItem{
			ProductID:      productID,
			DisplayName:    item.Get("name").String(),
			Quantity:       quantity,
			UnitPriceCents: unitPrice,
			ItemDiscount:   decodeDiscount(item.Get("discount")),
		}
		if variation := item.Get("variation"); variation.IsObject() {
			li.Variation = make(map[string]string)
			variation.ForEach(func(name, value gjson.Result) bool {
				li.Variation[name.String()] = value.String()
				return true
			})
		}
		c.Add(li)
		return true
	})
	return c
}

func decodeDiscount(res gjson.Result) *discount.Spec {
	if !res.IsObject() {
		return nil
	}
	spec := discount.Spec{
		Kind:  discount.Kind(res.Get("kind").String()),
		Value: res.Get("value").Float(),
	}
	if spec.Validate() != nil {
		return nil
	}
	return &spec
}
