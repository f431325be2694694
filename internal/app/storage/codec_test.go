package storage

import (
	"testing"

	"github.com/Storeline/cart_engine/internal/app/domain/cart"
	"github.com/Storeline/cart_engine/internal/app/domain/discount"
	"github.com/Storeline/cart_engine/internal/app/domain/pricing"
)

func sampleCart() cart.Cart {
	c := cart.Empty()
	c.Add(cart.LineItem{
		ProductID:      "tee-41",
		DisplayName:    "Classic Tee",
		Variation:      map[string]string{"size": "M", "color": "Navy"},
		Quantity:       2,
		UnitPriceCents: 5000,
		ItemDiscount:   &discount.Spec{Kind: discount.KindPercentage, Value: 10},
	})
	c.Add(cart.LineItem{
		ProductID:      "mug-7",
		DisplayName:    "Stone Mug",
		Quantity:       1,
		UnitPriceCents: 1250,
	})
	c.CartDiscount = &discount.Spec{Kind: discount.KindFixed, Value: 500}
	c.Shipping = pricing.ShippingExpress
	return c
}

func TestRoundTrip(t *testing.T) {
	for name, c := range map[string]cart.Cart{
		"empty":     cart.Empty(),
		"populated": sampleCart(),
	} {
		data, err := Encode(c)
		if err != nil {
			t.Fatalf("%s: encode: %v", name, err)
		}
		got := Decode(data)
		if !got.Equal(c) {
			t.Fatalf("%s: round trip mismatch:\n got %+v\nwant %+v", name, got, c)
		}
	}
}

func TestDecode_MalformedFailsOpen(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty input":  nil,
		"not json":     []byte("{{{"),
		"json array":   []byte(`[1,2,3]`),
		"json string":  []byte(`"cart"`),
		"wrong shapes": []byte(`{"items":"nope","shipping":42,"cartDiscount":[]}`),
	} {
		got := Decode(data)
		if !got.IsEmpty() {
			t.Fatalf("%s: expected empty cart, got %d items", name, len(got.Items))
		}
		if got.Shipping != pricing.DefaultShipping {
			t.Fatalf("%s: expected default shipping, got %q", name, got.Shipping)
		}
	}
}

func TestDecode_UnknownFieldsIgnored(t *testing.T) {
	data := []byte(`{
		"version": 7,
		"futureFlag": true,
		"items": [
			{"productId": "p1", "quantity": 3, "unitPrice": 995, "badge": "new"}
		],
		"analytics": {"sessionId": "abc"}
	}`)
	got := Decode(data)
	if len(got.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got.Items))
	}
	li := got.Items[0]
	if li.ProductID != "p1" || li.Quantity != 3 || li.UnitPriceCents != 995 {
		t.Fatalf("unexpected item: %+v", li)
	}
}

func TestDecode_DropsInvalidEntries(t *testing.T) {
	data := []byte(`{
		"items": [
			{"productId": "", "quantity": 1, "unitPrice": 100},
			{"productId": "p1", "quantity": 0, "unitPrice": 100},
			{"productId": "p2", "quantity": -4, "unitPrice": 100},
			{"productId": "p4", "quantity": 2, "unitPrice": -250},
			{"productId": "p3", "quantity": 2, "unitPrice": 100,
			 "discount": {"kind": "mystery", "value": 10}}
		]
	}`)
	got := Decode(data)
	if len(got.Items) != 1 {
		t.Fatalf("expected only the valid entry, got %d items", len(got.Items))
	}
	if got.Items[0].ProductID != "p3" {
		t.Fatalf("wrong survivor: %+v", got.Items[0])
	}
	if got.Items[0].ItemDiscount != nil {
		t.Fatalf("invalid discount should be dropped, got %+v", got.Items[0].ItemDiscount)
	}
}

func TestDecode_MergesDuplicateKeys(t *testing.T) {
	// A record written by an older or buggy client may carry duplicate
	// keys; decoding normalizes them into one merged entry.
	data := []byte(`{
		"items": [
			{"productId": "p1", "variation": {"size": "M"}, "quantity": 1, "unitPrice": 100},
			{"productId": "p1", "variation": {"Size": "m"}, "quantity": 2, "unitPrice": 100}
		]
	}`)
	got := Decode(data)
	if len(got.Items) != 1 {
		t.Fatalf("expected merged entry, got %d items", len(got.Items))
	}
	if got.Items[0].Quantity != 3 {
		t.Fatalf("expected merged quantity 3, got %d", got.Items[0].Quantity)
	}
}
