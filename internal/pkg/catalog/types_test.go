package catalog

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseEventValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "not json",
			body:    `{{`,
			wantErr: "Invalid request body",
		},
		{
			name:    "missing table",
			body:    `{"eventType":"INSERT","new":{"id":1,"product_name":"x"}}`,
			wantErr: "Missing table or eventType in payload",
		},
		{
			name:    "missing eventType",
			body:    `{"table":"product","new":{"id":1,"product_name":"x"}}`,
			wantErr: "Missing table or eventType in payload",
		},
		{
			name:    "product insert without name",
			body:    `{"table":"product","eventType":"INSERT","new":{"id":1}}`,
			wantErr: "Missing id or product_name in newData",
		},
		{
			name:    "product insert without new row",
			body:    `{"table":"product","eventType":"INSERT"}`,
			wantErr: "Missing id or product_name in newData",
		},
		{
			name:    "product delete without old row",
			body:    `{"table":"product","eventType":"DELETE"}`,
			wantErr: "Missing id in oldData",
		},
		{
			name:    "plan insert without price",
			body:    `{"table":"pricingplan","eventType":"INSERT","new":{"id":3,"product_id":1,"currency":"eur","type":"one_time"}}`,
			wantErr: "Missing required fields in newData",
		},
		{
			name:    "plan insert without product_id",
			body:    `{"table":"pricingplan","eventType":"INSERT","new":{"id":3,"price":500,"currency":"eur","type":"one_time"}}`,
			wantErr: "Missing required fields in newData",
		},
		{
			name:    "synced plan update without old row",
			body:    `{"table":"pricingplan","eventType":"UPDATE","new":{"id":3,"product_id":1,"price":500,"currency":"eur","type":"one_time","stripe_price_id":"price_old"}}`,
			wantErr: "Missing oldData for UPDATE",
		},
		{
			name:    "plan delete without old row",
			body:    `{"table":"pricingplan","eventType":"DELETE","new":{"id":3}}`,
			wantErr: "Missing id in oldData",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvent([]byte(tt.body))
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.wantErr)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T: %v", err, err)
			}
			if verr.Msg != tt.wantErr {
				t.Fatalf("expected %q, got %q", tt.wantErr, verr.Msg)
			}
		})
	}
}

func TestParseEventRecognized(t *testing.T) {
	body := `{"table":"product","eventType":"INSERT","new":{"id":7,"product_name":"Pro Plan","is_displayed":true}}`
	ev, err := ParseEvent([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ev.Recognized {
		t.Fatalf("expected event to be recognized")
	}
	if ev.NewProduct == nil || ev.NewProduct.ID != 7 || ev.NewProduct.ProductName != "Pro Plan" {
		t.Fatalf("unexpected new product row: %+v", ev.NewProduct)
	}
	if ev.NewProduct.IsDisplayed == nil || !*ev.NewProduct.IsDisplayed {
		t.Fatalf("expected is_displayed true, got %v", ev.NewProduct.IsDisplayed)
	}
}

func TestParseEventUnknownCombination(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown table", `{"table":"orders","eventType":"INSERT","new":{"id":1}}`},
		{"unknown event type", `{"table":"product","eventType":"TRUNCATE"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent([]byte(tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ev.Recognized {
				t.Fatalf("expected event to be unrecognized")
			}
		})
	}
}

func TestValidImageURLs(t *testing.T) {
	tests := []struct {
		name string
		in   []interface{}
		want []string
	}{
		{
			name: "mixed valid and invalid",
			in:   []interface{}{"not-a-url", "http://ok.test/a.png", "ftp://bad.test/b.png"},
			want: []string{"http://ok.test/a.png"},
		},
		{
			name: "https kept",
			in:   []interface{}{"https://cdn.test/img.webp"},
			want: []string{"https://cdn.test/img.webp"},
		},
		{
			name: "non-strings skipped",
			in:   []interface{}{42, true, map[string]interface{}{"u": "http://x.test"}},
			want: nil,
		},
		{
			name: "all invalid yields nil",
			in:   []interface{}{"", "relative/path", "ftp://x.test"},
			want: nil,
		},
		{
			name: "nil input",
			in:   nil,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidImageURLs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlattenAttrs(t *testing.T) {
	got := FlattenAttrs(map[string]interface{}{
		"tier":     "gold",
		"seats":    float64(10),
		"ratio":    1.5,
		"beta":     true,
		"skip":     nil,
		"features": []interface{}{"a", "b"},
	})
	want := map[string]string{
		"tier":     "gold",
		"seats":    "10",
		"ratio":    "1.5",
		"beta":     "true",
		"features": `["a","b"]`,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if FlattenAttrs(nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
	if FlattenAttrs(map[string]interface{}{"only": nil}) != nil {
		t.Fatalf("expected nil when every value is dropped")
	}
}

func TestProductChanged(t *testing.T) {
	yes := true
	base := func() *ProductRow {
		return &ProductRow{
			ID:                 1,
			ProductName:        "Widget",
			IsDisplayed:        &yes,
			ProductDescription: "desc",
			LinksToImage:       []interface{}{"http://a.test/1.png"},
			Attrs:              map[string]interface{}{"k": "v"},
		}
	}

	if productChanged(base(), base()) {
		t.Fatalf("identical rows must not count as changed")
	}
	if !productChanged(nil, base()) {
		t.Fatalf("missing old row must count as changed")
	}

	mutations := map[string]func(*ProductRow){
		"name":        func(r *ProductRow) { r.ProductName = "Other" },
		"displayed":   func(r *ProductRow) { r.IsDisplayed = nil },
		"description": func(r *ProductRow) { r.ProductDescription = "new desc" },
		"images":      func(r *ProductRow) { r.LinksToImage = []interface{}{"http://a.test/2.png"} },
		"attrs":       func(r *ProductRow) { r.Attrs = map[string]interface{}{"k": "w"} },
	}
	for name, mutate := range mutations {
		newRow := base()
		mutate(newRow)
		if !productChanged(base(), newRow) {
			t.Fatalf("%s: mutation not detected", name)
		}
	}

	// nil and empty collections are the same thing on the wire.
	oldRow, newRow := base(), base()
	oldRow.LinksToImage = nil
	newRow.LinksToImage = []interface{}{}
	oldRow.Attrs = nil
	newRow.Attrs = map[string]interface{}{}
	if productChanged(oldRow, newRow) {
		t.Fatalf("nil vs empty collections must not count as changed")
	}
}

func TestPlanFieldsEqual(t *testing.T) {
	active := true
	base := func() *PricingPlanRow {
		return &PricingPlanRow{
			ID:                     3,
			ProductID:              1,
			Price:                  1999,
			Currency:               "eur",
			IsActive:               &active,
			Type:                   "recurring",
			RecurringInterval:      "month",
			RecurringIntervalCount: 1,
			StripePriceID:          "price_old",
		}
	}

	if !planFieldsEqual(base(), base()) {
		t.Fatalf("identical business fields must compare equal")
	}

	// The remote price id is not a business field.
	newRow := base()
	newRow.StripePriceID = "price_new"
	if !planFieldsEqual(base(), newRow) {
		t.Fatalf("stripe_price_id must be ignored in the comparison")
	}

	newRow = base()
	newRow.Price = 2999
	if planFieldsEqual(base(), newRow) {
		t.Fatalf("price change not detected")
	}
	if !priceOrCurrencyChanged(base(), newRow) {
		t.Fatalf("price change must flag a replacement")
	}

	newRow = base()
	newRow.IsActive = nil
	if planFieldsEqual(base(), newRow) {
		t.Fatalf("is_active change not detected")
	}
	if priceOrCurrencyChanged(base(), newRow) {
		t.Fatalf("is_active change must not flag a replacement")
	}
}

func TestIdempotencyKeyStability(t *testing.T) {
	a := idempotencyKey("product", 7, "Widget", true)
	b := idempotencyKey("product", 7, "Widget", true)
	if a != b {
		t.Fatalf("same inputs must produce the same key: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "product-7-") {
		t.Fatalf("unexpected key shape: %q", a)
	}
	if c := idempotencyKey("product", 7, "Widget", false); c == a {
		t.Fatalf("different fields must produce a different key")
	}
	if d := idempotencyKey("product", 8, "Widget", true); d == a {
		t.Fatalf("different rows must produce a different key")
	}
}
