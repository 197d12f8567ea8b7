package catalog

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/price"
	"github.com/stripe/stripe-go/v82/product"

	"github.com/mercatosoft/catalogsync/internal/pkg/env"
)

// ProductInput carries the fields mirrored into a remote product.
type ProductInput struct {
	Name        string
	Active      bool
	Description string
	ImageURLs   []string
	Metadata    map[string]string
}

// PriceInput carries the fields for a remote price. Recurring fields are only
// sent when Recurring is true.
type PriceInput struct {
	StripeProductID string
	UnitAmount      int64
	Currency        string
	Active          bool
	Recurring       bool
	Interval        string
	IntervalCount   int64
	Metadata        map[string]string
}

// Client is the billing-provider surface the synchronizer needs. Deletion and
// deactivation return ErrRemoteNotFound (wrapped) on a provider 404 so callers
// can tolerate already-gone objects.
type Client interface {
	CreateProduct(ctx context.Context, in ProductInput, idemKey string) (string, error)
	UpdateProduct(ctx context.Context, stripeProductID string, in ProductInput) error
	DeleteProduct(ctx context.Context, stripeProductID string) error
	ArchiveProduct(ctx context.Context, stripeProductID string) error
	DefaultPriceID(ctx context.Context, stripeProductID string) (string, error)
	SetDefaultPrice(ctx context.Context, stripeProductID, stripePriceID string) error
	CreatePrice(ctx context.Context, in PriceInput, idemKey string) (string, error)
	UpdatePrice(ctx context.Context, stripePriceID string, active bool, metadata map[string]string) error
	DeactivatePrice(ctx context.Context, stripePriceID string) error
}

type stripeClient struct{}

// NewStripeClientFromEnv configures the global stripe key and returns a
// Client backed by the stripe SDK. Constructed once per process and shared
// read-only across requests.
func NewStripeClientFromEnv() Client {
	stripe.Key = strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", ""))
	return &stripeClient{}
}

func (c *stripeClient) CreateProduct(ctx context.Context, in ProductInput, idemKey string) (string, error) {
	params := &stripe.ProductParams{
		Name:   stripe.String(in.Name),
		Active: stripe.Bool(in.Active),
	}
	params.Context = ctx
	if in.Description != "" {
		params.Description = stripe.String(in.Description)
	}
	if len(in.ImageURLs) > 0 {
		params.Images = stripe.StringSlice(in.ImageURLs)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	if idemKey != "" {
		params.SetIdempotencyKey(idemKey)
	}

	p, err := product.New(params)
	if err != nil {
		return "", wrapStripeErr("product create", err)
	}
	return p.ID, nil
}

func (c *stripeClient) UpdateProduct(ctx context.Context, stripeProductID string, in ProductInput) error {
	params := &stripe.ProductParams{
		Name:   stripe.String(in.Name),
		Active: stripe.Bool(in.Active),
	}
	params.Context = ctx
	if in.Description != "" {
		params.Description = stripe.String(in.Description)
	}
	if len(in.ImageURLs) > 0 {
		params.Images = stripe.StringSlice(in.ImageURLs)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	_, err := product.Update(stripeProductID, params)
	return wrapStripeErr("product update", err)
}

func (c *stripeClient) DeleteProduct(ctx context.Context, stripeProductID string) error {
	params := &stripe.ProductParams{}
	params.Context = ctx
	_, err := product.Del(stripeProductID, params)
	return wrapStripeErr("product delete", err)
}

func (c *stripeClient) ArchiveProduct(ctx context.Context, stripeProductID string) error {
	params := &stripe.ProductParams{Active: stripe.Bool(false)}
	params.Context = ctx
	_, err := product.Update(stripeProductID, params)
	return wrapStripeErr("product archive", err)
}

func (c *stripeClient) DefaultPriceID(ctx context.Context, stripeProductID string) (string, error) {
	params := &stripe.ProductParams{}
	params.Context = ctx
	p, err := product.Get(stripeProductID, params)
	if err != nil {
		return "", wrapStripeErr("product retrieve", err)
	}
	if p.DefaultPrice == nil {
		return "", nil
	}
	return p.DefaultPrice.ID, nil
}

func (c *stripeClient) SetDefaultPrice(ctx context.Context, stripeProductID, stripePriceID string) error {
	params := &stripe.ProductParams{DefaultPrice: stripe.String(stripePriceID)}
	params.Context = ctx
	_, err := product.Update(stripeProductID, params)
	return wrapStripeErr("product default_price update", err)
}

func (c *stripeClient) CreatePrice(ctx context.Context, in PriceInput, idemKey string) (string, error) {
	params := &stripe.PriceParams{
		Product:    stripe.String(in.StripeProductID),
		UnitAmount: stripe.Int64(in.UnitAmount),
		Currency:   stripe.String(in.Currency),
		Active:     stripe.Bool(in.Active),
	}
	params.Context = ctx
	if in.Recurring {
		count := in.IntervalCount
		if count <= 0 {
			count = 1
		}
		params.Recurring = &stripe.PriceRecurringParams{
			Interval:      stripe.String(in.Interval),
			IntervalCount: stripe.Int64(count),
		}
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	if idemKey != "" {
		params.SetIdempotencyKey(idemKey)
	}

	p, err := price.New(params)
	if err != nil {
		return "", wrapStripeErr("price create", err)
	}
	return p.ID, nil
}

func (c *stripeClient) UpdatePrice(ctx context.Context, stripePriceID string, active bool, metadata map[string]string) error {
	params := &stripe.PriceParams{Active: stripe.Bool(active)}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	_, err := price.Update(stripePriceID, params)
	return wrapStripeErr("price update", err)
}

func (c *stripeClient) DeactivatePrice(ctx context.Context, stripePriceID string) error {
	params := &stripe.PriceParams{Active: stripe.Bool(false)}
	params.Context = ctx
	_, err := price.Update(stripePriceID, params)
	return wrapStripeErr("price deactivate", err)
}

func wrapStripeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
		return &RemoteError{Op: op, Err: ErrRemoteNotFound}
	}
	return &RemoteError{Op: op, Err: err}
}
