package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/mercatosoft/catalogsync/app/models"
)

// Service mirrors local Product/PricingPlan changes into the remote billing
// catalog. Handles are injected once per process and shared read-only across
// requests; per-event state lives on the stack.
type Service struct {
	repo    Repository
	billing Client
	locks   *productLocks
}

// NewService creates a catalog service from injected handles.
func NewService(repo Repository, billing Client) *Service {
	return &Service{repo: repo, billing: billing, locks: newProductLocks()}
}

// NewServiceFromDB creates a catalog service from a GORM DB handle and the
// env-configured billing client.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), NewStripeClientFromEnv())
}

// Result is the outcome of a processed event.
type Result struct {
	Message string
	Ignored bool
}

// ProcessEvent dispatches one change event to the matching sync handler.
// Events parsed as unrecognized are acknowledged as a no-op so the upstream
// event pipeline never blocks on event types we don't handle yet.
func (s *Service) ProcessEvent(ctx context.Context, ev *Event) (Result, error) {
	if !ev.Recognized {
		log.Warnf("[CatalogSync] Event ignored, no matching handler: table=%s eventType=%s", ev.Table, ev.EventType)
		return Result{Message: "Event processed or ignored", Ignored: true}, nil
	}

	switch {
	case ev.Table == "product" && ev.EventType == models.SyncEventInsert:
		return s.syncProductInsert(ctx, ev.NewProduct)
	case ev.Table == "product" && ev.EventType == models.SyncEventUpdate:
		return s.syncProductUpdate(ctx, ev.OldProduct, ev.NewProduct)
	case ev.Table == "product" && ev.EventType == models.SyncEventDelete:
		return s.syncProductDelete(ctx, ev.OldProduct)
	case ev.Table == "pricingplan" && ev.EventType == models.SyncEventInsert:
		return s.syncPlanInsert(ctx, ev.NewPlan)
	case ev.Table == "pricingplan" && ev.EventType == models.SyncEventUpdate:
		return s.syncPlanUpdate(ctx, ev.OldPlan, ev.NewPlan)
	case ev.Table == "pricingplan" && ev.EventType == models.SyncEventDelete:
		return s.syncPlanDelete(ctx, ev.OldPlan)
	default:
		return Result{}, fmt.Errorf("no handler for recognized event table=%s eventType=%s", ev.Table, ev.EventType)
	}
}

func (s *Service) syncProductInsert(ctx context.Context, row *ProductRow) (Result, error) {
	unlock := s.locks.Lock(row.ID)
	defer unlock()

	stripeID, err := s.createRemoteProduct(ctx, row)
	if err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("Created Stripe product %s", stripeID)}, nil
}

func (s *Service) syncProductUpdate(ctx context.Context, oldRow, newRow *ProductRow) (Result, error) {
	unlock := s.locks.Lock(newRow.ID)
	defer unlock()

	// Create-on-demand: an unsynced product behaves like an insert.
	if newRow.StripeProductID == "" {
		log.Infof("[CatalogSync] Product %d lacks stripe_product_id, creating new", newRow.ID)
		stripeID, err := s.createRemoteProduct(ctx, newRow)
		if err != nil {
			return Result{}, err
		}
		return Result{Message: fmt.Sprintf("Created Stripe product %s", stripeID)}, nil
	}

	if !productChanged(oldRow, newRow) {
		log.Infof("[CatalogSync] No changes for product %d, skipping", newRow.ID)
		return Result{Message: "No changes to sync"}, nil
	}

	if err := s.billing.UpdateProduct(ctx, newRow.StripeProductID, productInputFromRow(newRow)); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("Updated Stripe product %s", newRow.StripeProductID)}, nil
}

func (s *Service) syncProductDelete(ctx context.Context, oldRow *ProductRow) (Result, error) {
	if oldRow.StripeProductID == "" {
		log.Infof("[CatalogSync] Product %d lacks stripe_product_id, nothing to delete", oldRow.ID)
		return Result{Message: "Nothing to delete in Stripe"}, nil
	}

	unlock := s.locks.Lock(oldRow.ID)
	defer unlock()

	if err := s.billing.DeleteProduct(ctx, oldRow.StripeProductID); err != nil {
		if errors.Is(err, ErrRemoteNotFound) {
			log.Infof("[CatalogSync] Product %s already deleted in Stripe", oldRow.StripeProductID)
		} else {
			return Result{}, err
		}
	}
	return Result{Message: fmt.Sprintf("Deleted Stripe product %s", oldRow.StripeProductID)}, nil
}

func (s *Service) syncPlanInsert(ctx context.Context, row *PricingPlanRow) (Result, error) {
	unlock := s.locks.Lock(row.ProductID)
	defer unlock()

	stripeProductID, err := s.productStripeID(row.ProductID)
	if err != nil {
		return Result{}, err
	}

	stripePriceID, err := s.createRemotePrice(ctx, row, stripeProductID)
	if err != nil {
		return Result{}, err
	}

	// Promote the first price of a product to default.
	defaultPrice, err := s.billing.DefaultPriceID(ctx, stripeProductID)
	if err != nil {
		return Result{}, err
	}
	if defaultPrice == "" {
		if err := s.billing.SetDefaultPrice(ctx, stripeProductID, stripePriceID); err != nil {
			return Result{}, err
		}
		log.Infof("[CatalogSync] Set default_price %s for product %s", stripePriceID, stripeProductID)
	}

	return Result{Message: fmt.Sprintf("Created Stripe price %s", stripePriceID)}, nil
}

func (s *Service) syncPlanUpdate(ctx context.Context, oldRow, newRow *PricingPlanRow) (Result, error) {
	// Guard against reacting to our own stripe_price_id write-back.
	if oldRow != nil && planFieldsEqual(oldRow, newRow) && oldRow.StripePriceID != newRow.StripePriceID {
		log.Infof("[CatalogSync] Only stripe_price_id changed for pricingplan %d, likely from sync, skipping", newRow.ID)
		return Result{Message: "No meaningful changes to sync"}, nil
	}

	unlock := s.locks.Lock(newRow.ProductID)
	defer unlock()

	// Create-on-demand: an unsynced plan behaves like an insert.
	if newRow.StripePriceID == "" {
		log.Infof("[CatalogSync] Pricingplan %d lacks stripe_price_id, creating new", newRow.ID)
		stripeProductID, err := s.productStripeID(newRow.ProductID)
		if err != nil {
			return Result{}, err
		}
		stripePriceID, err := s.createRemotePrice(ctx, newRow, stripeProductID)
		if err != nil {
			return Result{}, err
		}
		return Result{Message: fmt.Sprintf("Created Stripe price %s", stripePriceID)}, nil
	}

	if planFieldsEqual(oldRow, newRow) {
		log.Infof("[CatalogSync] No meaningful changes for pricingplan %d, skipping", newRow.ID)
		return Result{Message: "No meaningful changes to sync"}, nil
	}

	// Remote prices are immutable in amount and currency: replace, deactivate
	// the old price, and repoint the product default if it was the old one.
	if priceOrCurrencyChanged(oldRow, newRow) {
		stripeProductID, err := s.productStripeID(newRow.ProductID)
		if err != nil {
			return Result{}, err
		}

		newStripePriceID, err := s.createRemotePrice(ctx, newRow, stripeProductID)
		if err != nil {
			return Result{}, err
		}

		if err := s.billing.DeactivatePrice(ctx, oldRow.StripePriceID); err != nil {
			return Result{}, err
		}
		log.Infof("[CatalogSync] Deactivated old price %s", oldRow.StripePriceID)

		defaultPrice, err := s.billing.DefaultPriceID(ctx, stripeProductID)
		if err != nil {
			return Result{}, err
		}
		if defaultPrice == oldRow.StripePriceID {
			if err := s.billing.SetDefaultPrice(ctx, stripeProductID, newStripePriceID); err != nil {
				return Result{}, err
			}
			log.Infof("[CatalogSync] Updated default_price to %s for product %s", newStripePriceID, stripeProductID)
		}

		return Result{Message: fmt.Sprintf("Created new Stripe price %s", newStripePriceID)}, nil
	}

	// Only is_active/metadata changed: update the existing price in place.
	if err := s.billing.UpdatePrice(ctx, newRow.StripePriceID, activeOrDefault(newRow.IsActive), FlattenAttrs(newRow.Attrs)); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("Updated Stripe price %s", newRow.StripePriceID)}, nil
}

func (s *Service) syncPlanDelete(ctx context.Context, oldRow *PricingPlanRow) (Result, error) {
	if oldRow.StripePriceID == "" {
		log.Infof("[CatalogSync] Pricingplan %d lacks stripe_price_id, nothing to deactivate", oldRow.ID)
		return Result{Message: "Nothing to deactivate in Stripe"}, nil
	}

	if err := s.billing.DeactivatePrice(ctx, oldRow.StripePriceID); err != nil {
		if errors.Is(err, ErrRemoteNotFound) {
			log.Infof("[CatalogSync] Price %s already deleted in Stripe", oldRow.StripePriceID)
		} else {
			return Result{}, err
		}
	}
	return Result{Message: fmt.Sprintf("Deactivated Stripe price %s", oldRow.StripePriceID)}, nil
}

// createRemoteProduct creates the remote product and writes the returned id
// back onto the local row. A write-back failure is fatal for the event: the
// remote object would otherwise dangle without a local mapping.
func (s *Service) createRemoteProduct(ctx context.Context, row *ProductRow) (string, error) {
	in := productInputFromRow(row)
	key := idempotencyKey("product", row.ID, in.Name, in.Active, in.Description, in.ImageURLs, in.Metadata)

	stripeID, err := s.billing.CreateProduct(ctx, in, key)
	if err != nil {
		return "", err
	}
	if err := s.repo.SetProductStripeID(row.ID, stripeID); err != nil {
		return "", &LocalWriteError{Op: "product stripe_product_id", Err: err}
	}
	log.Infof("[CatalogSync] Created Stripe product %s for product %d", stripeID, row.ID)
	return stripeID, nil
}

func (s *Service) createRemotePrice(ctx context.Context, row *PricingPlanRow, stripeProductID string) (string, error) {
	in := priceInputFromRow(row, stripeProductID)
	key := idempotencyKey("pricingplan", row.ID, in.UnitAmount, in.Currency, in.Active, in.Recurring, in.Interval, in.IntervalCount, in.Metadata)

	stripePriceID, err := s.billing.CreatePrice(ctx, in, key)
	if err != nil {
		return "", err
	}
	if err := s.repo.SetPlanStripeID(row.ID, stripePriceID); err != nil {
		return "", &LocalWriteError{Op: "pricingplan stripe_price_id", Err: err}
	}
	log.Infof("[CatalogSync] Created Stripe price %s for pricingplan %d", stripePriceID, row.ID)
	return stripePriceID, nil
}

// productStripeID resolves the owning product's remote id, or
// ErrProductNotSynced when the product is missing or not yet synced.
func (s *Service) productStripeID(productID uint) (string, error) {
	stripeID, err := s.repo.GetProductStripeID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrProductNotSynced
		}
		return "", err
	}
	if stripeID == "" {
		return "", ErrProductNotSynced
	}
	return stripeID, nil
}

func productInputFromRow(row *ProductRow) ProductInput {
	return ProductInput{
		Name:        row.ProductName,
		Active:      displayedOrDefault(row.IsDisplayed),
		Description: row.ProductDescription,
		ImageURLs:   ValidImageURLs(row.LinksToImage),
		Metadata:    FlattenAttrs(row.Attrs),
	}
}

func priceInputFromRow(row *PricingPlanRow, stripeProductID string) PriceInput {
	return PriceInput{
		StripeProductID: stripeProductID,
		UnitAmount:      row.Price,
		Currency:        row.Currency,
		Active:          activeOrDefault(row.IsActive),
		Recurring:       row.Type == models.PlanTypeRecurring,
		Interval:        row.RecurringInterval,
		IntervalCount:   row.RecurringIntervalCount,
		Metadata:        FlattenAttrs(row.Attrs),
	}
}
