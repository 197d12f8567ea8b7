package catalog

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2/log"

	"github.com/mercatosoft/catalogsync/app/models"
)

// CreateCatalogProduct inserts a local product row and mirrors it into the
// billing catalog inline, writing the remote id back before returning.
func (s *Service) CreateCatalogProduct(ctx context.Context, p *models.Product) error {
	if err := p.Validate(); err != nil {
		return &ValidationError{Msg: err.Error()}
	}
	if err := s.repo.CreateProduct(p); err != nil {
		return &LocalWriteError{Op: "product insert", Err: err}
	}

	unlock := s.locks.Lock(p.ID)
	defer unlock()

	stripeID, err := s.createRemoteProductFromModel(ctx, p)
	if err != nil {
		return err
	}
	p.StripeProductID = stripeID
	return nil
}

// UpdateCatalogProduct persists an already-merged product row and pushes the
// new state to the billing catalog, creating the remote product on demand.
func (s *Service) UpdateCatalogProduct(ctx context.Context, p *models.Product) error {
	if err := p.Validate(); err != nil {
		return &ValidationError{Msg: err.Error()}
	}
	if err := s.repo.SaveProduct(p); err != nil {
		return &LocalWriteError{Op: "product update", Err: err}
	}

	unlock := s.locks.Lock(p.ID)
	defer unlock()

	if !p.IsSynced() {
		stripeID, err := s.createRemoteProductFromModel(ctx, p)
		if err != nil {
			return err
		}
		p.StripeProductID = stripeID
		return nil
	}
	return s.billing.UpdateProduct(ctx, p.StripeProductID, productInputFromModel(p))
}

// DeleteCatalogProduct archives the product's remote prices, archives (or
// falls back to deleting) the remote product, then removes the local rows.
// Remote 404s are tolerated: the desired end state already holds.
func (s *Service) DeleteCatalogProduct(ctx context.Context, productID uint) error {
	p, err := s.repo.GetProduct(productID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(productID)
	defer unlock()

	priceIDs, err := s.repo.ListPlanStripeIDs(productID)
	if err != nil {
		return err
	}
	for _, priceID := range priceIDs {
		if err := s.billing.DeactivatePrice(ctx, priceID); err != nil && !errors.Is(err, ErrRemoteNotFound) {
			// Keep going so one stuck price does not block product removal.
			log.Errorf("[Catalog] Failed to archive Stripe price %s: %v", priceID, err)
		}
	}

	if p.IsSynced() {
		if err := s.billing.ArchiveProduct(ctx, p.StripeProductID); err != nil && !errors.Is(err, ErrRemoteNotFound) {
			// Archiving fails for some legacy objects; deletion is the fallback.
			if delErr := s.billing.DeleteProduct(ctx, p.StripeProductID); delErr != nil && !errors.Is(delErr, ErrRemoteNotFound) {
				return delErr
			}
		}
	}

	return s.repo.DeleteProductCascade(productID)
}

// GetCatalogProduct fetches a local product row.
func (s *Service) GetCatalogProduct(productID uint) (*models.Product, error) {
	return s.repo.GetProduct(productID)
}

// ListActivePlans returns active pricing plans joined with product info.
func (s *Service) ListActivePlans() ([]PlanWithProduct, error) {
	return s.repo.ListActivePlans()
}

// RecordSyncEvent persists an inbound event for audit and replay diagnosis.
func (s *Service) RecordSyncEvent(ev *models.CatalogSyncEvent) error {
	return s.repo.CreateSyncEvent(ev)
}

// MarkSyncEventProcessed stamps an audit row with its processing outcome.
func (s *Service) MarkSyncEventProcessed(id uint, processingErr error) error {
	msg := ""
	if processingErr != nil {
		msg = processingErr.Error()
	}
	return s.repo.MarkSyncEventProcessed(id, msg)
}

func (s *Service) createRemoteProductFromModel(ctx context.Context, p *models.Product) (string, error) {
	in := productInputFromModel(p)
	key := idempotencyKey("product", p.ID, in.Name, in.Active, in.Description, in.ImageURLs, in.Metadata)

	stripeID, err := s.billing.CreateProduct(ctx, in, key)
	if err != nil {
		return "", err
	}
	if err := s.repo.SetProductStripeID(p.ID, stripeID); err != nil {
		return "", &LocalWriteError{Op: "product stripe_product_id", Err: err}
	}
	return stripeID, nil
}

func productInputFromModel(p *models.Product) ProductInput {
	urls := make([]interface{}, 0, len(p.LinksToImage))
	for _, u := range p.LinksToImage {
		urls = append(urls, u)
	}
	return ProductInput{
		Name:        p.ProductName,
		Active:      p.IsDisplayed,
		Description: p.ProductDescription,
		ImageURLs:   ValidImageURLs(urls),
		Metadata:    FlattenAttrs(p.Attrs),
	}
}
