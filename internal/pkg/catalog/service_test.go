package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/mercatosoft/catalogsync/app/models"
)

// fakeRepository keeps the stripe id mappings in maps and records writes.
type fakeRepository struct {
	productStripeIDs map[uint]string
	planStripeIDs    map[uint]string
	productWrites    int
	planWrites       int
	writeErr         error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		productStripeIDs: map[uint]string{},
		planStripeIDs:    map[uint]string{},
	}
}

func (r *fakeRepository) GetProduct(id uint) (*models.Product, error) {
	if _, ok := r.productStripeIDs[id]; !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Product{ID: id, StripeProductID: r.productStripeIDs[id]}, nil
}

func (r *fakeRepository) GetProductStripeID(productID uint) (string, error) {
	id, ok := r.productStripeIDs[productID]
	if !ok {
		return "", gorm.ErrRecordNotFound
	}
	return id, nil
}

func (r *fakeRepository) SetProductStripeID(productID uint, stripeProductID string) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	r.productStripeIDs[productID] = stripeProductID
	r.productWrites++
	return nil
}

func (r *fakeRepository) SetPlanStripeID(planID uint, stripePriceID string) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	r.planStripeIDs[planID] = stripePriceID
	r.planWrites++
	return nil
}

func (r *fakeRepository) CreateProduct(p *models.Product) error {
	p.ID = uint(len(r.productStripeIDs) + 1)
	r.productStripeIDs[p.ID] = ""
	return nil
}

func (r *fakeRepository) SaveProduct(p *models.Product) error            { return nil }
func (r *fakeRepository) DeleteProductCascade(productID uint) error      { return nil }
func (r *fakeRepository) ListPlanStripeIDs(uint) ([]string, error)       { return nil, nil }
func (r *fakeRepository) ListActivePlans() ([]PlanWithProduct, error)    { return nil, nil }
func (r *fakeRepository) CreateSyncEvent(*models.CatalogSyncEvent) error { return nil }
func (r *fakeRepository) MarkSyncEventProcessed(uint, string) error      { return nil }

// fakeClient simulates the remote catalog in memory.
type fakeClient struct {
	nextID          int
	products        map[string]ProductInput
	prices          map[string]PriceInput
	priceActive     map[string]bool
	defaultPrice    map[string]string
	createdProducts int
	createdPrices   int
	updatedProducts int
	updatedPrices   int
	notFound        bool
	failCreate      error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		products:     map[string]ProductInput{},
		prices:       map[string]PriceInput{},
		priceActive:  map[string]bool{},
		defaultPrice: map[string]string{},
	}
}

func (c *fakeClient) CreateProduct(ctx context.Context, in ProductInput, idemKey string) (string, error) {
	if c.failCreate != nil {
		return "", c.failCreate
	}
	c.nextID++
	c.createdProducts++
	id := fmt.Sprintf("prod_%d", c.nextID)
	c.products[id] = in
	return id, nil
}

func (c *fakeClient) UpdateProduct(ctx context.Context, stripeProductID string, in ProductInput) error {
	c.updatedProducts++
	c.products[stripeProductID] = in
	return nil
}

func (c *fakeClient) DeleteProduct(ctx context.Context, stripeProductID string) error {
	if c.notFound {
		return &RemoteError{Op: "product delete", Err: ErrRemoteNotFound}
	}
	delete(c.products, stripeProductID)
	return nil
}

func (c *fakeClient) ArchiveProduct(ctx context.Context, stripeProductID string) error {
	return nil
}

func (c *fakeClient) DefaultPriceID(ctx context.Context, stripeProductID string) (string, error) {
	return c.defaultPrice[stripeProductID], nil
}

func (c *fakeClient) SetDefaultPrice(ctx context.Context, stripeProductID, stripePriceID string) error {
	c.defaultPrice[stripeProductID] = stripePriceID
	return nil
}

func (c *fakeClient) CreatePrice(ctx context.Context, in PriceInput, idemKey string) (string, error) {
	if c.failCreate != nil {
		return "", c.failCreate
	}
	c.nextID++
	c.createdPrices++
	id := fmt.Sprintf("price_%d", c.nextID)
	c.prices[id] = in
	c.priceActive[id] = in.Active
	return id, nil
}

func (c *fakeClient) UpdatePrice(ctx context.Context, stripePriceID string, active bool, metadata map[string]string) error {
	c.updatedPrices++
	c.priceActive[stripePriceID] = active
	return nil
}

func (c *fakeClient) DeactivatePrice(ctx context.Context, stripePriceID string) error {
	if c.notFound {
		return &RemoteError{Op: "price deactivate", Err: ErrRemoteNotFound}
	}
	c.priceActive[stripePriceID] = false
	return nil
}

func newTestService() (*Service, *fakeRepository, *fakeClient) {
	repo := newFakeRepository()
	client := newFakeClient()
	return NewService(repo, client), repo, client
}

func mustProcess(t *testing.T, svc *Service, body string) Result {
	t.Helper()
	ev, err := ParseEvent([]byte(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err := svc.ProcessEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	return res
}

func TestProductInsertCreatesAndPersistsID(t *testing.T) {
	svc, repo, client := newTestService()
	repo.productStripeIDs[1] = ""

	res := mustProcess(t, svc, `{"table":"product","eventType":"INSERT","new":{"id":1,"product_name":"Widget","links_to_image":["not-a-url","http://ok.test/a.png","ftp://bad"]}}`)

	if res.Message != "Created Stripe product prod_1" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if repo.productStripeIDs[1] != "prod_1" {
		t.Fatalf("stripe id not written back: %q", repo.productStripeIDs[1])
	}
	if repo.productWrites != 1 {
		t.Fatalf("expected exactly one id write-back, got %d", repo.productWrites)
	}
	in := client.products["prod_1"]
	if len(in.ImageURLs) != 1 || in.ImageURLs[0] != "http://ok.test/a.png" {
		t.Fatalf("image urls not filtered: %v", in.ImageURLs)
	}
	if !in.Active {
		t.Fatalf("absent is_displayed must default to active")
	}
}

func TestProductUpdateNoChanges(t *testing.T) {
	svc, _, client := newTestService()

	row := `{"id":1,"product_name":"Widget","is_displayed":true,"product_description":"d","attrs":{"k":"v"},"stripe_product_id":"prod_9"}`
	res := mustProcess(t, svc, `{"table":"product","eventType":"UPDATE","old":`+row+`,"new":`+row+`}`)

	if res.Message != "No changes to sync" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if client.createdProducts != 0 || client.updatedProducts != 0 {
		t.Fatalf("identical rows must not touch the remote catalog")
	}
}

func TestProductUpdateCreatesWhenUnsynced(t *testing.T) {
	svc, repo, client := newTestService()
	repo.productStripeIDs[1] = ""

	res := mustProcess(t, svc, `{"table":"product","eventType":"UPDATE","old":{"id":1,"product_name":"Widget"},"new":{"id":1,"product_name":"Widget v2"}}`)

	if res.Message != "Created Stripe product prod_1" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if client.createdProducts != 1 || client.updatedProducts != 0 {
		t.Fatalf("unsynced update must create, not update")
	}
}

func TestProductUpdateAppliesChanges(t *testing.T) {
	svc, _, client := newTestService()

	res := mustProcess(t, svc, `{"table":"product","eventType":"UPDATE","old":{"id":1,"product_name":"Widget","stripe_product_id":"prod_9"},"new":{"id":1,"product_name":"Widget v2","stripe_product_id":"prod_9"}}`)

	if res.Message != "Updated Stripe product prod_9" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if client.updatedProducts != 1 {
		t.Fatalf("expected one remote update, got %d", client.updatedProducts)
	}
	if client.products["prod_9"].Name != "Widget v2" {
		t.Fatalf("remote name not updated: %q", client.products["prod_9"].Name)
	}
}

func TestProductDelete(t *testing.T) {
	svc, _, client := newTestService()

	res := mustProcess(t, svc, `{"table":"product","eventType":"DELETE","old":{"id":1,"product_name":"Widget","stripe_product_id":"prod_9"}}`)
	if res.Message != "Deleted Stripe product prod_9" {
		t.Fatalf("unexpected message: %q", res.Message)
	}

	// A remote object already gone still counts as deleted.
	client.notFound = true
	res = mustProcess(t, svc, `{"table":"product","eventType":"DELETE","old":{"id":1,"product_name":"Widget","stripe_product_id":"prod_9"}}`)
	if res.Message != "Deleted Stripe product prod_9" {
		t.Fatalf("remote 404 must be tolerated, got %q", res.Message)
	}

	res = mustProcess(t, svc, `{"table":"product","eventType":"DELETE","old":{"id":1,"product_name":"Widget"}}`)
	if res.Message != "Nothing to delete in Stripe" {
		t.Fatalf("unexpected message for unsynced product: %q", res.Message)
	}
}

func TestPlanInsertPromotesFirstPriceToDefault(t *testing.T) {
	svc, repo, client := newTestService()
	repo.productStripeIDs[1] = "prod_9"

	res := mustProcess(t, svc, `{"table":"pricingplan","eventType":"INSERT","new":{"id":3,"product_id":1,"price":1999,"currency":"eur","type":"recurring","recurring_interval":"month","recurring_interval_count":1}}`)

	if res.Message != "Created Stripe price price_1" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if repo.planStripeIDs[3] != "price_1" {
		t.Fatalf("stripe price id not written back: %q", repo.planStripeIDs[3])
	}
	if client.defaultPrice["prod_9"] != "price_1" {
		t.Fatalf("first price must become the product default, got %q", client.defaultPrice["prod_9"])
	}
	in := client.prices["price_1"]
	if !in.Recurring || in.Interval != "month" || in.UnitAmount != 1999 || in.Currency != "eur" {
		t.Fatalf("unexpected price input: %+v", in)
	}

	// A second price must not displace the existing default.
	res = mustProcess(t, svc, `{"table":"pricingplan","eventType":"INSERT","new":{"id":4,"product_id":1,"price":9999,"currency":"eur","type":"one_time"}}`)
	if res.Message != "Created Stripe price price_2" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if client.defaultPrice["prod_9"] != "price_1" {
		t.Fatalf("existing default must be kept, got %q", client.defaultPrice["prod_9"])
	}
}

func TestPlanInsertUnsyncedProduct(t *testing.T) {
	svc, _, client := newTestService()

	ev, err := ParseEvent([]byte(`{"table":"pricingplan","eventType":"INSERT","new":{"id":3,"product_id":1,"price":1999,"currency":"eur","type":"one_time"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = svc.ProcessEvent(context.Background(), ev)
	if !errors.Is(err, ErrProductNotSynced) {
		t.Fatalf("expected ErrProductNotSynced, got %v", err)
	}
	if client.createdPrices != 0 {
		t.Fatalf("no price must be created for an unsynced product")
	}
}

func TestPlanUpdateWriteBackGuard(t *testing.T) {
	svc, _, client := newTestService()

	oldRow := `{"id":3,"product_id":1,"price":1999,"currency":"eur","is_active":true,"type":"one_time","stripe_price_id":""}`
	newRow := `{"id":3,"product_id":1,"price":1999,"currency":"eur","is_active":true,"type":"one_time","stripe_price_id":"price_7"}`
	res := mustProcess(t, svc, `{"table":"pricingplan","eventType":"UPDATE","old":`+oldRow+`,"new":`+newRow+`}`)

	if res.Message != "No meaningful changes to sync" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if client.createdPrices != 0 || client.updatedPrices != 0 {
		t.Fatalf("write-back echo must not touch the remote catalog")
	}
}

func TestPlanUpdateWithoutOldRow(t *testing.T) {
	svc, repo, client := newTestService()
	repo.productStripeIDs[1] = "prod_9"

	// A synced plan cannot be diffed without the previous row: rejected
	// before any remote call.
	_, err := ParseEvent([]byte(`{"table":"pricingplan","eventType":"UPDATE","new":{"id":3,"product_id":1,"price":2999,"currency":"eur","is_active":true,"type":"one_time","stripe_price_id":"price_old"}}`))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if verr.Msg != "Missing oldData for UPDATE" {
		t.Fatalf("unexpected message: %q", verr.Msg)
	}
	if client.createdPrices != 0 {
		t.Fatalf("rejected update must not touch the remote catalog")
	}

	// An unsynced plan has nothing to diff against and behaves like an
	// insert.
	res := mustProcess(t, svc, `{"table":"pricingplan","eventType":"UPDATE","new":{"id":3,"product_id":1,"price":2999,"currency":"eur","is_active":true,"type":"one_time"}}`)
	if res.Message != "Created Stripe price price_1" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if client.createdPrices != 1 {
		t.Fatalf("expected one created price, got %d", client.createdPrices)
	}
}

func TestPlanUpdatePriceChangeReplacesPrice(t *testing.T) {
	svc, repo, client := newTestService()
	repo.productStripeIDs[1] = "prod_9"
	client.priceActive["price_old"] = true
	client.defaultPrice["prod_9"] = "price_old"

	oldRow := `{"id":3,"product_id":1,"price":1999,"currency":"eur","is_active":true,"type":"one_time","stripe_price_id":"price_old"}`
	newRow := `{"id":3,"product_id":1,"price":2999,"currency":"eur","is_active":true,"type":"one_time","stripe_price_id":"price_old"}`
	res := mustProcess(t, svc, `{"table":"pricingplan","eventType":"UPDATE","old":`+oldRow+`,"new":`+newRow+`}`)

	if res.Message != "Created new Stripe price price_1" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if client.priceActive["price_old"] {
		t.Fatalf("old price must be deactivated")
	}
	if repo.planStripeIDs[3] != "price_1" {
		t.Fatalf("new price id not written back: %q", repo.planStripeIDs[3])
	}
	if client.defaultPrice["prod_9"] != "price_1" {
		t.Fatalf("default must be repointed to the replacement, got %q", client.defaultPrice["prod_9"])
	}
}

func TestPlanUpdateDefaultNotRepointedWhenOtherPriceIsDefault(t *testing.T) {
	svc, repo, client := newTestService()
	repo.productStripeIDs[1] = "prod_9"
	client.defaultPrice["prod_9"] = "price_other"

	oldRow := `{"id":3,"product_id":1,"price":1999,"currency":"eur","type":"one_time","stripe_price_id":"price_old"}`
	newRow := `{"id":3,"product_id":1,"price":2999,"currency":"eur","type":"one_time","stripe_price_id":"price_old"}`
	mustProcess(t, svc, `{"table":"pricingplan","eventType":"UPDATE","old":`+oldRow+`,"new":`+newRow+`}`)

	if client.defaultPrice["prod_9"] != "price_other" {
		t.Fatalf("default pointing elsewhere must stay put, got %q", client.defaultPrice["prod_9"])
	}
}

func TestPlanUpdateInPlace(t *testing.T) {
	svc, _, client := newTestService()
	client.priceActive["price_7"] = true

	oldRow := `{"id":3,"product_id":1,"price":1999,"currency":"eur","is_active":true,"type":"one_time","stripe_price_id":"price_7"}`
	newRow := `{"id":3,"product_id":1,"price":1999,"currency":"eur","is_active":false,"type":"one_time","stripe_price_id":"price_7"}`
	res := mustProcess(t, svc, `{"table":"pricingplan","eventType":"UPDATE","old":`+oldRow+`,"new":`+newRow+`}`)

	if res.Message != "Updated Stripe price price_7" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if client.createdPrices != 0 {
		t.Fatalf("metadata/activity change must not mint a new price")
	}
	if client.priceActive["price_7"] {
		t.Fatalf("price must be deactivated in place")
	}
}

func TestPlanDelete(t *testing.T) {
	svc, _, client := newTestService()
	client.priceActive["price_7"] = true

	res := mustProcess(t, svc, `{"table":"pricingplan","eventType":"DELETE","old":{"id":3,"stripe_price_id":"price_7"}}`)
	if res.Message != "Deactivated Stripe price price_7" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if client.priceActive["price_7"] {
		t.Fatalf("price must be deactivated")
	}

	client.notFound = true
	res = mustProcess(t, svc, `{"table":"pricingplan","eventType":"DELETE","old":{"id":3,"stripe_price_id":"price_7"}}`)
	if res.Message != "Deactivated Stripe price price_7" {
		t.Fatalf("remote 404 must be tolerated, got %q", res.Message)
	}

	res = mustProcess(t, svc, `{"table":"pricingplan","eventType":"DELETE","old":{"id":3}}`)
	if res.Message != "Nothing to deactivate in Stripe" {
		t.Fatalf("unexpected message for unsynced plan: %q", res.Message)
	}
}

func TestUnknownEventIsIgnored(t *testing.T) {
	svc, _, client := newTestService()

	res := mustProcess(t, svc, `{"table":"orders","eventType":"INSERT","new":{"id":5}}`)
	if !res.Ignored {
		t.Fatalf("unknown table must be acknowledged as ignored")
	}
	if res.Message != "Event processed or ignored" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if client.createdProducts != 0 || client.createdPrices != 0 {
		t.Fatalf("ignored events must not touch the remote catalog")
	}
}

func TestWriteBackFailureSurfacesLocalWriteError(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.writeErr = errors.New("db gone")

	ev, err := ParseEvent([]byte(`{"table":"product","eventType":"INSERT","new":{"id":1,"product_name":"Widget"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = svc.ProcessEvent(context.Background(), ev)
	var lw *LocalWriteError
	if !errors.As(err, &lw) {
		t.Fatalf("expected *LocalWriteError, got %T: %v", err, err)
	}
}
