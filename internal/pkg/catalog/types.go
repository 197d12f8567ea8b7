package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/mercatosoft/catalogsync/app/models"
)

// ProductRow is the wire image of a product table row as the upstream change
// feed delivers it. Booleans are pointers so "field absent" stays
// distinguishable from an explicit false.
type ProductRow struct {
	ID                 uint                   `json:"id"`
	ProductName        string                 `json:"product_name"`
	IsDisplayed        *bool                  `json:"is_displayed"`
	ProductDescription string                 `json:"product_description"`
	LinksToImage       []interface{}          `json:"links_to_image"`
	Attrs              map[string]interface{} `json:"attrs"`
	StripeProductID    string                 `json:"stripe_product_id"`
}

// PricingPlanRow is the wire image of a pricingplan table row.
type PricingPlanRow struct {
	ID                     uint                   `json:"id"`
	ProductID              uint                   `json:"product_id"`
	Price                  int64                  `json:"price"`
	Currency               string                 `json:"currency"`
	IsActive               *bool                  `json:"is_active"`
	Type                   string                 `json:"type"`
	RecurringInterval      string                 `json:"recurring_interval"`
	RecurringIntervalCount int64                  `json:"recurring_interval_count"`
	Attrs                  map[string]interface{} `json:"attrs"`
	StripePriceID          string                 `json:"stripe_price_id"`
}

// Event is a parsed and validated change event. Exactly one of the typed row
// pairs is populated depending on Table; unrecognized (table, eventType)
// combinations parse successfully with Recognized=false so the receiver can
// acknowledge them without failing the upstream pipeline.
type Event struct {
	Table      string
	EventType  string
	Recognized bool

	NewProduct *ProductRow
	OldProduct *ProductRow
	NewPlan    *PricingPlanRow
	OldPlan    *PricingPlanRow
}

type envelope struct {
	Table     string          `json:"table"`
	EventType string          `json:"eventType"`
	New       json.RawMessage `json:"new"`
	Old       json.RawMessage `json:"old"`
}

// ParseEvent decodes and validates an inbound change event. All schema
// problems surface as *ValidationError before any side effect.
func ParseEvent(body []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, validationErrorf("Invalid request body")
	}
	if env.Table == "" || env.EventType == "" {
		return nil, validationErrorf("Missing table or eventType in payload")
	}

	ev := &Event{Table: env.Table, EventType: env.EventType}

	switch env.EventType {
	case models.SyncEventInsert, models.SyncEventUpdate, models.SyncEventDelete:
	default:
		return ev, nil
	}

	switch env.Table {
	case "product":
		ev.Recognized = true
		if err := decodeRow(env.New, &ev.NewProduct); err != nil {
			return nil, validationErrorf("Invalid newData for product %s: %v", env.EventType, err)
		}
		if err := decodeRow(env.Old, &ev.OldProduct); err != nil {
			return nil, validationErrorf("Invalid oldData for product %s: %v", env.EventType, err)
		}
	case "pricingplan":
		ev.Recognized = true
		if err := decodeRow(env.New, &ev.NewPlan); err != nil {
			return nil, validationErrorf("Invalid newData for pricingplan %s: %v", env.EventType, err)
		}
		if err := decodeRow(env.Old, &ev.OldPlan); err != nil {
			return nil, validationErrorf("Invalid oldData for pricingplan %s: %v", env.EventType, err)
		}
	default:
		return ev, nil
	}

	if err := ev.validate(); err != nil {
		return nil, err
	}
	return ev, nil
}

func decodeRow[T any](raw json.RawMessage, dst **T) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var row T
	if err := json.Unmarshal(raw, &row); err != nil {
		return err
	}
	*dst = &row
	return nil
}

func (ev *Event) validate() error {
	switch ev.Table {
	case "product":
		switch ev.EventType {
		case models.SyncEventInsert, models.SyncEventUpdate:
			if ev.NewProduct == nil || ev.NewProduct.ID == 0 || ev.NewProduct.ProductName == "" {
				return validationErrorf("Missing id or product_name in newData")
			}
		case models.SyncEventDelete:
			if ev.OldProduct == nil || ev.OldProduct.ID == 0 {
				return validationErrorf("Missing id in oldData")
			}
		}
	case "pricingplan":
		switch ev.EventType {
		case models.SyncEventInsert, models.SyncEventUpdate:
			p := ev.NewPlan
			if p == nil || p.ID == 0 || p.ProductID == 0 || p.Price == 0 || p.Currency == "" || p.Type == "" {
				return validationErrorf("Missing required fields in newData")
			}
			// Plan updates compare against the previous row to decide between
			// replacing and updating the remote price; without it a synced
			// plan could not be diffed safely.
			if ev.EventType == models.SyncEventUpdate && ev.OldPlan == nil && p.StripePriceID != "" {
				return validationErrorf("Missing oldData for UPDATE")
			}
		case models.SyncEventDelete:
			if ev.OldPlan == nil || ev.OldPlan.ID == 0 {
				return validationErrorf("Missing id in oldData")
			}
		}
	}
	return nil
}

// ValidImageURLs keeps only well-formed absolute http(s) URLs. Returns nil
// when nothing valid survives so the field can be omitted entirely instead
// of sending an empty list.
func ValidImageURLs(raw []interface{}) []string {
	var valid []string
	for _, entry := range raw {
		s, ok := entry.(string)
		if !ok {
			continue
		}
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		valid = append(valid, s)
	}
	return valid
}

// FlattenAttrs converts free-form metadata to the string-only map the billing
// provider accepts. Nested values are JSON-stringified, nils dropped. Returns
// nil for an empty result so the field is omitted.
func FlattenAttrs(attrs map[string]interface{}) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	flat := make(map[string]string, len(attrs))
	for k, v := range attrs {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			flat[k] = val
		case bool:
			flat[k] = fmt.Sprintf("%t", val)
		case float64:
			flat[k] = strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", val), "0"), ".")
		default:
			b, err := json.Marshal(val)
			if err != nil {
				continue
			}
			flat[k] = string(b)
		}
	}
	if len(flat) == 0 {
		return nil
	}
	return flat
}

func displayedOrDefault(b *bool) bool {
	if b == nil {
		return true
	}
	return *b
}

func activeOrDefault(b *bool) bool {
	if b == nil {
		return true
	}
	return *b
}

func normalizeList(l []interface{}) []interface{} {
	if l == nil {
		return []interface{}{}
	}
	return l
}

func normalizeMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

// productChanged compares the fields mirrored into the remote product.
// Image lists compare structurally and order-sensitive, attrs deep.
func productChanged(oldRow, newRow *ProductRow) bool {
	if oldRow == nil {
		return true
	}
	if oldRow.ProductName != newRow.ProductName {
		return true
	}
	if !reflect.DeepEqual(oldRow.IsDisplayed, newRow.IsDisplayed) {
		return true
	}
	if oldRow.ProductDescription != newRow.ProductDescription {
		return true
	}
	if !reflect.DeepEqual(normalizeList(oldRow.LinksToImage), normalizeList(newRow.LinksToImage)) {
		return true
	}
	return !reflect.DeepEqual(normalizeMap(oldRow.Attrs), normalizeMap(newRow.Attrs))
}

// planFieldsEqual compares all business fields of a pricing plan, ignoring
// the remote price id.
func planFieldsEqual(oldRow, newRow *PricingPlanRow) bool {
	if oldRow == nil {
		return false
	}
	return oldRow.Price == newRow.Price &&
		oldRow.Currency == newRow.Currency &&
		reflect.DeepEqual(oldRow.IsActive, newRow.IsActive) &&
		oldRow.Type == newRow.Type &&
		oldRow.RecurringInterval == newRow.RecurringInterval &&
		oldRow.RecurringIntervalCount == newRow.RecurringIntervalCount &&
		reflect.DeepEqual(normalizeMap(oldRow.Attrs), normalizeMap(newRow.Attrs))
}

func priceOrCurrencyChanged(oldRow, newRow *PricingPlanRow) bool {
	if oldRow == nil {
		return true
	}
	return oldRow.Price != newRow.Price || oldRow.Currency != newRow.Currency
}

// idempotencyKey derives a stable key from the row identity and a fingerprint
// of its business fields, so a replayed create after a write-back failure
// returns the already-created remote object instead of minting a duplicate.
func idempotencyKey(table string, rowID uint, fields ...interface{}) string {
	payload, _ := json.Marshal(fields)
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("%s-%d-%s", table, rowID, hex.EncodeToString(sum[:])[:16])
}
