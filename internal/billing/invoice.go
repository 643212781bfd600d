package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/lagerhof/lagerhof/internal/identity"
)

// SettingsPort supplies the company billing configuration.
type SettingsPort interface {
	VATEnabled(ctx context.Context) (bool, error)
	VATRate(ctx context.Context) (float64, error)
	Currency(ctx context.Context) (string, error)
}

// SelectorPort yields the unpaid line items for one customer.
type SelectorPort interface {
	UnpaidLineItems(ctx context.Context, c *identity.Customer) ([]LineItem, error)
}

// Builder composes selector output into a priced, grouped invoice payload.
// Rendering, delivery and payment capture happen downstream of its return
// value.
type Builder struct {
	selector SelectorPort
	settings SettingsPort
	now      func() time.Time
}

// NewBuilder constructs a Builder.
func NewBuilder(selector SelectorPort, settings SettingsPort) *Builder {
	return &Builder{selector: selector, settings: settings, now: time.Now}
}

// groupOrder fixes the presentation order of line groups.
var groupOrder = []LineItemType{ItemUnit, ItemPallet, ItemOther}

// Build assembles the invoice aggregate for a customer. No unpaid items is
// a successful empty invoice, not an error.
func (b *Builder) Build(ctx context.Context, c *identity.Customer) (*Invoice, error) {
	items, err := b.selector.UnpaidLineItems(ctx, c)
	if err != nil {
		return nil, err
	}

	inv := &Invoice{
		CustomerID:   c.ID,
		CustomerName: c.Name,
		IssuedAt:     b.now(),
	}

	byType := make(map[LineItemType][]LineItem)
	for _, item := range items {
		byType[item.Type] = append(byType[item.Type], item)
		inv.Subtotal += item.Subtotal
	}
	inv.Subtotal = round2(inv.Subtotal)
	for _, t := range groupOrder {
		if grouped := byType[t]; len(grouped) > 0 {
			inv.Groups = append(inv.Groups, LineGroup{Type: t, Items: grouped})
		}
	}

	currency, err := b.settings.Currency(ctx)
	if err != nil {
		return nil, fmt.Errorf("billing: read currency: %w", err)
	}
	inv.Currency = currency

	enabled, err := b.settings.VATEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("billing: read vat flag: %w", err)
	}
	if enabled {
		rate, err := b.settings.VATRate(ctx)
		if err != nil {
			return nil, fmt.Errorf("billing: read vat rate: %w", err)
		}
		inv.VATRate = rate
		inv.VATAmount = round2(inv.Subtotal * rate / 100)
	}
	inv.GrandTotal = round2(inv.Subtotal + inv.VATAmount)
	return inv, nil
}
