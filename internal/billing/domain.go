package billing

import (
	"math"
	"time"
)

// LineItemType groups invoice lines by rental source.
type LineItemType string

const (
	// ItemUnit is a storage-unit charge.
	ItemUnit LineItemType = "unit"
	// ItemPallet is a pallet-slot charge.
	ItemPallet LineItemType = "pallet"
	// ItemOther covers manually added charges.
	ItemOther LineItemType = "other"
)

// LineItem is one billable rental charge, computed per invoice request and
// never persisted. Months is nil when the rental period is unknown; the
// charge then covers a single month.
type LineItem struct {
	Type        LineItemType `json:"type"`
	Name        string       `json:"name"`
	PeriodFrom  time.Time    `json:"period_from,omitzero"`
	PeriodUntil time.Time    `json:"period_until,omitzero"`
	Months      *int         `json:"months"`
	Qty         int          `json:"qty"`
	UnitPrice   float64      `json:"unit_price"`
	Subtotal    float64      `json:"subtotal"`
}

// LineGroup collects the items of one type, in selection order.
type LineGroup struct {
	Type  LineItemType `json:"type"`
	Items []LineItem   `json:"items"`
}

// Invoice is the priced aggregate handed to the rendering layer. An empty
// Groups slice is a valid invoice with nothing outstanding.
type Invoice struct {
	CustomerID   int64       `json:"customer_id"`
	CustomerName string      `json:"customer_name"`
	Groups       []LineGroup `json:"groups"`
	Subtotal     float64     `json:"subtotal"`
	VATRate      float64     `json:"vat_rate"`
	VATAmount    float64     `json:"vat_amount"`
	GrandTotal   float64     `json:"grand_total"`
	Currency     string      `json:"currency"`
	IssuedAt     time.Time   `json:"issued_at"`
}

// round2 rounds to whole cents.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
