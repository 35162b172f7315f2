package services

import (
	"math"

	"github.com/yaswanth65/houseway-backend/internal/models"
)

// Money math for orders. Roll-ups are recomputed by an explicit pure
// function that mutation sites call before persisting, so the invariant
//
//	total = subtotal + tax.amount - discount.amount + deliveryCharge
//
// is testable in isolation.

// round2 rounds to currency precision (2 decimal places).
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeTotals recomputes line totals and every monetary roll-up on the
// order, including payment-term derived amounts. Call after any item or rate
// mutation, before persisting.
func ComputeTotals(o *models.Order) {
	var subtotal float64
	for i := range o.Items {
		o.Items[i].Total = round2(o.Items[i].Quantity * o.Items[i].UnitPrice)
		subtotal += o.Items[i].Total
	}
	o.SubTotal = round2(subtotal)

	o.TaxAmount = round2(o.SubTotal * o.TaxRate)

	switch o.DiscountType {
	case models.DiscountFixed:
		o.DiscountAmount = round2(math.Min(o.DiscountValue, o.SubTotal))
	default: // percent
		o.DiscountAmount = round2(o.SubTotal * o.DiscountValue)
	}

	o.TotalAmount = round2(o.SubTotal + o.TaxAmount - o.DiscountAmount + o.DeliveryCharge)

	o.AdvanceAmount = round2(o.TotalAmount * o.AdvancePercent / 100)
	o.BalanceAmount = round2(o.TotalAmount - o.AdvanceAmount)
}

// quotationTotals sums the quoted lines and fills per-line totals. Returns the
// subtotal; the quoted Amount on the message stays authoritative for the
// negotiated final amount.
func quotationTotals(items []models.MessageItem) float64 {
	var subtotal float64
	for i := range items {
		items[i].Total = round2(items[i].Quantity * items[i].UnitPrice)
		subtotal += items[i].Total
	}
	return round2(subtotal)
}
