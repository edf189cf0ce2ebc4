package service

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// ServiceChargeRate is the fixed surcharge applied to every bill.
var ServiceChargeRate = decimal.NewFromFloat(0.125)

// OrderTotals is the derived monetary state of an order. Stored values keep
// fractional precision; only DisplayTotal rounds.
type OrderTotals struct {
	Subtotal      decimal.Decimal
	ServiceCharge decimal.Decimal
	Total         decimal.Decimal
}

// UnitPrice freezes the per-unit price at add-time: menu price plus the sum
// of the selected add-on prices.
func UnitPrice(menuPrice decimal.Decimal, addOnPrices []decimal.Decimal) decimal.Decimal {
	price := menuPrice
	for _, p := range addOnPrices {
		price = price.Add(p)
	}
	return price
}

// LineTotal is unit price times quantity.
func LineTotal(unitPrice decimal.Decimal, quantity int32) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt32(quantity))
}

// ComputeTotals derives order totals from the live line totals. Always
// recomputed from scratch after any item mutation; never patched
// incrementally.
func ComputeTotals(lineTotals []decimal.Decimal) OrderTotals {
	subtotal := decimal.Zero
	for _, lt := range lineTotals {
		subtotal = subtotal.Add(lt)
	}
	serviceCharge := subtotal.Mul(ServiceChargeRate)
	return OrderTotals{
		Subtotal:      subtotal,
		ServiceCharge: serviceCharge,
		Total:         subtotal.Add(serviceCharge),
	}
}

// TotalsFromSubtotal derives the service charge and total from an already
// summed subtotal (the transactional SUM over the item set).
func TotalsFromSubtotal(subtotal decimal.Decimal) OrderTotals {
	serviceCharge := subtotal.Mul(ServiceChargeRate)
	return OrderTotals{
		Subtotal:      subtotal,
		ServiceCharge: serviceCharge,
		Total:         subtotal.Add(serviceCharge),
	}
}

// DisplayTotal is the presentation-time rounding: ceiling to the next whole
// currency unit. The stored amount is never altered.
func DisplayTotal(amount decimal.Decimal) decimal.Decimal {
	return amount.Ceil()
}

// --- pgtype.Numeric conversion helpers ---

// NumericToDecimal converts a stored numeric to a decimal, zero when the
// value is NULL or unreadable.
func NumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// decimalToNumeric keeps the decimal's full scale: derived charges carry up
// to five fractional places and must round-trip through storage unchanged.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.String())
	return n
}
