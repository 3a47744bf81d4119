package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is one guest's utility bill for a billing period. It is built
// once by the Mapper and not modified afterwards; every monetary and
// metering value is already banked to two decimal places.
type Record struct {
	GuestName string
	Room      string
	Email     string

	WaterStart decimal.Decimal
	WaterEnd   decimal.Decimal
	WaterUsed  decimal.Decimal
	WaterPrice decimal.Decimal
	WaterTotal decimal.Decimal

	ElectricStart decimal.Decimal
	ElectricEnd   decimal.Decimal
	ElectricUsed  decimal.Decimal
	ElectricPrice decimal.Decimal
	ElectricTotal decimal.Decimal

	Subtotal decimal.Decimal
	VAT      decimal.Decimal
	Total    decimal.Decimal

	PeriodStart time.Time
	PeriodEnd   time.Time
	CreatedAt   time.Time

	InvoiceNumber string

	// Total spelled out, Thai baht phrase and English cardinal phrase.
	TotalWordsTH string
	TotalWordsEN string

	Deposit decimal.Decimal

	// Paid is nil when the workbook carries no payment mark.
	Paid *bool
}

// Period returns the record's billing period as "YYYY-MM", used for the
// period-scoped output directory. Falls back to the creation date when
// the workbook carried no period start.
func (r *Record) Period() string {
	d := r.PeriodStart
	if d.IsZero() {
		d = r.CreatedAt
	}
	return d.Format("2006-01")
}

// PaidLabel returns the display value for the paid flag: "PAID",
// "UNPAID", or empty when the workbook carried no mark.
func (r *Record) PaidLabel() string {
	if r.Paid == nil {
		return ""
	}
	if *r.Paid {
		return "PAID"
	}
	return "UNPAID"
}
