package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/palmsuites/invoicegen/internal/config"
)

// RawRow is one spreadsheet row keyed by column header. Cells the sheet
// does not have come through as empty strings.
type RawRow map[string]string

// Column headers as they appear in the source workbooks.
const (
	ColGuestName     = "Guest name"
	ColRoom          = "Room no."
	ColEmail         = "E-mail"
	ColWaterStart    = "Water start"
	ColWaterEnd      = "Water end"
	ColElectricStart = "Electric start"
	ColElectricEnd   = "Electric end"
	ColPeriodStart   = "Date from"
	ColPeriodEnd     = "Date to"
	ColPaid          = "Paid"
)

// Mapper turns raw rows into billing records. Mapping never fails:
// malformed cells degrade to zero values, and the only non-record
// outcome is the skip of fully blank rows.
type Mapper struct {
	waterPrice    decimal.Decimal
	electricPrice decimal.Decimal
	vatRate       decimal.Decimal
	deposits      map[string]decimal.Decimal

	now func() time.Time
}

// NewMapper builds a Mapper with the configured unit prices and VAT
// rate. deposits is keyed by canonical room key and may be nil.
func NewMapper(cfg config.BillingConfig, deposits map[string]decimal.Decimal) *Mapper {
	return &Mapper{
		waterPrice:    decimal.NewFromFloat(cfg.WaterUnitPrice).Round(2),
		electricPrice: decimal.NewFromFloat(cfg.ElectricUnitPrice).Round(2),
		vatRate:       decimal.NewFromFloat(cfg.VATRate),
		deposits:      deposits,
		now:           time.Now,
	}
}

// Map converts one raw row into a Record. ordinal is the row's 1-based
// position within the upload batch and seeds the invoice number. The
// second return is false when the row is blank padding (no guest name
// and no room) and must be skipped.
func (m *Mapper) Map(row RawRow, ordinal int) (*Record, bool) {
	name := strings.TrimSpace(row[ColGuestName])
	room := strings.TrimSpace(row[ColRoom])
	if name == "" && room == "" {
		return nil, false
	}

	r := &Record{
		GuestName:     name,
		Room:          room,
		Email:         strings.TrimSpace(row[ColEmail]),
		WaterStart:    parseAmount(row[ColWaterStart]),
		WaterEnd:      parseAmount(row[ColWaterEnd]),
		WaterPrice:    m.waterPrice,
		ElectricStart: parseAmount(row[ColElectricStart]),
		ElectricEnd:   parseAmount(row[ColElectricEnd]),
		ElectricPrice: m.electricPrice,
		PeriodStart:   serialToDate(row[ColPeriodStart]),
		PeriodEnd:     serialToDate(row[ColPeriodEnd]),
		CreatedAt:     m.now(),
		Paid:          parsePaid(row[ColPaid]),
	}

	r.WaterUsed = r.WaterEnd.Sub(r.WaterStart).Round(2)
	r.ElectricUsed = r.ElectricEnd.Sub(r.ElectricStart).Round(2)
	r.WaterTotal = r.WaterUsed.Mul(r.WaterPrice).Round(2)
	r.ElectricTotal = r.ElectricUsed.Mul(r.ElectricPrice).Round(2)
	r.Subtotal = r.WaterTotal.Add(r.ElectricTotal)
	r.VAT = r.Subtotal.Mul(m.vatRate).Round(2)
	r.Total = r.Subtotal.Add(r.VAT)

	r.InvoiceNumber = invoiceNumber(r, ordinal)
	r.TotalWordsTH = ThaiBahtWords(r.Total)
	r.TotalWordsEN = EnglishBahtWords(r.Total)

	if m.deposits != nil {
		if dep, ok := m.deposits[CanonicalRoomKey(room)]; ok {
			r.Deposit = dep.Round(2)
		}
	}

	return r, true
}

// invoiceNumber builds PS{YYYY}{MM}-{NNN} from the billing-period year
// and month and the record's ordinal within the batch.
func invoiceNumber(r *Record, ordinal int) string {
	d := r.PeriodStart
	if d.IsZero() {
		d = r.CreatedAt
	}
	return fmt.Sprintf("PS%04d%02d-%03d", d.Year(), int(d.Month()), ordinal)
}

// parseAmount reads a numeric cell, defaulting to zero on anything
// unparsable, and banks to two places.
func parseAmount(cell string) decimal.Decimal {
	s := strings.TrimSpace(cell)
	if s == "" {
		return decimal.Zero.Round(2)
	}
	// Tolerate thousands separators and comma decimals from
	// locale-formatted cells.
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero.Round(2)
	}
	return d.Round(2)
}

func parsePaid(cell string) *bool {
	s := strings.ToLower(strings.TrimSpace(cell))
	if s == "" {
		return nil
	}
	var paid bool
	switch s {
	case "1", "yes", "y", "paid", "true", "да", "оплачено":
		paid = true
	}
	return &paid
}
