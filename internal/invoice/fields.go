package invoice

import (
	"encoding/base64"
	"os"
	"path/filepath"

	"github.com/palmsuites/invoicegen/internal/billing"
)

// Assets are the static images embedded into every invoice. They are
// inlined as data URIs so the rendering tab has no file dependencies.
type Assets struct {
	LogoDataURI string
	QRDataURI   string
}

// LoadAssets reads logo.png and qr.png from the assets directory.
// Missing images inline as empty strings; the layout decides whether
// that matters.
func LoadAssets(dir string) Assets {
	return Assets{
		LogoDataURI: dataURI(filepath.Join(dir, "logo.png")),
		QRDataURI:   dataURI(filepath.Join(dir, "qr.png")),
	}
}

func dataURI(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}

// Fields flattens a record into the placeholder map the template
// binds. Every monetary and metering value is fixed to two decimals
// here and nowhere else downstream.
func Fields(r *billing.Record, assets Assets) map[string]string {
	return map[string]string{
		"name":           r.GuestName,
		"room":           r.Room,
		"email":          r.Email,
		"water_start":    r.WaterStart.StringFixed(2),
		"water_end":      r.WaterEnd.StringFixed(2),
		"water_used":     r.WaterUsed.StringFixed(2),
		"water_price":    r.WaterPrice.StringFixed(2),
		"water_total":    r.WaterTotal.StringFixed(2),
		"electric_start": r.ElectricStart.StringFixed(2),
		"electric_end":   r.ElectricEnd.StringFixed(2),
		"electric_used":  r.ElectricUsed.StringFixed(2),
		"electric_price": r.ElectricPrice.StringFixed(2),
		"electric_total": r.ElectricTotal.StringFixed(2),
		"subtotal":       r.Subtotal.StringFixed(2),
		"vat":            r.VAT.StringFixed(2),
		"total":          r.Total.StringFixed(2),
		"deposit":        r.Deposit.StringFixed(2),
		"date_from":      billing.FormatDate(r.PeriodStart),
		"date_to":        billing.FormatDate(r.PeriodEnd),
		"created":        billing.FormatDate(r.CreatedAt),
		"invoice_number": r.InvoiceNumber,
		"total_words_th": r.TotalWordsTH,
		"total_words_en": r.TotalWordsEN,
		"paid":           r.PaidLabel(),
		"logo_base64":    assets.LogoDataURI,
		"qr_base64":      assets.QRDataURI,
	}
}
