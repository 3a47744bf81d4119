package billing

import (
	"strings"

	"github.com/divan/num2words"
	"github.com/shopspring/decimal"
)

var thaiDigits = [10]string{
	"ศูนย์", "หนึ่ง", "สอง", "สาม", "สี่", "ห้า", "หก", "เจ็ด", "แปด", "เก้า",
}

var thaiPlaces = [6]string{"", "สิบ", "ร้อย", "พัน", "หมื่น", "แสน"}

// thaiNumber spells out a non-negative integer in Thai. hasPrefix
// reports that something precedes this group (a higher ล้าน group),
// which turns a trailing one into เอ็ด.
func thaiNumber(n int64, hasPrefix bool) string {
	if n == 0 {
		if hasPrefix {
			return ""
		}
		return thaiDigits[0]
	}
	if n >= 1_000_000 {
		high := thaiNumber(n/1_000_000, hasPrefix)
		return high + "ล้าน" + thaiNumber(n%1_000_000, true)
	}

	digits := make([]int, 0, 6)
	for v := n; v > 0; v /= 10 {
		digits = append(digits, int(v%10))
	}

	var b strings.Builder
	for place := len(digits) - 1; place >= 0; place-- {
		d := digits[place]
		if d == 0 {
			continue
		}
		switch {
		case place == 1 && d == 1:
			b.WriteString("สิบ")
		case place == 1 && d == 2:
			b.WriteString("ยี่สิบ")
		case place == 0 && d == 1 && (len(digits) > 1 || hasPrefix):
			b.WriteString("เอ็ด")
		default:
			b.WriteString(thaiDigits[d])
			b.WriteString(thaiPlaces[place])
		}
	}
	return b.String()
}

// splitBahtSatang splits an amount into whole baht and satang, working
// on the absolute value banked to two places.
func splitBahtSatang(amount decimal.Decimal) (baht, satang int64, negative bool) {
	banked := amount.Round(2)
	negative = banked.IsNegative()
	banked = banked.Abs()
	baht = banked.IntPart()
	satang = banked.Sub(decimal.NewFromInt(baht)).Mul(decimal.NewFromInt(100)).IntPart()
	return baht, satang, negative
}

// ThaiBahtWords renders an amount as the conventional Thai currency
// phrase: whole baht, then either สตางค์ or the ถ้วน terminator.
func ThaiBahtWords(amount decimal.Decimal) string {
	baht, satang, negative := splitBahtSatang(amount)

	var b strings.Builder
	if negative {
		b.WriteString("ลบ")
	}
	b.WriteString(thaiNumber(baht, false))
	b.WriteString("บาท")
	if satang == 0 {
		b.WriteString("ถ้วน")
	} else {
		b.WriteString(thaiNumber(satang, false))
		b.WriteString("สตางค์")
	}
	return b.String()
}

// EnglishBahtWords renders an amount as an English cardinal phrase,
// e.g. "two thousand three hundred baht and fifty satang".
func EnglishBahtWords(amount decimal.Decimal) string {
	baht, satang, negative := splitBahtSatang(amount)

	var b strings.Builder
	if negative {
		b.WriteString("minus ")
	}
	b.WriteString(num2words.Convert(int(baht)))
	b.WriteString(" baht")
	if satang > 0 {
		b.WriteString(" and ")
		b.WriteString(num2words.Convert(int(satang)))
		b.WriteString(" satang")
	}
	return b.String()
}
