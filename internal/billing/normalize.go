package billing

import "strings"

// Room identifiers in the observed workbooks are typed on mixed
// keyboard layouts: a "В" that looks like the Latin letter B may be the
// Cyrillic letter at a different code point, which silently misses the
// deposit table. homoglyphs maps each look-alike to its Latin twin.
var homoglyphs = map[rune]rune{
	'А': 'A', 'В': 'B', 'С': 'C', 'Е': 'E', 'Н': 'H', 'І': 'I',
	'К': 'K', 'М': 'M', 'О': 'O', 'Р': 'P', 'Т': 'T', 'Х': 'X',
	'У': 'Y', 'Ѕ': 'S', 'Ј': 'J',
	'а': 'a', 'в': 'b', 'с': 'c', 'е': 'e', 'н': 'h', 'і': 'i',
	'к': 'k', 'м': 'm', 'о': 'o', 'р': 'p', 'т': 't', 'х': 'x',
	'у': 'y', 'ѕ': 's', 'ј': 'j',
}

// CanonicalRoomKey folds look-alike letters to Latin, trims and
// uppercases, so that visually identical room identifiers compare
// equal as deposit-lookup keys.
func CanonicalRoomKey(room string) string {
	folded := strings.Map(func(r rune) rune {
		if latin, ok := homoglyphs[r]; ok {
			return latin
		}
		return r
	}, room)
	return strings.ToUpper(strings.TrimSpace(folded))
}
