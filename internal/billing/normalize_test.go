package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalRoomKey(t *testing.T) {
	tests := []struct {
		name  string
		room  string
		want  string
	}{
		{"plain latin", "A101", "A101"},
		{"lowercase uppercased", "a101", "A101"},
		{"trimmed", "  B205 ", "B205"},
		{"cyrillic A", "А101", "A101"},
		{"cyrillic VER", "В205", "B205"},
		{"lowercase cyrillic", "с12", "C12"},
		{"mixed alphabet", "А-10В1", "A-10B1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalRoomKey(tt.room))
		})
	}
}

func TestCanonicalRoomKey_HomoglyphsCollide(t *testing.T) {
	// The whole point: visually identical strings differing only in
	// alphabet must produce the same lookup key.
	latin := "CE-12"
	cyrillic := "СЕ-12"
	assert.NotEqual(t, latin, cyrillic)
	assert.Equal(t, CanonicalRoomKey(latin), CanonicalRoomKey(cyrillic))
}
