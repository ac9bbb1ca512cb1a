package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  string
	}{
		{"empty", "", ""},
		{"plus prefixed", "+15551234567", "+*******4567"},
		{"bare digits", "15551234567", "*******4567"},
		{"short number", "123", "***"},
		{"exactly four", "1234", "****"},
		{"five digits", "12345", "*2345"},
		{"just plus", "+", "+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskPhone(tt.phone))
		})
	}
}

func TestMaskFields(t *testing.T) {
	masked := MaskFields(map[string]interface{}{
		"recipient": "15551234567",
		"from":      "+15550000001",
		"stage":     "policy",
		"count":     3,
	})

	assert.Equal(t, "*******4567", masked["recipient"])
	assert.Equal(t, "+*******0001", masked["from"])
	assert.Equal(t, "policy", masked["stage"])
	assert.Equal(t, 3, masked["count"])
}

func TestMaskFields_NonStringValueLeftAlone(t *testing.T) {
	masked := MaskFields(map[string]interface{}{"recipient": 12345})
	assert.Equal(t, 12345, masked["recipient"])
}
