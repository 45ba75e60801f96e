package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidPhoneNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"valid number", "13800138000", true},
		{"valid number other prefix", "18612345678", true},
		{"empty", "", false},
		{"too short", "12345", false},
		{"too long", "138001380001", false},
		{"does not start with 1", "23800138000", false},
		{"contains letter", "1380013800a", false},
		{"contains space", "13800 38000", false},
		{"non-ascii digits", "１３８００１３８０００", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidPhoneNumber(tt.input))
		})
	}
}

func TestParseCarrier(t *testing.T) {
	assert.Equal(t, CarrierChinaMobile, ParseCarrier("china_mobile"))
	assert.Equal(t, CarrierChinaUnicom, ParseCarrier("china_unicom"))
	assert.Equal(t, CarrierChinaTelecom, ParseCarrier("china_telecom"))
	assert.Equal(t, CarrierUnknown, ParseCarrier("unknown"))
	assert.Equal(t, CarrierUnknown, ParseCarrier(""))
	assert.Equal(t, CarrierUnknown, ParseCarrier("t-mobile"))
}

func TestCarrierDisplayName(t *testing.T) {
	assert.Equal(t, "中国移动", CarrierChinaMobile.DisplayName())
	assert.Equal(t, "未知", CarrierUnknown.DisplayName())
	assert.Equal(t, "未知", Carrier("bogus").DisplayName())
}

func TestPhoneLocationString(t *testing.T) {
	loc := PhoneLocation{
		PhoneNumber: "13800138000",
		Province:    "北京市",
		City:        "北京市",
		Carrier:     CarrierChinaMobile,
		IsValid:     true,
	}
	assert.Equal(t, "13800138000 - 北京市 北京市 中国移动", loc.String())
}
