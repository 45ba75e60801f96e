package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupForm struct {
	PhoneNumber    string `json:"phone_number" validate:"omitempty,cnphone"`
	TimeoutSeconds int    `json:"timeout_seconds" validate:"omitempty,gt=0"`
}

func TestValidateStruct_CNPhone(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		form      lookupForm
		wantField string
	}{
		{"valid number", lookupForm{PhoneNumber: "13800138000"}, ""},
		{"empty number passes omitempty", lookupForm{}, ""},
		{"too short", lookupForm{PhoneNumber: "12345"}, "phone_number"},
		{"wrong prefix", lookupForm{PhoneNumber: "23800138000"}, "phone_number"},
		{"letters", lookupForm{PhoneNumber: "1380013800a"}, "phone_number"},
		{"negative timeout", lookupForm{PhoneNumber: "13800138000", TimeoutSeconds: -5}, "timeout_seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fieldErrs, err := v.ValidateStruct(&tt.form)
			if tt.wantField == "" {
				assert.NoError(t, err)
				assert.Empty(t, fieldErrs)
				return
			}
			require.Error(t, err)
			require.Len(t, fieldErrs, 1)
			assert.Equal(t, tt.wantField, fieldErrs[0].Field)
			assert.NotEmpty(t, fieldErrs[0].Message)
		})
	}
}

func TestValidateVar(t *testing.T) {
	v := New()
	assert.NoError(t, v.ValidateVar("13800138000", "cnphone"))
	assert.Error(t, v.ValidateVar("not-a-number", "cnphone"))
}
