package validator

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type campaignForm struct {
	Code          string  `validate:"required,max=50"`
	Name          string  `validate:"required"`
	DiscountType  string  `validate:"required,oneof=percent absolute"`
	DiscountValue float64 `validate:"required,gt=0"`
}

func TestValidate_Success(t *testing.T) {
	f := campaignForm{Code: "MERCI10", Name: "Welcome", DiscountType: "percent", DiscountValue: 10}
	assert.NoError(t, Validate(f))
}

func TestValidate_MissingRequired(t *testing.T) {
	f := campaignForm{DiscountType: "percent", DiscountValue: 10}
	err := Validate(f)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "Code")
	assert.Contains(t, fields, "Name")
	assert.Equal(t, "is required", fields["Code"])
}

func TestValidate_OneOf(t *testing.T) {
	f := campaignForm{Code: "X", Name: "Y", DiscountType: "bogus", DiscountValue: 5}
	err := Validate(f)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["DiscountType"], "must be one of")
}

func TestValidate_ErrorMessageListsAllFields(t *testing.T) {
	f := campaignForm{}
	err := Validate(f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Code")
	assert.Contains(t, err.Error(), "DiscountValue")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := bytes.NewBufferString(`{"Code":"MERCI10","Name":"Welcome","DiscountType":"percent","DiscountValue":10}`)
	r := httptest.NewRequest("POST", "/", body)

	var f campaignForm
	assert.NoError(t, DecodeAndValidate(r, &f))
	assert.Equal(t, "MERCI10", f.Code)
}

func TestDecodeAndValidate_MalformedJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/", bytes.NewBufferString("{not json"))

	var f campaignForm
	err := DecodeAndValidate(r, &f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}
