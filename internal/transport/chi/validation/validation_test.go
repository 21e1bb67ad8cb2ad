package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/cmsdex/internal/domain"
)

type dateRange struct {
	Start string `json:"start" validate:"required,cmsdate"`
	End   string `json:"end" validate:"omitempty,cmsdate"`
}

type query struct {
	Keyword string `json:"keyword" validate:"notblank,max=10"`
}

func TestStruct_OK(t *testing.T) {
	v := New()
	assert.NoError(t, v.Struct(dateRange{Start: "2020-01-01"}))
	assert.NoError(t, v.Struct(dateRange{Start: "2020-01-01", End: "2020-01-03"}))
	assert.NoError(t, v.Struct(query{Keyword: "flood"}))
}

func TestStruct_Messages(t *testing.T) {
	v := New()

	err := v.Struct(dateRange{End: "tomorrow"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	var ve *Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{
		"The start field is required.",
		"The end is not a valid date.",
	}, ve.Messages)
}

func TestStruct_BlankKeyword(t *testing.T) {
	v := New()
	for _, kw := range []string{"", "   ", "\t"} {
		err := v.Struct(query{Keyword: kw})
		var ve *Error
		require.ErrorAs(t, err, &ve, "keyword %q", kw)
		assert.Equal(t, []string{"The keyword field is required."}, ve.Messages)
	}
}

func TestStruct_MaxLength(t *testing.T) {
	err := New().Struct(query{Keyword: "a very long keyword"})
	var ve *Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"The keyword may not be greater than 10 characters."}, ve.Messages)
}
