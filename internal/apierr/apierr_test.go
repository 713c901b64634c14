package apierr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapUnwrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(CodeUnparseableTime, "bad time column", cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "bad time column")
}

func TestNewHasNoCause(t *testing.T) {
	err := New(CodeMissingColumn, "missing close")
	require.Nil(t, err.Unwrap())
}

func TestStatusCodeMapsValidationCodesTo400(t *testing.T) {
	require.Equal(t, 400, StatusCode(CodeMissingColumn))
	require.Equal(t, 400, StatusCode(CodeInvalidRange))
	require.Equal(t, 500, StatusCode(Code("something_else")))
}
