// File: api/errors_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-engine/api"
)

func TestWrapErrorUnwrapsToCause(t *testing.T) {
	err := api.WrapError(api.ErrCodeTransport, "submit_to", api.ErrShardUnavailable)
	assert.ErrorIs(t, err, api.ErrShardUnavailable)

	var se *api.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, api.ErrCodeTransport, se.Code)
}

func TestErrorMessageIncludesContext(t *testing.T) {
	err := api.NewError(api.ErrCodeInternal, "registry").WithContext("group", 3)
	assert.Contains(t, err.Error(), "registry")
	assert.Contains(t, err.Error(), "group")
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("root")
	err := api.WrapError(api.ErrCodeConstruction, "start", cause)
	assert.Contains(t, err.Error(), "start")
	assert.Contains(t, err.Error(), "root")
}

func TestPanicErrorCarriesValue(t *testing.T) {
	err := &api.PanicError{Value: "kaboom"}
	assert.Contains(t, err.Error(), "kaboom")

	var pe *api.PanicError
	require.ErrorAs(t, error(err), &pe)
	assert.Equal(t, "kaboom", pe.Value)
}

func TestClockKindString(t *testing.T) {
	assert.Equal(t, "steady", api.ClockSteady.String())
	assert.Equal(t, "lowres", api.ClockLowres.String())
	assert.Equal(t, "manual", api.ClockManual.String())
	assert.Equal(t, "unknown", api.ClockKind(42).String())
}
