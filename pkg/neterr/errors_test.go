package neterr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"netsim/pkg/neterr"
)

func TestDriver_WrapsAndPreservesIs(t *testing.T) {
	cause := errors.New("handle busy")
	err := neterr.Driver(cause)

	assert.ErrorIs(t, err, neterr.ErrDriver)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "handle busy")
}

func TestDriver_NilPassesThrough(t *testing.T) {
	assert.NoError(t, neterr.Driver(nil))
}

func TestIO_WrapsAndPreservesIs(t *testing.T) {
	cause := errors.New("disk full")
	err := neterr.IO(cause)

	assert.ErrorIs(t, err, neterr.ErrIO)
	assert.ErrorIs(t, err, cause)
}

func TestIO_NilPassesThrough(t *testing.T) {
	assert.NoError(t, neterr.IO(nil))
}

func TestWrapped_DoesNotMatchUnrelatedSentinel(t *testing.T) {
	err := neterr.Driver(errors.New("boom"))
	assert.False(t, errors.Is(err, neterr.ErrIO))
}
