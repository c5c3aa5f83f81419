package response

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestException_WrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Exception(cause)

	assert.Equal(t, KindException, err.Kind)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestException_KeepsExistingEnvelope(t *testing.T) {
	nf := NotFound("")
	wrapped := fmt.Errorf("lookup: %w", nf)

	assert.Same(t, nf, Exception(wrapped))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotImplemented, KindOf(NotImplemented()))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, "Not found", NotFound("").Error())
}
