package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaycore/httpcore/internal/core/domain"
)

func TestValidHeaderName_RejectsDelimiters(t *testing.T) {
	assert.True(t, ValidHeaderName("X-Custom-Header"))
	assert.True(t, ValidHeaderName("Content-Type"))
	assert.False(t, ValidHeaderName(""))
	assert.False(t, ValidHeaderName("bad header"))
	assert.False(t, ValidHeaderName("bad:header"))
}

func TestValidHeaderValue_RejectsCRLFAndNUL(t *testing.T) {
	assert.True(t, ValidHeaderValue("normal value"))
	assert.False(t, ValidHeaderValue("bad\r\nvalue"))
	assert.False(t, ValidHeaderValue("bad\x00value"))
}

func TestValidateHeaders_ReturnsFirstViolation(t *testing.T) {
	bag := domain.NewHeaderBag()
	bag.Add("Good", "ok")
	bag.Add("Bad Name", "ok")

	err := ValidateHeaders(bag)
	require := assert.New(t)
	require.Error(err)
	require.Contains(err.Error(), "invalid header name")
}

func TestValidateHeaders_NilErrorWhenAllValid(t *testing.T) {
	bag := domain.NewHeaderBag()
	bag.Add("Accept", "*/*")
	assert.NoError(t, ValidateHeaders(bag))
}
