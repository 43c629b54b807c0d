package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderBag_SetReplacesExisting(t *testing.T) {
	h := NewHeaderBag()
	h.Add("X-Foo", "1")
	h.Add("X-Foo", "2")
	h.Set("X-Foo", "3")
	assert.Equal(t, []string{"3"}, h.GetAll("X-Foo"))
}

func TestHeaderBag_CaseInsensitiveLookupPreservesFirstSeenCasing(t *testing.T) {
	h := NewHeaderBag()
	h.Add("Content-Type", "text/plain")
	assert.Equal(t, "text/plain", h.Get("content-type"))
	assert.True(t, h.Contains("CONTENT-TYPE"))
	assert.Equal(t, []string{"Content-Type"}, h.Names())
}

func TestHeaderBag_AddPreservesInsertionOrderAcrossNames(t *testing.T) {
	h := NewHeaderBag()
	h.Add("A", "1")
	h.Add("B", "2")
	h.Add("A", "3")

	var got []string
	h.Range(func(name, value string) { got = append(got, name+"="+value) })
	assert.Equal(t, []string{"A=1", "B=2", "A=3"}, got)
}

func TestHeaderBag_PopRemovesAllValuesUnderName(t *testing.T) {
	h := NewHeaderBag()
	h.Add("A", "1")
	h.Add("B", "2")
	h.Add("A", "3")

	popped := h.Pop("a")
	assert.Equal(t, []string{"1", "3"}, popped)
	assert.False(t, h.Contains("A"))
	assert.Equal(t, []string{"B"}, h.Names())
}

func TestHeaderBag_CombinedValueJoinsWithCommaExceptSetCookie(t *testing.T) {
	h := NewHeaderBag()
	h.Add("Accept", "a")
	h.Add("Accept", "b")
	assert.Equal(t, "a, b", h.CombinedValue("Accept"))

	h.Add("Set-Cookie", "one=1")
	h.Add("Set-Cookie", "two=2")
	assert.Len(t, h.GetAll("Set-Cookie"), 2)
	assert.True(t, IsSetCookie("set-cookie"))
}

func TestHeaderBag_WireLinesEmitsEachValueSeparately(t *testing.T) {
	h := NewHeaderBag()
	h.Add("Set-Cookie", "one=1")
	h.Add("Set-Cookie", "two=2")

	lines := h.WireLines()
	assert.Len(t, lines, 2)
	assert.Equal(t, "one=1", lines[0].Value())
	assert.Equal(t, "two=2", lines[1].Value())
}

func TestHeaderBag_CloneIsIndependent(t *testing.T) {
	h := NewHeaderBag()
	h.Add("X-Foo", "1")

	clone := h.Clone()
	clone.Add("X-Foo", "2")

	assert.Equal(t, []string{"1"}, h.GetAll("X-Foo"))
	assert.Equal(t, []string{"1", "2"}, clone.GetAll("X-Foo"))
}

func TestHeaderBag_GetOnMissingNameReturnsEmpty(t *testing.T) {
	h := NewHeaderBag()
	assert.Equal(t, "", h.Get("Missing"))
	assert.Nil(t, h.GetAll("Missing"))
}
