package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItoa(t *testing.T) {
	assert.Equal(t, "0", itoa(0))
	assert.Equal(t, "-42", itoa(-42))
	assert.Equal(t, "18446744073709551615", utoa64(^uint64(0)))
}

func TestAtoiRange(t *testing.T) {
	n, ok := atoiRange("16", 1, 16)
	assert.True(t, ok)
	assert.Equal(t, 16, n)

	for _, s := range []string{"", "17", "0", "1a", "-1", "00001"} {
		_, ok := atoiRange(s, 1, 16)
		assert.False(t, ok, s)
	}
}
