package money

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	s := Format(149500)
	assert.True(t, strings.HasPrefix(s, "€ "))
	assert.Contains(t, s, "495")
	assert.Contains(t, s, ",00")

	assert.True(t, strings.HasPrefix(Format(-100), "-€ "))
}

func TestEuros(t *testing.T) {
	assert.Equal(t, "€ 49", Euros(4900))
}
