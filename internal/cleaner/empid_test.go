package cleaner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNumericForms(t *testing.T) {
	n := NewNormalizer("RBIS")

	assert.Equal(t, "RBIS0007", n.Normalize("7"))
	assert.Equal(t, "RBIS0012", n.Normalize("RBIS-12"))
	assert.Equal(t, "RBIS0012", n.Normalize("rbis 12"))
	assert.Equal(t, "RBIS0012", n.Normalize("RBIS_12"))
	assert.Equal(t, "RBIS0001", n.Normalize("RBIS1"))
	assert.Equal(t, "RBIS12345", n.Normalize("12345"))
}

func TestNormalizePassthrough(t *testing.T) {
	n := NewNormalizer("RBIS")

	assert.Equal(t, "ADMIN7", n.Normalize("admin7"))
	assert.Equal(t, "RBIS-CEO1", n.Normalize("rbis-ceo1"))
	assert.Equal(t, "", n.Normalize(""))
	assert.Equal(t, "", n.Normalize("  "))
	assert.Equal(t, "", n.Normalize("nan"))
	assert.Equal(t, "", n.Normalize("NaN"))
}

func TestNormalizeIdempotent(t *testing.T) {
	n := NewNormalizer("RBIS")

	inputs := []string{"7", "0007", "RBIS-12", "rbis1", "ADMIN7", "RBIS0042", "12345", "x y z"}
	for _, in := range inputs {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), "normalize(normalize(%q))", in)
	}
}

func TestIsStrict(t *testing.T) {
	n := NewNormalizer("RBIS")

	assert.True(t, n.IsStrict("RBIS0007"))
	assert.False(t, n.IsStrict("RBIS007"))
	assert.False(t, n.IsStrict("RBIS00071"))
	assert.False(t, n.IsStrict("ADMIN7"))
	assert.False(t, n.IsStrict(""))
}

func TestNormalizerCustomPrefix(t *testing.T) {
	n := NewNormalizer("acme")

	assert.Equal(t, "ACME0003", n.Normalize("3"))
	assert.True(t, n.IsStrict("ACME0003"))
}
