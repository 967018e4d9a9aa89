package tokenizer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestEstimator_Count(t *testing.T) {
	c := Estimator()

	assert.Equal(t, "estimate", c.Method())
	assert.Equal(t, 0, c.Count(""))
	assert.Equal(t, 1, c.Count("abc"))
	assert.Equal(t, 1, c.Count("abcd"))
	assert.Equal(t, 2, c.Count("abcde"))
}

func TestEstimator_Truncate(t *testing.T) {
	c := Estimator()
	text := strings.Repeat("x", 100)

	assert.Equal(t, text, c.Truncate(text, 25))
	assert.Len(t, c.Truncate(text, 10), 40)
	assert.Equal(t, "", c.Truncate(text, 0))
}

func TestDefault_CountsTokens(t *testing.T) {
	c := Default()

	assert.Same(t, c, Default())
	assert.Greater(t, c.Count("The mitochondria is the powerhouse of the cell."), 5)
	assert.Equal(t, 0, c.Count(""))
}

func TestDefault_TruncateFitsBudget(t *testing.T) {
	c := Default()
	text := strings.Repeat("knowledge retrieval with screenshots ", 50)

	cut := c.Truncate(text, 20)

	assert.True(t, strings.HasPrefix(text, cut))
	assert.LessOrEqual(t, c.Count(cut), 20)
	assert.True(t, utf8.ValidString(cut))
}
