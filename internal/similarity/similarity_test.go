package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"paypal.com", "paypal.com", 0},
		{"paypal.com", "paypa1.com", 1},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"раураl.com", "paypal.com", 5},
		{"amazon.fr", "amazon.com", 3},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, EditDistance(tt.a, tt.b))
			assert.Equal(t, tt.want, EditDistance(tt.b, tt.a), "distance must be symmetric")
		})
	}
}

func TestClassify(t *testing.T) {
	official := []string{"paypal.com"}

	m, d := Classify("paypal.com", official, DefaultCloseness)
	assert.Equal(t, Exact, m)
	assert.Equal(t, "paypal.com", d)

	m, d = Classify("paypa1.com", official, DefaultCloseness)
	assert.Equal(t, Lookalike, m)
	assert.Equal(t, "paypal.com", d)

	m, d = Classify("evil.tk", official, DefaultCloseness)
	assert.Equal(t, Unrelated, m)
	assert.Empty(t, d)

	m, _ = Classify("anything", nil, DefaultCloseness)
	assert.Equal(t, Unrelated, m)
}

func TestClassify_ExactWinsOverEarlierLookalike(t *testing.T) {
	m, d := Classify("paypal.com", []string{"paypal.co", "paypal.com"}, DefaultCloseness)
	assert.Equal(t, Exact, m)
	assert.Equal(t, "paypal.com", d)
}

func TestMatchString(t *testing.T) {
	assert.Equal(t, "exact", Exact.String())
	assert.Equal(t, "lookalike", Lookalike.String())
	assert.Equal(t, "unrelated", Unrelated.String())
}
