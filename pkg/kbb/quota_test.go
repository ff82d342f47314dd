package kbb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuotaGauge_MonotoneMinimum(t *testing.T) {
	t.Parallel()

	g := NewQuotaGauge()
	assert.Equal(t, -1, g.Remaining())
	assert.False(t, g.Exhausted())

	for _, n := range []int{100, 80, 90} {
		g.Observe(n)
	}
	assert.Equal(t, 80, g.Remaining())
	assert.False(t, g.Exhausted())
}

func TestQuotaGauge_Exhausted(t *testing.T) {
	t.Parallel()

	g := NewQuotaGauge()
	g.Observe(1)
	assert.False(t, g.Exhausted())
	g.Observe(0)
	assert.True(t, g.Exhausted())

	// Later, larger readings must not revive a spent gauge.
	g.Observe(50)
	assert.True(t, g.Exhausted())
	assert.Equal(t, 0, g.Remaining())
}
