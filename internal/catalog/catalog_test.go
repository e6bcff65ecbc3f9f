package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	c := Load()
	require.NotEmpty(t, c.Charts)
	require.NotEmpty(t, c.Categories)

	for _, ch := range c.Charts {
		assert.NotZero(t, ch.ID)
		assert.NotEmpty(t, ch.Title)
		assert.NotEmpty(t, ch.URL)
		assert.Contains(t, c.Categories, ch.Category)
	}

	assert.Same(t, c, Load(), "repeated loads share the parsed catalog")
}

func TestLookup(t *testing.T) {
	c := Load()
	ch, ok := c.Lookup(c.Charts[0].ID)
	require.True(t, ok)
	assert.Equal(t, c.Charts[0], ch)

	_, ok = c.Lookup(-1)
	assert.False(t, ok)
}

func TestFilterKnown(t *testing.T) {
	c := Load()
	id := c.Charts[0].ID
	assert.Equal(t, []int{id}, c.FilterKnown([]int{id, 9999}))
	assert.Empty(t, c.FilterKnown([]int{9999}))
	assert.Empty(t, c.FilterKnown(nil))
}

func TestResolvePreservesOrder(t *testing.T) {
	c := Load()
	require.GreaterOrEqual(t, len(c.Charts), 2)
	a, b := c.Charts[0].ID, c.Charts[1].ID

	got := c.Resolve([]int{b, 9999, a})
	require.Len(t, got, 2)
	assert.Equal(t, b, got[0].ID)
	assert.Equal(t, a, got[1].ID)
}

func TestByCategory(t *testing.T) {
	c := Load()
	groups := c.ByCategory()

	total := 0
	for cat, charts := range groups {
		assert.NotEmpty(t, charts)
		for _, ch := range charts {
			assert.Equal(t, cat, ch.Category)
		}
		total += len(charts)
	}
	assert.Equal(t, len(c.Charts), total)
}
