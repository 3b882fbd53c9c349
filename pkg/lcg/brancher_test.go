package lcg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputOrderSelectsFirstUnfixed(t *testing.T) {
	a := NewAssignments()
	x := a.Grow(1, 5)
	y := a.Grow(1, 5)
	z := a.Grow(1, 5)
	ctx := NewSelectionContext(a)

	selector := &InputOrder{Variables: []DomainID{x, y, z}}

	selected, ok := selector.SelectVariable(ctx)
	require.True(t, ok)
	assert.Equal(t, x, selected)

	require.NoError(t, a.MakeAssignment(x, 2, NoReason))
	selected, ok = selector.SelectVariable(ctx)
	require.True(t, ok)
	assert.Equal(t, y, selected)

	require.NoError(t, a.MakeAssignment(y, 1, NoReason))
	require.NoError(t, a.MakeAssignment(z, 5, NoReason))
	_, ok = selector.SelectVariable(ctx)
	assert.False(t, ok)
}

func TestValueSelectors(t *testing.T) {
	a := NewAssignments()
	x := a.Grow(0, 10)
	ctx := NewSelectionContext(a)

	assert.Equal(t, Eq(x, 0), InDomainMin{}.SelectValue(ctx, x))
	assert.Equal(t, Eq(x, 10), InDomainMax{}.SelectValue(ctx, x))

	t.Run("reverse in-domain split halves from above", func(t *testing.T) {
		// Domain size 11: the split removes the lower six values.
		assert.Equal(t, Geq(x, 6), ReverseInDomainSplit{}.SelectValue(ctx, x))
	})

	t.Run("split on a two-value domain picks the upper value", func(t *testing.T) {
		y := a.Grow(1, 2)
		assert.Equal(t, Geq(y, 2), ReverseInDomainSplit{}.SelectValue(ctx, y))
	})
}

func TestIndependentBrancherComposes(t *testing.T) {
	a := NewAssignments()
	x := a.Grow(3, 9)
	ctx := NewSelectionContext(a)

	brancher := NewIndependentVariableValueBrancher(
		&InputOrder{Variables: []DomainID{x}}, InDomainMin{})

	decision, ok := brancher.NextDecision(ctx)
	require.True(t, ok)
	assert.Equal(t, Eq(x, 3), decision)

	require.NoError(t, a.MakeAssignment(x, 3, NoReason))
	_, ok = brancher.NextDecision(ctx)
	assert.False(t, ok)
}
