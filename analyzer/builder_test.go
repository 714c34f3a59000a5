package analyzer

import (
	"testing"

	"github.com/AtRiskMedia/keystone/aggregator"
	"github.com/AtRiskMedia/keystone/keystoneerr"
	"github.com/stretchr/testify/require"
)

func TestBuilderColumnNamedIDPanicsEagerly(t *testing.T) {
	b := NewBuilder(Config{})
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		require.ErrorIs(t, err, keystoneerr.ErrReservedColumn)
	}()
	b.Category("purchase").Column("id")
}

func TestBuilderInjectsSyntheticIDColumnForCategoryAggregators(t *testing.T) {
	b := NewBuilder(Config{})
	b.Category("purchase").Aggregator("event-count", func() aggregator.Aggregator { return aggregator.NewCounting("event-count") })

	categories, registrations := b.finalizeCategories()
	require.Len(t, categories, 1)
	idCol, ok := categories[0].IDColumn()
	require.True(t, ok)
	require.Len(t, idCol.Aggregators, 1)
	require.Contains(t, registrations, "event-count")
}

func TestBuilderMergesDuplicateAggregatorIDAcrossColumns(t *testing.T) {
	b := NewBuilder(Config{})
	factory := func() aggregator.Aggregator { return aggregator.NewCounting("shared") }
	b.Category("purchase").Column("a").Aggregator("shared", factory)
	b.Category("purchase").Column("b").Aggregator("shared", factory)

	_, registrations := b.finalizeCategories()
	require.Len(t, registrations["shared"].Columns, 2)
}

func TestBuilderSameColumnDoubleRegistrationIsNoOp(t *testing.T) {
	b := NewBuilder(Config{})
	factory := func() aggregator.Aggregator { return aggregator.NewCounting("dup") }
	b.Category("purchase").Column("a").Aggregator("dup", factory)
	b.Category("purchase").Column("a").Aggregator("dup", factory)

	_, registrations := b.finalizeCategories()
	require.Len(t, registrations["dup"].Columns, 1)
}

func TestBuilderOnAllEventsRegistersMatchAllColumn(t *testing.T) {
	b := NewBuilder(Config{})
	b.OnAllEvents("all", func() aggregator.Aggregator { return aggregator.NewCounting("all") })

	categories, registrations := b.finalizeCategories()
	for _, c := range categories {
		require.NotEqual(t, "", c.Name)
	}
	reg, ok := registrations["all"]
	require.True(t, ok)
	require.Equal(t, "", reg.Columns[0].CategoryName)
}
