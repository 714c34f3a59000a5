// Package schema defines the registration surface: categories,
// columns, and the aggregator specs pinned to them.
package schema

import (
	"github.com/AtRiskMedia/keystone/aggregator"
	"github.com/AtRiskMedia/keystone/calendar"
)

// IDColumnName is the reserved column name auto-injected by the
// builder as the carrier for category-level aggregators. Registering
// a user column under this name is a programming error.
const IDColumnName = "id"

// AggregatorSpec pins an aggregator factory to a column, optionally
// restricting it to state buckets whose interval equals Interval
// exactly.
type AggregatorSpec struct {
	ID       string
	Interval *calendar.Interval
	Factory  aggregator.Factory
}

// EventColumn is a named slot in a category's payload and a
// registration point for aggregators.
type EventColumn struct {
	Name         string
	CategoryName string
	Aggregators  []AggregatorSpec
}

// EventCategory groups events sharing a logical schema. The "id"
// column, when present, carries any aggregators registered on the
// category itself.
type EventCategory struct {
	Name    string
	Columns []EventColumn
}

// Column returns the named column and whether it exists.
func (c EventCategory) Column(name string) (EventColumn, bool) {
	for _, col := range c.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return EventColumn{}, false
}

// IDColumn returns the synthetic "id" column carrying category-level
// aggregators, if the builder has installed one.
func (c EventCategory) IDColumn() (EventColumn, bool) {
	return c.Column(IDColumnName)
}

// Registration is the flattened (aggregator id -> registration site)
// back-reference the analyzer keeps instead of having aggregators
// reference their registration site directly, avoiding reference
// cycles and simplifying serialization.
type Registration struct {
	Columns  []EventColumn
	Interval *calendar.Interval
	Factory  aggregator.Factory
}
