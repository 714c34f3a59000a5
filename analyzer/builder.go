package analyzer

import (
	"context"
	"fmt"

	"github.com/AtRiskMedia/keystone/aggregator"
	"github.com/AtRiskMedia/keystone/calendar"
	"github.com/AtRiskMedia/keystone/collab"
	"github.com/AtRiskMedia/keystone/keystoneerr"
	"github.com/AtRiskMedia/keystone/schema"
)

// Builder collects categories, columns, and aggregator factories,
// enforcing the "id" column reservation eagerly.
type Builder struct {
	config     Config
	categories map[string]*categoryDraft
	order      []string
}

type categoryDraft struct {
	name          string
	columns       map[string]*schema.EventColumn
	columnOrder   []string
	idAggregators []schema.AggregatorSpec
}

// NewBuilder starts a Builder with the given configuration.
func NewBuilder(config Config) *Builder {
	return &Builder{config: config.withDefaults(), categories: map[string]*categoryDraft{}}
}

// Category returns the fluent builder for the named category,
// creating it on first use.
func (b *Builder) Category(name string) *CategoryBuilder {
	draft, ok := b.categories[name]
	if !ok {
		draft = &categoryDraft{name: name, columns: map[string]*schema.EventColumn{}}
		b.categories[name] = draft
		b.order = append(b.order, name)
	}
	return &CategoryBuilder{builder: b, draft: draft}
}

// CategoryBuilder configures one category's columns and category-level
// aggregators.
type CategoryBuilder struct {
	builder *Builder
	draft   *categoryDraft
}

// Column returns the fluent builder for the named column of this
// category. Registering a column literally named "id" is a programming
// error and panics eagerly.
func (cb *CategoryBuilder) Column(name string) *ColumnBuilder {
	if name == schema.IDColumnName {
		panic(fmt.Errorf("keystone: category %q: %w: %q", cb.draft.name, keystoneerr.ErrReservedColumn, name))
	}
	col, ok := cb.draft.columns[name]
	if !ok {
		col = &schema.EventColumn{Name: name, CategoryName: cb.draft.name}
		cb.draft.columns[name] = col
		cb.draft.columnOrder = append(cb.draft.columnOrder, name)
	}
	return &ColumnBuilder{category: cb, column: col}
}

// Aggregator registers a category-level aggregator, carried on the
// synthetic "id" column injected by Build.
func (cb *CategoryBuilder) Aggregator(id string, factory aggregator.Factory) *CategoryBuilder {
	cb.draft.idAggregators = append(cb.draft.idAggregators, schema.AggregatorSpec{ID: id, Factory: factory})
	return cb
}

// AggregatorForInterval registers a category-level aggregator pinned
// to state buckets whose interval equals interval exactly.
func (cb *CategoryBuilder) AggregatorForInterval(id string, interval calendar.Interval, factory aggregator.Factory) *CategoryBuilder {
	cb.draft.idAggregators = append(cb.draft.idAggregators, schema.AggregatorSpec{ID: id, Interval: &interval, Factory: factory})
	return cb
}

// ColumnBuilder configures the aggregators registered on one column.
type ColumnBuilder struct {
	category *CategoryBuilder
	column   *schema.EventColumn
}

// Aggregator registers an aggregator on this column.
func (col *ColumnBuilder) Aggregator(id string, factory aggregator.Factory) *ColumnBuilder {
	col.column.Aggregators = append(col.column.Aggregators, schema.AggregatorSpec{ID: id, Factory: factory})
	return col
}

// AggregatorForInterval registers an aggregator on this column, pinned
// to state buckets whose interval equals interval exactly.
func (col *ColumnBuilder) AggregatorForInterval(id string, interval calendar.Interval, factory aggregator.Factory) *ColumnBuilder {
	col.column.Aggregators = append(col.column.Aggregators, schema.AggregatorSpec{ID: id, Interval: &interval, Factory: factory})
	return col
}

// Column returns the parent category's builder for the named column,
// for chaining another column.
func (col *ColumnBuilder) Column(name string) *ColumnBuilder { return col.category.Column(name) }

// OnAllEvents registers an aggregator observing every event regardless
// of category, modeled as a column with no CategoryName restriction
// (the same match-all rule state.ApplyEvent already applies to columns
// whose CategoryName is empty).
func (b *Builder) OnAllEvents(id string, factory aggregator.Factory) *Builder {
	draft := b.allEventsDraft()
	draft.idAggregators = append(draft.idAggregators, schema.AggregatorSpec{ID: id, Factory: factory})
	return b
}

const allEventsCategory = ""

func (b *Builder) allEventsDraft() *categoryDraft {
	draft, ok := b.categories[allEventsCategory]
	if !ok {
		draft = &categoryDraft{name: allEventsCategory, columns: map[string]*schema.EventColumn{}}
		b.categories[allEventsCategory] = draft
		b.order = append(b.order, allEventsCategory)
	}
	return draft
}

// finalizeCategories composes each draft's final EventCategory,
// appending the synthetic "id" column, and flattens every aggregator
// spec into the analyzer's aggregator-id -> Registration map. Multiple
// registrations under the same id are merged by unioning their column
// sets; the first-seen factory and interval win (Aggregator ids are
// unique within a state bucket; duplicate registration is a no-op).
func (b *Builder) finalizeCategories() ([]schema.EventCategory, map[string]schema.Registration) {
	categories := make([]schema.EventCategory, 0, len(b.order))
	registrations := map[string]schema.Registration{}

	merge := func(spec schema.AggregatorSpec, col schema.EventColumn) {
		reg, ok := registrations[spec.ID]
		if !ok {
			registrations[spec.ID] = schema.Registration{
				Columns:  []schema.EventColumn{col},
				Interval: spec.Interval,
				Factory:  spec.Factory,
			}
			return
		}
		for _, existing := range reg.Columns {
			if existing.Name == col.Name && existing.CategoryName == col.CategoryName {
				return
			}
		}
		reg.Columns = append(reg.Columns, col)
		registrations[spec.ID] = reg
	}

	for _, name := range b.order {
		draft := b.categories[name]
		cols := make([]schema.EventColumn, 0, len(draft.columnOrder)+1)
		for _, colName := range draft.columnOrder {
			col := *draft.columns[colName]
			cols = append(cols, col)
			for _, spec := range col.Aggregators {
				merge(spec, col)
			}
		}
		if len(draft.idAggregators) > 0 {
			idCol := schema.EventColumn{Name: schema.IDColumnName, CategoryName: draft.name, Aggregators: draft.idAggregators}
			cols = append(cols, idCol)
			for _, spec := range draft.idAggregators {
				merge(spec, idCol)
			}
		}
		if name != allEventsCategory {
			categories = append(categories, schema.EventCategory{Name: name, Columns: cols})
		}
	}
	return categories, registrations
}

// Build composes the final schema, constructs the Analyzer, and runs
// its initialization sequence.
func (b *Builder) Build(ctx context.Context, backend collab.Backend, delegate collab.Delegate) (*Analyzer, error) {
	categories, registrations := b.finalizeCategories()
	az := newAnalyzer(b.config, backend, delegate, categories, registrations)
	if err := az.init(ctx); err != nil {
		return nil, err
	}
	return az, nil
}
