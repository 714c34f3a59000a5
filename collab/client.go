package collab

import (
	"context"

	"github.com/AtRiskMedia/keystone/clock"
	"github.com/AtRiskMedia/keystone/event"
)

// DefaultClient is the reference Client: it stamps events with the
// configured user identifier and current time, then persists them
// through a Backend.
type DefaultClient struct {
	UserIdentifier string
	Backend        Backend
	Clock          clock.Clock
}

// NewDefaultClient builds a DefaultClient. clk defaults to clock.System{}
// if nil.
func NewDefaultClient(userIdentifier string, backend Backend, clk clock.Clock) *DefaultClient {
	if clk == nil {
		clk = clock.System{}
	}
	return &DefaultClient{UserIdentifier: userIdentifier, Backend: backend, Clock: clk}
}

func (c *DefaultClient) CreateEvent(category string, data map[string]event.Value) event.Event {
	return event.New(c.UserIdentifier, category, c.Clock.Now(), data)
}

func (c *DefaultClient) SubmitEvent(ctx context.Context, e event.Event) error {
	return c.Backend.Persist(ctx, e)
}

func (c *DefaultClient) SubmitEvents(ctx context.Context, events []event.Event) error {
	return c.Backend.PersistBatch(ctx, events)
}
