package analyzer

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/keystone/calendar"
)

func dateKey(t time.Time) string { return t.Format("20060102") }

func stateKey(i calendar.Interval) string {
	return fmt.Sprintf("state-%s-%s", dateKey(i.Start), dateKey(i.End))
}

func eventsKey(i calendar.Interval) string {
	return fmt.Sprintf("events-%s-%s", dateKey(i.Start), dateKey(i.End))
}

func searchIndexKey(i calendar.Interval) string {
	return fmt.Sprintf("keystone-search-index-%s-%s", dateKey(i.Start), dateKey(i.End))
}

func intervalMapKey(i calendar.Interval) string {
	return fmt.Sprintf("%d-%d", i.Start.Unix(), i.End.Unix())
}
