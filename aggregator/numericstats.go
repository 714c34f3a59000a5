package aggregator

import (
	"encoding/json"
	"math"

	"github.com/AtRiskMedia/keystone/event"
)

// NumericStats reads event.Data[columnName] as a Number and maintains
// count, sum, running mean, and variance via Welford's recurrence.
// Non-numeric or missing values are discarded (not counted).
type NumericStats struct {
	id    string
	Count uint64
	Sum   float64
	mean  float64
	m2    float64 // sum of squared deviations from the running mean
}

// NewNumericStats builds a NumericStats aggregator registered under id.
func NewNumericStats(id string) *NumericStats { return &NumericStats{id: id} }

func (a *NumericStats) ID() string { return a.id }

func (a *NumericStats) AddEvent(e event.Event, columnName string) (Outcome, error) {
	v, ok := e.Value(columnName).AsNumber()
	if !ok {
		return Discard(), nil
	}
	a.Count++
	a.Sum += v
	delta := v - a.mean
	a.mean += delta / float64(a.Count)
	delta2 := v - a.mean
	a.m2 += delta * delta2
	return Keep(), nil
}

// Average returns the running mean, or 0 if no values have been seen.
func (a *NumericStats) Average() float64 { return a.mean }

// Variance returns the population variance (divided by Count) of
// values seen so far.
func (a *NumericStats) Variance() float64 {
	if a.Count == 0 {
		return 0
	}
	return a.m2 / float64(a.Count)
}

// StdDev returns the standard deviation, sqrt(Variance()).
func (a *NumericStats) StdDev() float64 {
	return math.Sqrt(a.Variance())
}

type numericStatsState struct {
	Count uint64  `json:"count"`
	Sum   float64 `json:"sum"`
	Mean  float64 `json:"mean"`
	M2    float64 `json:"m2"`
}

func (a *NumericStats) Encode() ([]byte, bool, error) {
	b, err := json.Marshal(numericStatsState{Count: a.Count, Sum: a.Sum, Mean: a.mean, M2: a.m2})
	return b, true, err
}

func (a *NumericStats) Decode(data []byte) error {
	var s numericStatsState
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	a.Count = s.Count
	a.Sum = s.Sum
	a.mean = s.Mean
	a.m2 = s.M2
	return nil
}

func (a *NumericStats) Reset() {
	a.Count = 0
	a.Sum = 0
	a.mean = 0
	a.m2 = 0
}

func (a *NumericStats) Next() Aggregator  { return nil }
func (a *NumericStats) Final() Aggregator { return a }
