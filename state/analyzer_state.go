package state

import "github.com/AtRiskMedia/keystone/calendar"

// AnalyzerState is the top-level state the analyzer keeps in memory:
// the current month, the all-time accumulator, and the historical
// index of past months.
type AnalyzerState struct {
	Current                *IntervalState
	Accumulated            *IntervalState
	Historical             *HistoricalIndex
	ProcessedEventInterval calendar.Interval
}

// NewAnalyzerState builds an AnalyzerState with a fresh current month
// and all-time accumulator.
func NewAnalyzerState(now calendar.Interval) *AnalyzerState {
	allTime := calendar.AllTime()
	return &AnalyzerState{
		Current:     New(now),
		Accumulated: New(allTime),
		Historical:  NewHistoricalIndex(),
	}
}
