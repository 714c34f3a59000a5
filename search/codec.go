package search

import (
	"encoding/json"
	"time"

	"github.com/AtRiskMedia/keystone/calendar"
)

func unixUTC(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

type wireIndex struct {
	Start  int64                          `json:"start"`
	End    int64                          `json:"end"`
	Tokens map[string]map[string]struct{} `json:"tokens"`
}

// MarshalJSON encodes the index as its interval bounds plus the raw
// token->postings map.
func (idx *Index) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireIndex{
		Start:  idx.Interval.Start.Unix(),
		End:    idx.Interval.End.Unix(),
		Tokens: idx.tokens,
	})
}

// UnmarshalJSON decodes an index previously produced by MarshalJSON.
func (idx *Index) UnmarshalJSON(data []byte) error {
	var w wireIndex
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	idx.Interval = calendar.New(unixUTC(w.Start), unixUTC(w.End))
	idx.SetTokens(w.Tokens)
	return nil
}
