package population

import "time"

// StatePopulation is one aggregated row: the summed population for a state,
// stamped with when it was written and which snapshot file produced it.
type StatePopulation struct {
	StateName       string    `json:"state"`
	TotalPopulation int64     `json:"population"`
	LastUpdated     time.Time `json:"lastUpdated"`
	SourceFile      string    `json:"sourceFile"`
}
