package population

import "context"

type Repository interface {
	// ReplaceAll upserts every state total in one transaction and returns the
	// number of rows written. A partial write never survives an error.
	ReplaceAll(ctx context.Context, totals map[string]int64, sourceFile string) (int64, error)
	Get(ctx context.Context, stateName string) (*StatePopulation, error)
	List(ctx context.Context, stateNames []string) ([]StatePopulation, error)
}
