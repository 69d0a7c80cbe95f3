package population

import (
	"context"
	"strings"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetState(ctx context.Context, req GetStateRequest) (*StatePopulation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, NormalizeStateName(req.StateName))
}

func (s *Service) ListStates(ctx context.Context, req ListStatesRequest) ([]StatePopulation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(req.StateNames))
	for _, name := range req.StateNames {
		names = append(names, NormalizeStateName(name))
	}

	return s.repo.List(ctx, names)
}

// NormalizeStateName title-cases a user-supplied state name so lookups are
// case-insensitive. "of" stays lowercase for "District of Columbia".
func NormalizeStateName(name string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	for i, w := range words {
		if i > 0 && w == "of" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
