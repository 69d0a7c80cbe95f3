package population

import (
	"strings"

	"github.com/atalaykaya/demographics-api/internal/apperror"
)

type GetStateRequest struct {
	StateName string
}

func (r GetStateRequest) Validate() *apperror.AppError {
	if strings.TrimSpace(r.StateName) == "" {
		return apperror.New(apperror.BadRequest, "state name is required")
	}
	return nil
}

type ListStatesRequest struct {
	// StateNames filters the listing; empty means all states.
	StateNames []string
}

func (r ListStatesRequest) Validate() *apperror.AppError {
	for _, name := range r.StateNames {
		if strings.TrimSpace(name) == "" {
			return apperror.New(apperror.BadRequest, "invalid states parameter")
		}
	}
	return nil
}
