package server

import (
	"net/http"
	"strings"

	"github.com/atalaykaya/demographics-api/internal/apperror"
	"github.com/atalaykaya/demographics-api/internal/fetcher"
	"github.com/atalaykaya/demographics-api/internal/pipeline"
	"github.com/atalaykaya/demographics-api/internal/population"
	"github.com/atalaykaya/demographics-api/internal/scheduler"
)

type handler struct {
	popSvc *population.Service
	pipe   *pipeline.Pipeline
	fetch  *fetcher.Client
	sched  *scheduler.Scheduler
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statesResponse struct {
	States []population.StatePopulation `json:"states"`
	Total  int                          `json:"total"`
}

func (h *handler) listStates(w http.ResponseWriter, r *http.Request) {
	var names []string
	if raw := r.URL.Query().Get("states"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			writeError(w, http.StatusBadRequest, "invalid states parameter")
			return
		}
	}

	states, err := h.popSvc.ListStates(r.Context(), population.ListStatesRequest{StateNames: names})
	if err != nil {
		respondError(w, err)
		return
	}

	if len(names) > 0 && len(states) == 0 {
		writeError(w, http.StatusNotFound, "no states found matching the criteria")
		return
	}

	writeJSON(w, http.StatusOK, statesResponse{States: states, Total: len(states)})
}

func (h *handler) getState(w http.ResponseWriter, r *http.Request) {
	req := population.GetStateRequest{StateName: r.PathValue("state")}
	if appErr := req.Validate(); appErr != nil {
		writeError(w, appErr.HTTPStatus(), appErr.Message())
		return
	}

	state, err := h.popSvc.GetState(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

type fetchResponse struct {
	File     string `json:"file"`
	Features int    `json:"features"`
}

func (h *handler) fetchNow(w http.ResponseWriter, r *http.Request) {
	path, n, err := h.fetch.Fetch(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "data fetching failed - check logs for details")
		return
	}

	writeJSON(w, http.StatusOK, fetchResponse{File: path, Features: n})
}

func (h *handler) processNow(w http.ResponseWriter, r *http.Request) {
	// The pipeline never surfaces errors: a failed cycle is a message plus a
	// log trail, not a stack trace.
	if !h.pipe.RunCycle(r.Context()) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "data processing failed - check logs for details",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "data processing completed successfully",
	})
}

func (h *handler) schedulerStatus(w http.ResponseWriter, r *http.Request) {
	report, err := h.sched.Status(r.URL.Query().Get("job"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handler) jobDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.sched.Details(r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *handler) pauseJob(w http.ResponseWriter, r *http.Request) {
	result, err := h.sched.Pause(r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) resumeJob(w http.ResponseWriter, r *http.Request) {
	result, err := h.sched.Resume(r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) triggerJob(w http.ResponseWriter, r *http.Request) {
	result, err := h.sched.Trigger(r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) removeJob(w http.ResponseWriter, r *http.Request) {
	result, err := h.sched.Remove(r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// respondError maps typed application errors to their HTTP status and
// everything else to a 500.
func respondError(w http.ResponseWriter, err error) {
	if ae, ok := err.(*apperror.AppError); ok {
		writeError(w, ae.HTTPStatus(), ae.Message())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
