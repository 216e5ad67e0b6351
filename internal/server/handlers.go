package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/policyengine/simprof/internal/compare"
	"github.com/policyengine/simprof/internal/harness"
	"github.com/policyengine/simprof/internal/model"
	"github.com/policyengine/simprof/internal/scenario"
	"github.com/policyengine/simprof/internal/store"
	"github.com/policyengine/simprof/pkg/engine"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type engineInfo struct {
	Country string `json:"country"`
	Version string `json:"version"`
}

func (s *Server) handleEngines(w http.ResponseWriter, _ *http.Request) {
	countries := engine.Countries()
	engines := make([]engineInfo, 0, len(countries))
	for _, id := range countries {
		eng, err := engine.Lookup(id)
		if err != nil {
			continue
		}
		engines = append(engines, engineInfo{Country: id, Version: eng.Version()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"engines": engines})
}

type profileRequest struct {
	Country      string `json:"country"`
	Reform       string `json:"reform,omitempty"`
	IncomePoints int    `json:"income_points,omitempty"`
	TopN         int    `json:"top_n,omitempty"`
	Variable     string `json:"variable,omitempty"`
	Period       string `json:"period,omitempty"`
}

// handleProfile validates the request, records a queued run, and kicks off
// the profile in the background. Only built-in situations and named
// reforms are accepted over HTTP; file scenarios stay a CLI concern.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Country == "" {
		writeError(w, http.StatusBadRequest, "country is required")
		return
	}

	h, err := harness.New(req.Country)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reformName := req.Reform
	if reformName == "" {
		reformName, err = scenario.DefaultReformName(req.Country)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	reform, err := scenario.ReformByName(reformName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	situation, err := scenario.BuiltinSituation(req.Country, req.IncomePoints)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "a profile was accepted recently, retry later")
		return
	}

	run, err := s.store.CreateRun(r.Context(), req.Country, reformName)
	if err != nil {
		zap.L().Error("server: create run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not record run")
		return
	}

	topN := req.TopN
	if topN <= 0 {
		topN = s.topN
	}
	copts := compare.Options{
		Situation:  situation,
		Reform:     reform,
		ReformName: reformName,
		TopN:       topN,
		Epsilon:    s.epsilon,
		Variable:   req.Variable,
		Period:     req.Period,
	}
	go s.runProfile(run.ID, h, copts)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"run_id": run.ID,
	})
}

// runProfile executes one queued run to completion and persists the
// outcome. It runs on the server's base context so in-flight work is
// bounded by process lifetime, not by the request that queued it.
func (s *Server) runProfile(runID string, h *harness.Harness, copts compare.Options) {
	ctx := s.baseCtx
	if err := s.store.UpdateRunStatus(ctx, runID, model.RunStatusProfiling); err != nil {
		zap.L().Warn("server: mark run profiling", zap.String("run_id", runID), zap.Error(err))
	}

	cmp, err := compare.New(h).Run(ctx, copts)
	if err != nil {
		zap.L().Error("server: profile run failed",
			zap.String("run_id", runID),
			zap.Error(err),
		)
		if uerr := s.store.UpdateRunError(ctx, runID, err.Error()); uerr != nil {
			zap.L().Error("server: record run failure", zap.String("run_id", runID), zap.Error(uerr))
		}
		return
	}

	if err := s.store.UpdateRunResult(ctx, runID, cmp); err != nil {
		zap.L().Error("server: record run result", zap.String("run_id", runID), zap.Error(err))
		return
	}
	zap.L().Info("server: profile run complete",
		zap.String("run_id", runID),
		zap.Float64("baseline_s", cmp.BaselineSeconds),
		zap.Float64("reform_s", cmp.ReformSeconds),
	)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Country: q.Get("country"),
		Status:  model.RunStatus(q.Get("status")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("server: get run", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}
