package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MikeSquared-Agency/zkblueprint/internal/agent"
	"github.com/MikeSquared-Agency/zkblueprint/internal/blueprint"
	"github.com/MikeSquared-Agency/zkblueprint/internal/store"
)

type blueprintError struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// generateBlueprint handles POST /api/blueprint: the full refine, extract
// and generate pipeline in one request.
func (s *Server) generateBlueprint(w http.ResponseWriter, r *http.Request) {
	const route = "/api/blueprint"

	var in blueprint.Input
	_ = json.NewDecoder(r.Body).Decode(&in)

	if strings.TrimSpace(in.Goal) == "" || strings.TrimSpace(in.Email) == "" {
		s.observe(route, "", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "Missing goal or email")
		return
	}

	run := &store.Run{
		Kind:   store.KindBlueprint,
		Agents: []string{string(agent.PromptRefiner), string(agent.PartsExtractor), string(agent.RegexGenerator)},
		Prompt: in.Goal,
	}

	bp, err := blueprint.New(s.newSystem(), s.logger).Run(r.Context(), in)
	if err != nil {
		s.logger.Error("blueprint error", "error", err)
		run.Error = err.Error()
		s.recordRun(r.Context(), run)
		s.observe(route, "blueprint", http.StatusInternalServerError)

		resp := blueprintError{Error: "Internal server error"}
		var se *blueprint.StageError
		if errors.As(err, &se) {
			resp.Stage = string(se.Stage)
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	run.Results = []string{bp.RefinedPrompt, bp.Parts, bp.Patterns}
	s.recordRun(r.Context(), run)
	s.observe(route, "blueprint", http.StatusOK)
	writeJSON(w, http.StatusOK, bp)
}
