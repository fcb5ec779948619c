package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/MikeSquared-Agency/zkblueprint/internal/agent"
	"github.com/MikeSquared-Agency/zkblueprint/internal/store"
)

const (
	maxRounds   = 10
	maxDelay    = 10 * time.Second
	maxRunLimit = 100
)

type AgentRequest struct {
	Prompt    string `json:"prompt"`
	AgentType string `json:"agentType"`
}

type ChainRequest struct {
	Prompt string   `json:"prompt"`
	Agents []string `json:"agents"`
}

type DiscussRequest struct {
	Topic   string `json:"topic"`
	Rounds  *int   `json:"rounds,omitempty"`
	DelayMs *int   `json:"delayMs,omitempty"`
}

type ResultResponse struct {
	Result []string `json:"result"`
}

type agentInfo struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// listAgents handles GET /api/agents
func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	agents := make([]agentInfo, 0, len(s.roster.Agents))
	for _, cfg := range s.roster.Agents {
		agents = append(agents, agentInfo{Name: cfg.Name, Role: cfg.Role})
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

// runAgent handles POST /api/agents: one agent, one prompt.
func (s *Server) runAgent(w http.ResponseWriter, r *http.Request) {
	const route = "/api/agents"

	var req AgentRequest
	// A body that does not decode carries no usable fields.
	_ = json.NewDecoder(r.Body).Decode(&req)

	if req.Prompt == "" || req.AgentType == "" {
		s.observe(route, "", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "Missing prompt or agent type")
		return
	}
	if !s.roster.Has(req.AgentType) {
		s.observe(route, "", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "Invalid agent type")
		return
	}

	s.runChain(w, r, route, req.AgentType, req.Prompt, []string{req.AgentType})
}

// chainAgents handles POST /api/agents/chain: a prompt piped through several agents.
func (s *Server) chainAgents(w http.ResponseWriter, r *http.Request) {
	const route = "/api/agents/chain"

	var req ChainRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if req.Prompt == "" || len(req.Agents) == 0 {
		s.observe(route, "", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "Missing prompt or agents")
		return
	}
	for _, name := range req.Agents {
		if !s.roster.Has(name) {
			s.observe(route, "", http.StatusBadRequest)
			writeError(w, http.StatusBadRequest, "Invalid agent type")
			return
		}
	}

	s.runChain(w, r, route, "chain", req.Prompt, req.Agents)
}

func (s *Server) runChain(w http.ResponseWriter, r *http.Request, route, label, prompt string, sequence []string) {
	run := &store.Run{Kind: store.KindChain, Agents: sequence, Prompt: prompt}

	results, err := s.newSystem().ChainAgents(r.Context(), prompt, sequence)
	if err != nil {
		s.logger.Error("agent error", "agents", sequence, "error", err)
		run.Error = err.Error()
		s.recordRun(r.Context(), run)
		s.observe(route, label, http.StatusInternalServerError)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	run.Results = results
	s.recordRun(r.Context(), run)
	s.observe(route, label, http.StatusOK)
	writeJSON(w, http.StatusOK, ResultResponse{Result: results})
}

// discuss handles POST /api/agents/discuss: a round-robin discussion across
// every agent. Partial discussions are returned with an error field.
func (s *Server) discuss(w http.ResponseWriter, r *http.Request) {
	const route = "/api/agents/discuss"

	var req DiscussRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if req.Topic == "" {
		s.observe(route, "", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "Missing topic")
		return
	}

	rounds := agent.DefaultRounds
	if req.Rounds != nil {
		rounds = *req.Rounds
	}
	delay := agent.DefaultDelay
	if req.DelayMs != nil {
		delay = time.Duration(*req.DelayMs) * time.Millisecond
	}
	if rounds < 1 || rounds > maxRounds {
		s.observe(route, "", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "rounds must be between 1 and "+strconv.Itoa(maxRounds))
		return
	}
	if delay < 0 || delay > maxDelay {
		s.observe(route, "", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "delayMs must be between 0 and "+strconv.Itoa(int(maxDelay/time.Millisecond)))
		return
	}

	sys := s.newSystem()
	res := sys.FacilitateDiscussion(r.Context(), req.Topic, rounds, delay)

	s.recordRun(r.Context(), &store.Run{
		Kind:    store.KindDiscussion,
		Agents:  sys.Names(),
		Prompt:  req.Topic,
		Results: res.Messages,
		Error:   res.Error,
	})
	s.observe(route, "discussion", http.StatusOK)
	writeJSON(w, http.StatusOK, res)
}

// listRuns handles GET /api/runs
func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxRunLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxRunLimit))
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}
