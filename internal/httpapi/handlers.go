package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/agentgw/internal/agent"
	"github.com/ziadkadry99/agentgw/internal/agentgwerr"
	"github.com/ziadkadry99/agentgw/internal/store"
)

type chatRequest struct {
	SkillName string `json:"skill_name"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type routeRequest struct {
	Message string `json:"message"`
}

type ingestRequest struct {
	Text       string   `json:"text"`
	Source     string   `json:"source"`
	Skills     []string `json:"skills,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Collection string   `json:"collection,omitempty"`
}

type feedbackRequest struct {
	MessageID string `json:"message_id"`
	Value     int    `json:"value"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"version":  Version,
		"provider": s.svc.Provider.Name(),
		"model":    s.svc.Config.LLM.Model,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"service": "agentgw", "version": Version})
}

func (s *Server) handleDaemonStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.StatusSnapshot())
}

// handleChat streams a turn over Server-Sent Events: one "data: <text>"
// event per text delta, followed by a terminal "done" event.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	events, err := s.svc.Chat(r.Context(), req.SessionID, req.SkillName, req.Message)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported by this response writer"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for e := range events {
		switch e.Kind {
		case agent.EventTextDelta:
			fmt.Fprintf(w, "data: %s\n\n", sseEscape(e.Text))
		case agent.EventDone:
			if e.Err != nil {
				fmt.Fprintf(w, "event: error\ndata: %s\n\n", sseEscape(e.Err.Error()))
			}
			fmt.Fprintf(w, "event: done\ndata: %s\n\n", sseEscape(e.Text))
		}
		flusher.Flush()
	}
}

// handleRun runs a turn to completion and returns the final result as JSON.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sessionID, result, err := s.svc.Run(r.Context(), req.SessionID, req.SkillName, req.Message)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"session_id": sessionID, "result": result})
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.svc.Route(r.Context(), req.Message)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("%w: %w", agentgwerr.ErrProvider, err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	collection := req.Collection
	if collection == "" {
		collection = "default"
	}

	n, err := s.svc.Ingest(r.Context(), collection, req.Source, req.Text, req.Skills, req.Tags)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("%w: %w", agentgwerr.ErrPersistence, err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"chunks_added": n})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	collection := q.Get("collection")
	if collection == "" {
		collection = "default"
	}
	var skills []string
	if v := q.Get("skills"); v != "" {
		skills = strings.Split(v, ",")
	}
	limit := 100
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	docs, err := s.svc.Vector.List(r.Context(), collection, skills, q.Get("source"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("%w: %w", agentgwerr.ErrPersistence, err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (s *Server) handleDeleteDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	collection := q.Get("collection")
	if collection == "" {
		collection = "default"
	}

	switch {
	case q.Get("source") != "":
		n, err := s.svc.Vector.DeleteBySource(r.Context(), collection, q.Get("source"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Errorf("%w: %w", agentgwerr.ErrPersistence, err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
	case q.Get("ids") != "":
		ids := strings.Split(q.Get("ids"), ",")
		n, err := s.svc.Vector.Delete(r.Context(), collection, ids)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Errorf("%w: %w", agentgwerr.ErrPersistence, err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("must specify either source or ids"))
	}
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.svc.Store.SetFeedback(r.Context(), req.MessageID, req.Value); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Skills.List())
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	skillName := r.URL.Query().Get("skill")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	sessions, err := s.svc.Store.ListSessions(r.Context(), store.SessionFilter{SkillName: skillName, Limit: limit})
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("%w: %w", agentgwerr.ErrPersistence, err))
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	messages, err := s.svc.Store.List(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("%w: %w", agentgwerr.ErrPersistence, err))
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func sseEscape(s string) string {
	return strings.ReplaceAll(s, "\n", "\\n")
}
