package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quill-writing/quill/internal/app/engagement"
	"github.com/quill-writing/quill/internal/domain"
)

// ─── Response Types ─────────────────────────────────────────────────────────

// ProgressResponse is the dashboard view of the record.
type ProgressResponse struct {
	domain.UserProgress
	ProgressPct float64  `json:"progressPct"`
	Pending     []string `json:"pendingBadges"`
}

// OutcomeResponse reports a mutation. Warning is set when the change was
// applied but could not be saved.
type OutcomeResponse struct {
	engagement.Outcome
	Level   domain.UserLevel `json:"level"`
	Streak  domain.Streak    `json:"streak"`
	Warning string           `json:"warning,omitempty"`
}

// ─── Request Types ──────────────────────────────────────────────────────────

type grantRequest struct {
	Amount int64           `json:"amount"`
	Source domain.XPSource `json:"source"`
}

type wordsRequest struct {
	Count    int64  `json:"count"`
	Category string `json:"category"`
}

type textRequest struct {
	Category string `json:"category"`
}

type promptRequest struct {
	Difficulty string `json:"difficulty"`
}

type timeRequest struct {
	Minutes int64 `json:"minutes"`
}

type sessionStartRequest struct {
	Words int64 `json:"words"`
}

type sessionActivityRequest struct {
	Words      int64 `json:"words"`
	Characters int64 `json:"characters"`
}

type sessionCompleteRequest struct {
	Category   string `json:"category"`
	Difficulty string `json:"difficulty,omitempty"`
}

// ─── Read Handlers ──────────────────────────────────────────────────────────

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()
	writeJSON(w, http.StatusOK, ProgressResponse{
		UserProgress: snap,
		ProgressPct:  snap.Level.ProgressPct(),
		Pending:      s.session.PendingBadges(),
	})
}

func (s *Server) handleBadges(w http.ResponseWriter, r *http.Request) {
	catalog := s.session.Engine().Catalog()
	category := domain.BadgeCategory(r.URL.Query().Get("category"))
	rarity := domain.BadgeRarity(r.URL.Query().Get("rarity"))

	out := make([]domain.Badge, 0, catalog.Len())
	for _, b := range catalog.All() {
		if category != "" && b.Category != category {
			continue
		}
		if rarity != "" && b.Rarity != rarity {
			continue
		}
		out = append(out, b)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"badges": out,
	})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	catalog := s.session.Engine().Catalog()
	pending := s.session.PendingBadges()

	badges := make([]domain.Badge, 0, len(pending))
	for _, id := range pending {
		if b, ok := catalog.ByID(id); ok {
			badges = append(badges, b)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"badges": badges,
	})
}

// ─── Mutation Handlers ──────────────────────────────────────────────────────

func (s *Server) handleGrantXP(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := s.session.GrantXP(r.Context(), req.Amount, req.Source)
	s.respond(w, out, err)
}

func (s *Server) handleWords(w http.ResponseWriter, r *http.Request) {
	var req wordsRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := s.session.RecordWords(r.Context(), req.Count, req.Category)
	s.respond(w, out, err)
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := s.session.RecordText(r.Context(), req.Category)
	s.respond(w, out, err)
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if !decode(w, r, &req) {
		return
	}
	d, err := domain.ParseDifficulty(req.Difficulty)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out, err := s.session.RecordPrompt(r.Context(), d)
	s.respond(w, out, err)
}

func (s *Server) handleTime(w http.ResponseWriter, r *http.Request) {
	var req timeRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := s.session.RecordWritingTime(r.Context(), req.Minutes)
	s.respond(w, out, err)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	out, err := s.session.RecordFeedback(r.Context())
	s.respond(w, out, err)
}

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	out, err := s.session.AdvanceStreak(r.Context())
	s.respond(w, out, err)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	out, err := s.session.EvaluateBadges(r.Context())
	s.respond(w, out, err)
}

func (s *Server) handleBadgeSeen(w http.ResponseWriter, r *http.Request) {
	// Ids that are not unlocked, or not in the catalog at all, are a no-op.
	err := s.session.MarkBadgeSeen(r.Context(), chi.URLParam(r, "id"))
	s.respondAck(w, err)
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	err := s.session.AcknowledgeBadges(r.Context())
	s.respondAck(w, err)
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req sessionStartRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.session.StartDocument(req.Words); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"baseline": req.Words})
}

func (s *Server) handleSessionActivity(w http.ResponseWriter, r *http.Request) {
	var req sessionActivityRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := s.session.Activity(r.Context(), req.Words, req.Characters)
	s.respond(w, out, err)
}

func (s *Server) handleSessionComplete(w http.ResponseWriter, r *http.Request) {
	var req sessionCompleteRequest
	if !decode(w, r, &req) {
		return
	}
	var difficulty *domain.Difficulty
	if req.Difficulty != "" {
		d, err := domain.ParseDifficulty(req.Difficulty)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		difficulty = &d
	}
	out, err := s.session.CompleteDocument(r.Context(), req.Category, difficulty)
	s.respond(w, out, err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	err := s.session.Reset(r.Context())
	s.respondAck(w, err)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// decode reads a JSON body. An empty body leaves v at its zero value.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	return false
}

// respond writes the outcome of a mutation, downgrading a failed save to a warning.
func (s *Server) respond(w http.ResponseWriter, out engagement.Outcome, err error) {
	resp := OutcomeResponse{Outcome: out}
	if err != nil {
		if !errors.Is(err, domain.ErrPersistenceWrite) {
			writeDomainError(w, err)
			return
		}
		resp.Warning = err.Error()
	}
	snap := s.session.Snapshot()
	resp.Level = snap.Level
	resp.Streak = snap.Streak
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) respondAck(w http.ResponseWriter, err error) {
	body := map[string]interface{}{"ok": true}
	if err != nil {
		if !errors.Is(err, domain.ErrPersistenceWrite) {
			writeDomainError(w, err)
			return
		}
		body["warning"] = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

// writeDomainError maps sentinel errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnknownDifficulty),
		errors.Is(err, domain.ErrUnknownSource):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
