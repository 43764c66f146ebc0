package runtime

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/drblury/msgflow/internal/runtime/capability"
	codecpkg "github.com/drblury/msgflow/internal/runtime/codec"
	"github.com/drblury/msgflow/internal/runtime/extensions"
	loggingpkg "github.com/drblury/msgflow/internal/runtime/logging"
	"github.com/drblury/msgflow/internal/runtime/models"
	outboxpkg "github.com/drblury/msgflow/internal/runtime/outbox"
)

const (
	defaultPlansLimit = 20
	maxPlansLimit     = 200
)

// PlanRequest is the body of POST /api/plan.
type PlanRequest struct {
	Message        models.Message `json:"message"`
	IsGroup        bool           `json:"is_group"`
	IsFirstInGroup *bool          `json:"is_first_in_group,omitempty"`
	IsLastInGroup  *bool          `json:"is_last_in_group,omitempty"`
	SenderName     string         `json:"sender_name,omitempty"`
	MaxWidth       int            `json:"max_width,omitempty"`
}

func (r PlanRequest) planContext() extensions.PlanContext {
	first, last := true, true
	if r.IsFirstInGroup != nil {
		first = *r.IsFirstInGroup
	}
	if r.IsLastInGroup != nil {
		last = *r.IsLastInGroup
	}
	return extensions.PlanContext{
		Render: capability.RenderContext{
			ConversationID: r.Message.ConversationID,
			IsGroup:        r.IsGroup,
			MaxWidth:       r.MaxWidth,
		},
		Decorator: capability.DecoratorContext{
			IsGroup:        r.IsGroup,
			IsFirstInGroup: first,
			IsLastInGroup:  last,
			SenderName:     r.SenderName,
		},
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// APIHandler serves the read-only inspection API and the synchronous plan
// endpoint.
func (s *Service) APIHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/extensions", s.withCORS(http.MethodGet, s.handleGetExtensions))
	mux.HandleFunc("/api/plan", s.withCORS(http.MethodPost, s.handlePostPlan))
	mux.HandleFunc("/api/plans", s.withCORS(http.MethodGet, s.handleGetPlans))
	mux.HandleFunc("/api/stats", s.withCORS(http.MethodGet, s.handleGetStats))
	return mux
}

func (s *Service) registerAPI() {
	if !s.Conf.APIEnabled {
		return
	}
	port := s.Conf.APIPort
	if port == 0 {
		port = 8081
	}
	s.RegisterHTTPHandler(port, "/api/", s.APIHandler())
}

func (s *Service) withCORS(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allowed := s.allowedCORSOrigin(r.Header.Get("Origin")); allowed != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", method+", OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusNoContent)
		case method:
			next(w, r)
		default:
			w.Header().Set("Allow", method+", OPTIONS")
			s.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		}
	}
}

// allowedCORSOrigin returns the Access-Control-Allow-Origin value for the
// request origin, or "" when it is not allowed.
func (s *Service) allowedCORSOrigin(requestOrigin string) string {
	if s.Conf == nil {
		return ""
	}
	for _, allowed := range s.Conf.APICORSAllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if requestOrigin != "" && strings.EqualFold(allowed, requestOrigin) {
			return requestOrigin
		}
	}
	return ""
}

func (s *Service) handleGetExtensions(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.extensions.Inventory())
}

func (s *Service) handlePostPlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := codecpkg.Decode(r.Body, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Message.GUID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message.guid is required"})
		return
	}
	s.writeJSON(w, http.StatusOK, s.Plan(r.Context(), req.Message, req.planContext()))
}

func (s *Service) handleGetPlans(w http.ResponseWriter, r *http.Request) {
	store, ok := s.outbox.(PlanStore)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "outbox is not configured"})
		return
	}

	limit := defaultPlansLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxPlansLimit)
	}

	records, err := store.Recent(r.Context(), limit)
	if err != nil {
		s.Logger.Error("Failed to list plans", err, nil)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}
	if records == nil {
		records = []outboxpkg.Record{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Service) handleGetStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := codecpkg.Encode(w, v); err != nil {
		s.Logger.Error("Failed to encode response", err, loggingpkg.LogFields{"status": status})
	}
}
