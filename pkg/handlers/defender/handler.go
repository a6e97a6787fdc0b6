package defender

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/de-tools/defender-bridge/pkg/adapters"
	"github.com/de-tools/defender-bridge/pkg/models/api"
	"github.com/de-tools/defender-bridge/pkg/models/domain"
	"github.com/de-tools/defender-bridge/pkg/services/assignment"
	"github.com/de-tools/defender-bridge/pkg/services/exemption"
	"github.com/de-tools/defender-bridge/pkg/services/recommendation"
)

type Handler struct {
	recommendations recommendation.Service
	exemptions      exemption.Service
	assignments     assignment.Service
}

func NewHandler(
	recommendations recommendation.Service,
	exemptions exemption.Service,
	assignments assignment.Service,
) *Handler {
	return &Handler{
		recommendations: recommendations,
		exemptions:      exemptions,
		assignments:     assignments,
	}
}

func (h *Handler) ListRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	limit, err := intParam(q, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := intParam(q, "offset")
	if err != nil {
		writeError(w, r, err)
		return
	}

	filters := recommendation.Filters{
		Severities:         q["severity"],
		ResourceType:       q.Get("resource_type"),
		SubscriptionID:     q.Get("subscription_id"),
		AssignmentStatus:   q.Get("assignment_status"),
		AssessmentStatuses: q["assessment_status"],
		Limit:              limit,
		Offset:             offset,
	}

	page, err := h.recommendations.List(ctx, principalFrom(r), filters)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK,
		adapters.MapRecommendationPageDomainToApi(page.Items, page.TotalCount, page.Limit, page.Offset))
}

func (h *Handler) CreateExemption(w http.ResponseWriter, r *http.Request) {
	var req api.CreateExemptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.NewError(domain.CodeValidation, "malformed request body").WithCause(err))
		return
	}

	created, err := h.exemptions.Create(r.Context(), principalFrom(r), exemption.Request{
		RecommendationID: req.RecommendationID,
		Justification:    req.Justification,
		ExpirationDate:   req.ExpirationDate,
		Scope:            req.Scope,
		Category:         req.Category,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, adapters.MapExemptionDomainToApi(*created, time.Now()))
}

func (h *Handler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	recommendationID := chi.URLParam(r, "recommendation")
	if unescaped, err := url.PathUnescape(recommendationID); err == nil {
		recommendationID = unescaped
	}

	suggestions, err := h.assignments.Suggest(r.Context(), principalFrom(r), recommendationID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, adapters.MapSuggestionListDomainToApi(suggestions))
}

func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := intParam(q, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := intParam(q, "offset")
	if err != nil {
		writeError(w, r, err)
		return
	}
	dueBefore, err := timeParam(q, "due_before")
	if err != nil {
		writeError(w, r, err)
		return
	}
	dueAfter, err := timeParam(q, "due_after")
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := h.assignments.List(r.Context(), principalFrom(r), assignment.Filters{
		DueBefore: dueBefore,
		DueAfter:  dueAfter,
		Status:    q.Get("status"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK,
		adapters.MapAssignmentPageDomainToApi(page.Items, page.TotalCount, page.Limit, page.Offset))
}

func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req api.CreateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.NewError(domain.CodeValidation, "malformed request body").WithCause(err))
		return
	}

	created, err := h.assignments.Create(r.Context(), principalFrom(r), assignment.CreateRequest{
		RecommendationID:   req.RecommendationID,
		UserEmail:          req.AssignedUserEmail,
		DueDate:            req.DueDate,
		GracePeriodEnabled: req.GracePeriodEnabled,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, adapters.MapAssignmentDomainToApi(*created))
}

// principalFrom reads the pre-validated identity handed over by the identity
// layer; token verification happens before the request reaches this system.
func principalFrom(r *http.Request) domain.Principal {
	p := domain.Principal{ID: r.Header.Get("X-Principal-Id")}
	for _, role := range strings.Split(r.Header.Get("X-Principal-Roles"), ",") {
		if role = strings.TrimSpace(role); role != "" {
			p.Roles = append(p.Roles, role)
		}
	}
	return p
}

func intParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewError(domain.CodeValidation, "%s must be an integer", name).
			WithDetail("field", name)
	}
	return v, nil
}

func timeParam(q url.Values, name string) (*time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, domain.NewError(domain.CodeValidation, "%s must be an RFC 3339 timestamp or date", name).
		WithDetail("field", name)
}
