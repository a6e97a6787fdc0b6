package defender

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/defender-bridge/pkg/models/api"
	"github.com/de-tools/defender-bridge/pkg/models/domain"
	"github.com/de-tools/defender-bridge/pkg/services/assignment"
	"github.com/de-tools/defender-bridge/pkg/services/auth"
	"github.com/de-tools/defender-bridge/pkg/services/exemption"
	"github.com/de-tools/defender-bridge/pkg/services/recommendation"
)

type mockRecommendations struct {
	mock.Mock
}

func (m *mockRecommendations) List(ctx context.Context, principal domain.Principal, f recommendation.Filters) (*recommendation.Page, error) {
	args := m.Called(ctx, principal, f)
	res, _ := args.Get(0).(*recommendation.Page)
	return res, args.Error(1)
}

type mockExemptions struct {
	mock.Mock
}

func (m *mockExemptions) Create(ctx context.Context, principal domain.Principal, req exemption.Request) (*domain.Exemption, error) {
	args := m.Called(ctx, principal, req)
	res, _ := args.Get(0).(*domain.Exemption)
	return res, args.Error(1)
}

type mockAssignments struct {
	mock.Mock
}

func (m *mockAssignments) Suggest(ctx context.Context, principal domain.Principal, recommendationID string) ([]domain.Suggestion, error) {
	args := m.Called(ctx, principal, recommendationID)
	res, _ := args.Get(0).([]domain.Suggestion)
	return res, args.Error(1)
}

func (m *mockAssignments) Create(ctx context.Context, principal domain.Principal, req assignment.CreateRequest) (*domain.Assignment, error) {
	args := m.Called(ctx, principal, req)
	res, _ := args.Get(0).(*domain.Assignment)
	return res, args.Error(1)
}

func (m *mockAssignments) List(ctx context.Context, principal domain.Principal, f assignment.Filters) (*assignment.Page, error) {
	args := m.Called(ctx, principal, f)
	res, _ := args.Get(0).(*assignment.Page)
	return res, args.Error(1)
}

func newTestRouter(recs *mockRecommendations, exs *mockExemptions, asgs *mockAssignments) *chi.Mux {
	h := NewHandler(recs, exs, asgs)
	router := chi.NewRouter()
	router.Get("/recommendations", h.ListRecommendations)
	router.Get("/recommendations/{recommendation}/suggestions", h.ListSuggestions)
	router.Post("/exemptions", h.CreateExemption)
	router.Get("/assignments", h.ListAssignments)
	router.Post("/assignments", h.CreateAssignment)
	return router
}

func doRequest(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("X-Principal-Id", "admin@example.com")
	req.Header.Set("X-Principal-Roles", auth.RoleSecurityAdministrator+", "+auth.RoleOwner)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListRecommendations_OK(t *testing.T) {
	recs := &mockRecommendations{}
	recs.On("List", mock.Anything, mock.Anything, mock.Anything).
		Return(&recommendation.Page{
			Items: []domain.Recommendation{{
				ID:       "rec-1",
				Title:    "Enable MFA",
				Severity: domain.SeverityHigh,
				Status:   domain.AssessmentUnhealthy,
			}},
			TotalCount: 1,
			Limit:      100,
		}, nil)

	router := newTestRouter(recs, &mockExemptions{}, &mockAssignments{})
	res := doRequest(t, router, http.MethodGet, "/recommendations?severity=High&limit=10", "")

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "application/json", res.Header().Get("Content-Type"))

	var page api.RecommendationPage
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &page))
	require.Len(t, page.Recommendations, 1)
	assert.Equal(t, "rec-1", page.Recommendations[0].RecommendationID)
	assert.Equal(t, api.SeverityHigh, page.Recommendations[0].Severity)
	assert.Equal(t, 1, page.TotalCount)
}

func TestListRecommendations_PassesFiltersAndPrincipal(t *testing.T) {
	recs := &mockRecommendations{}
	var gotPrincipal domain.Principal
	var gotFilters recommendation.Filters
	recs.On("List", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotPrincipal = args.Get(1).(domain.Principal)
			gotFilters = args.Get(2).(recommendation.Filters)
		}).
		Return(&recommendation.Page{}, nil)

	router := newTestRouter(recs, &mockExemptions{}, &mockAssignments{})
	res := doRequest(t, router, http.MethodGet,
		"/recommendations?severity=High&severity=Critical&resource_type=vm&assignment_status=assigned&limit=5&offset=10", "")

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "admin@example.com", gotPrincipal.ID)
	assert.Equal(t, []string{auth.RoleSecurityAdministrator, auth.RoleOwner}, gotPrincipal.Roles)
	assert.Equal(t, []string{"High", "Critical"}, gotFilters.Severities)
	assert.Equal(t, "vm", gotFilters.ResourceType)
	assert.Equal(t, "assigned", gotFilters.AssignmentStatus)
	assert.Equal(t, 5, gotFilters.Limit)
	assert.Equal(t, 10, gotFilters.Offset)
}

func TestListRecommendations_InvalidLimitParam(t *testing.T) {
	router := newTestRouter(&mockRecommendations{}, &mockExemptions{}, &mockAssignments{})
	res := doRequest(t, router, http.MethodGet, "/recommendations?limit=ten", "")

	require.Equal(t, http.StatusBadRequest, res.Code)

	var envelope api.Error
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION_ERROR", envelope.ErrorCode)
	assert.Equal(t, "limit", envelope.Details["field"])
}

func TestCreateExemption_Created(t *testing.T) {
	expires := time.Date(2031, 6, 1, 0, 0, 0, 0, time.UTC)
	exs := &mockExemptions{}
	exs.On("Create", mock.Anything, mock.Anything, exemption.Request{
		RecommendationID: "rec-1",
		Justification:    "compensating controls in place",
		ExpirationDate:   expires,
	}).Return(&domain.Exemption{
		ID:               "exemption-1",
		RecommendationID: "rec-1",
		Justification:    "compensating controls in place",
		CreatedBy:        "admin@example.com",
		ExpiresAt:        expires,
	}, nil)

	router := newTestRouter(&mockRecommendations{}, exs, &mockAssignments{})
	res := doRequest(t, router, http.MethodPost, "/exemptions",
		`{"recommendation_id":"rec-1","justification":"compensating controls in place","expiration_date":"2031-06-01T00:00:00Z"}`)

	require.Equal(t, http.StatusCreated, res.Code)

	var out api.Exemption
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	assert.Equal(t, "exemption-1", out.ExemptionID)
	assert.Equal(t, "rec-1", out.RecommendationID)
	assert.Equal(t, "active", out.Status)
	exs.AssertExpectations(t)
}

func TestCreateExemption_MalformedBody(t *testing.T) {
	router := newTestRouter(&mockRecommendations{}, &mockExemptions{}, &mockAssignments{})
	res := doRequest(t, router, http.MethodPost, "/exemptions", `{"justification":`)

	require.Equal(t, http.StatusBadRequest, res.Code)

	var envelope api.Error
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION_ERROR", envelope.ErrorCode)
}

func TestCreateExemption_ServiceErrorMapsToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *domain.Error
		status int
	}{
		{name: "validation", err: domain.NewError(domain.CodeValidation, "bad input"), status: http.StatusBadRequest},
		{name: "permission denied", err: domain.NewError(domain.CodePermissionDenied, "denied"), status: http.StatusForbidden},
		{name: "not found", err: domain.NewError(domain.CodeRecommendationNotFound, "missing"), status: http.StatusNotFound},
		{name: "scope mismatch", err: domain.NewError(domain.CodeScopeMismatch, "outside scope"), status: http.StatusBadRequest},
		{name: "retries exhausted", err: domain.NewError(domain.CodeRetriesExhausted, "gave up"), status: http.StatusBadGateway},
		{name: "response too large", err: domain.NewError(domain.CodeResponseTooLarge, "too big"), status: http.StatusRequestEntityTooLarge},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			exs := &mockExemptions{}
			exs.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil, test.err)

			router := newTestRouter(&mockRecommendations{}, exs, &mockAssignments{})
			res := doRequest(t, router, http.MethodPost, "/exemptions",
				`{"recommendation_id":"rec-1","justification":"x","expiration_date":"2026-06-01T00:00:00Z"}`)

			require.Equal(t, test.status, res.Code)

			var envelope api.Error
			require.NoError(t, json.Unmarshal(res.Body.Bytes(), &envelope))
			assert.Equal(t, string(test.err.Code), envelope.ErrorCode)
		})
	}
}

func TestCircuitOpenResponseCarriesRetryAfter(t *testing.T) {
	exs := &mockExemptions{}
	exs.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.NewError(domain.CodeCircuitOpen, "circuit breaker is open").
			WithDetail("cooldown_remaining_seconds", 42.5))

	router := newTestRouter(&mockRecommendations{}, exs, &mockAssignments{})
	res := doRequest(t, router, http.MethodPost, "/exemptions",
		`{"recommendation_id":"rec-1","justification":"x","expiration_date":"2026-06-01T00:00:00Z"}`)

	require.Equal(t, http.StatusServiceUnavailable, res.Code)
	assert.Equal(t, "43", res.Header().Get("Retry-After"))
}

func TestUnexpectedErrorIsSanitized(t *testing.T) {
	exs := &mockExemptions{}
	exs.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	router := newTestRouter(&mockRecommendations{}, exs, &mockAssignments{})
	res := doRequest(t, router, http.MethodPost, "/exemptions",
		`{"recommendation_id":"rec-1","justification":"x","expiration_date":"2026-06-01T00:00:00Z"}`)

	require.Equal(t, http.StatusInternalServerError, res.Code)

	var envelope api.Error
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &envelope))
	assert.Equal(t, "INTERNAL_SERVER_ERROR", envelope.ErrorCode)
	assert.NotContains(t, res.Body.String(), assert.AnError.Error())
}

func TestListSuggestions_UnescapesRecommendationID(t *testing.T) {
	asgs := &mockAssignments{}
	asgs.On("Suggest", mock.Anything, mock.Anything,
		"/subscriptions/sub-1/providers/Microsoft.Security/assessments/a-1").
		Return([]domain.Suggestion{
			{Email: "owner@example.com", Name: "Owner", Confidence: 90, Rank: 1},
		}, nil)

	router := newTestRouter(&mockRecommendations{}, &mockExemptions{}, asgs)
	res := doRequest(t, router, http.MethodGet,
		"/recommendations/%2Fsubscriptions%2Fsub-1%2Fproviders%2FMicrosoft.Security%2Fassessments%2Fa-1/suggestions", "")

	require.Equal(t, http.StatusOK, res.Code)

	var out api.SuggestionList
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	require.Len(t, out.Suggestions, 1)
	assert.Equal(t, "owner@example.com", out.Suggestions[0].UserEmail)
	assert.Equal(t, 1, out.Suggestions[0].SuggestionRank)
	asgs.AssertExpectations(t)
}

func TestListAssignments_ParsesDueRange(t *testing.T) {
	asgs := &mockAssignments{}
	var gotFilters assignment.Filters
	asgs.On("List", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { gotFilters = args.Get(2).(assignment.Filters) }).
		Return(&assignment.Page{}, nil)

	router := newTestRouter(&mockRecommendations{}, &mockExemptions{}, asgs)
	res := doRequest(t, router, http.MethodGet,
		"/assignments?status=overdue&due_before=2026-04-01&due_after=2026-03-01T00:00:00Z", "")

	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "overdue", gotFilters.Status)
	require.NotNil(t, gotFilters.DueBefore)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), *gotFilters.DueBefore)
	require.NotNil(t, gotFilters.DueAfter)
}

func TestListAssignments_InvalidDueBefore(t *testing.T) {
	router := newTestRouter(&mockRecommendations{}, &mockExemptions{}, &mockAssignments{})
	res := doRequest(t, router, http.MethodGet, "/assignments?due_before=soon", "")

	require.Equal(t, http.StatusBadRequest, res.Code)

	var envelope api.Error
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION_ERROR", envelope.ErrorCode)
	assert.Equal(t, "due_before", envelope.Details["field"])
}

func TestCreateAssignment_Created(t *testing.T) {
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	asgs := &mockAssignments{}
	asgs.On("Create", mock.Anything, mock.Anything, assignment.CreateRequest{
		RecommendationID:   "rec-1",
		UserEmail:          "owner@example.com",
		DueDate:            &due,
		GracePeriodEnabled: true,
	}).Return(&domain.Assignment{
		ID:                 "assignment-1",
		RecommendationID:   "rec-1",
		UserEmail:          "owner@example.com",
		AssignedBy:         "admin@example.com",
		DueDate:            &due,
		GracePeriodEnabled: true,
		Status:             domain.AssignmentActive,
	}, nil)

	router := newTestRouter(&mockRecommendations{}, &mockExemptions{}, asgs)
	res := doRequest(t, router, http.MethodPost, "/assignments",
		`{"recommendation_id":"rec-1","assigned_user_email":"owner@example.com","due_date":"2026-04-01T00:00:00Z","grace_period_enabled":true}`)

	require.Equal(t, http.StatusCreated, res.Code)

	var out api.Assignment
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	assert.Equal(t, "assignment-1", out.AssignmentID)
	assert.Equal(t, "owner@example.com", out.AssignedUserEmail)
	assert.Equal(t, "active", out.AssignmentStatus)
	assert.True(t, out.GracePeriodEnabled)
	asgs.AssertExpectations(t)
}

func TestPrincipalFrom_EmptyHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/recommendations", nil)
	p := principalFrom(req)
	assert.Empty(t, p.ID)
	assert.Empty(t, p.Roles)
}
