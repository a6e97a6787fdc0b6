// Package assignment retrieves ranked owner suggestions, creates and lists
// user assignments, and derives assignment lifecycle status at read time.
package assignment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/de-tools/defender-bridge/pkg/adapters"
	"github.com/de-tools/defender-bridge/pkg/models/domain"
	"github.com/de-tools/defender-bridge/pkg/services/auth"
	"github.com/de-tools/defender-bridge/pkg/services/normalize"
	"github.com/de-tools/defender-bridge/pkg/services/resilience"
	"github.com/de-tools/defender-bridge/pkg/store/securitycenter"
)

const (
	// PlanCloudPosture is the provider plan that gates assignment creation.
	PlanCloudPosture = "CloudPosture"

	requiredPricingTier = "Standard"

	DefaultLimit = 100
	MaxLimit     = 1000
)

type CreateRequest struct {
	RecommendationID   string
	UserEmail          string
	DueDate            *time.Time
	GracePeriodEnabled bool
}

type Filters struct {
	DueBefore *time.Time
	DueAfter  *time.Time
	Status    string
	Limit     int
	Offset    int
}

type Page struct {
	Items      []domain.Assignment
	TotalCount int
	Limit      int
	Offset     int
}

type Service interface {
	Suggest(ctx context.Context, principal domain.Principal, recommendationID string) ([]domain.Suggestion, error)
	Create(ctx context.Context, principal domain.Principal, req CreateRequest) (*domain.Assignment, error)
	List(ctx context.Context, principal domain.Principal, f Filters) (*Page, error)
}

type Config struct {
	SubscriptionID string
	// GracePeriod extends the overdue threshold for assignments created
	// with the grace period enabled. Externally configured; there is no
	// provider-defined default.
	GracePeriod time.Duration
}

type service struct {
	client    securitycenter.Client
	directory securitycenter.Directory
	exec      *resilience.Executor
	cfg       Config
	now       func() time.Time
}

func NewService(client securitycenter.Client, directory securitycenter.Directory, exec *resilience.Executor, cfg Config) Service {
	return &service{
		client:    client,
		directory: directory,
		exec:      exec,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *service) Suggest(ctx context.Context, principal domain.Principal, recommendationID string) ([]domain.Suggestion, error) {
	if err := auth.CheckPermission(principal.Roles, auth.OperationRead); err != nil {
		return nil, err
	}

	scope := securitycenter.AssessmentScope(recommendationID)
	if scope == "" {
		scope = s.subscriptionScope()
	}
	name := securitycenter.AssessmentName(recommendationID)

	raws, err := resilience.Execute(ctx, s.exec, "active_users.list", func(ctx context.Context) ([]map[string]any, error) {
		return s.client.ListActiveUsers(ctx, scope, name)
	})
	if err != nil {
		if securitycenter.IsNotFound(err) {
			return nil, domain.NewError(domain.CodeRecommendationNotFound,
				"recommendation %q not found", recommendationID).
				WithDetail("recommendation_id", recommendationID)
		}
		return nil, err
	}

	suggestions := make([]domain.Suggestion, 0, len(raws))
	for _, raw := range raws {
		suggestions = append(suggestions, mapSuggestion(raw))
	}
	// No activity data is a valid outcome, not an error.
	return Rank(suggestions), nil
}

func (s *service) Create(ctx context.Context, principal domain.Principal, req CreateRequest) (*domain.Assignment, error) {
	if err := s.checkPlanEnabled(ctx); err != nil {
		return nil, err
	}
	if err := auth.CheckPermission(principal.Roles, auth.OperationAssign); err != nil {
		return nil, err
	}
	now := s.now()
	if req.DueDate != nil && !req.DueDate.After(now) {
		return nil, domain.NewError(domain.CodeValidation,
			"due_date must be strictly in the future").
			WithDetail("field", "due_date").
			WithDetail("due_date", req.DueDate.Format(time.RFC3339))
	}

	user, err := resilience.Execute(ctx, s.exec, "directory.resolve_user", func(ctx context.Context) (map[string]any, error) {
		return s.directory.ResolveUser(ctx, req.UserEmail)
	})
	if err != nil {
		if securitycenter.IsNotFound(err) {
			return nil, domain.NewError(domain.CodeUserNotFound,
				"user %q not found in the directory", req.UserEmail).
				WithDetail("assigned_user_email", req.UserEmail)
		}
		return nil, err
	}
	userName := normalize.String(normalizeMap(user), "display_name")

	scope := securitycenter.AssessmentScope(req.RecommendationID)
	if scope == "" {
		scope = s.subscriptionScope()
	}
	assessmentName := securitycenter.AssessmentName(req.RecommendationID)
	assignmentName := uuid.NewString()

	props := map[string]any{
		"owner":                req.UserEmail,
		"isGracePeriodEnabled": req.GracePeriodEnabled,
		"governanceEmailNotification": map[string]any{
			"disableManagerEmailNotification": false,
			"disableOwnerEmailNotification":   false,
		},
		"additionalData": map[string]any{
			"assignedBy": principal.ID,
		},
	}
	if req.DueDate != nil {
		props["remediationDueDate"] = req.DueDate.UTC().Format(time.RFC3339)
	}
	payload := map[string]any{"properties": props}

	raw, err := resilience.Execute(ctx, s.exec, "governance_assignments.create", func(ctx context.Context) (map[string]any, error) {
		return s.client.CreateGovernanceAssignment(ctx, scope, assessmentName, assignmentName, payload)
	})
	if err != nil {
		if securitycenter.IsNotFound(err) {
			return nil, domain.NewError(domain.CodeRecommendationNotFound,
				"recommendation %q not found", req.RecommendationID).
				WithDetail("recommendation_id", req.RecommendationID)
		}
		return nil, err
	}

	assignment := FromProvider(raw, req.RecommendationID, s.cfg.GracePeriod, now)
	if assignment.UserName == "" {
		assignment.UserName = userName
	}
	if assignment.AssignedBy == "" {
		assignment.AssignedBy = principal.ID
	}
	return &assignment, nil
}

func (s *service) List(ctx context.Context, principal domain.Principal, f Filters) (*Page, error) {
	if err := auth.CheckPermission(principal.Roles, auth.OperationRead); err != nil {
		return nil, err
	}
	if err := validateFilters(&f); err != nil {
		return nil, err
	}

	raws, err := resilience.Execute(ctx, s.exec, "governance_assignments.list", func(ctx context.Context) ([]map[string]any, error) {
		return s.client.ListGovernanceAssignments(ctx, s.subscriptionScope(), "")
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	logger := zerolog.Ctx(ctx)
	items := make([]domain.Assignment, 0, len(raws))
	for _, raw := range raws {
		a := FromProvider(raw, "", s.cfg.GracePeriod, now)
		if reported := providerReportedStatus(raw); reported != "" &&
			!domain.ValidAssignmentTransition(domain.AssignmentStatus(reported), a.Status) {
			// Data-consistency anomaly: surface it, never coerce the
			// derived status to match the provider's stored one.
			logger.Warn().
				Str("assignment_id", a.ID).
				Str("provider_status", reported).
				Str("derived_status", string(a.Status)).
				Msg("assignment status transition anomaly")
		}
		if !matchesFilters(a, f) {
			continue
		}
		items = append(items, a)
	}

	total := len(items)
	page := paginate(items, f.Limit, f.Offset)
	if err := normalize.CheckSize(adapters.MapAssignmentPageDomainToApi(page, total, f.Limit, f.Offset)); err != nil {
		return nil, err
	}
	return &Page{Items: page, TotalCount: total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (s *service) checkPlanEnabled(ctx context.Context) error {
	raw, err := resilience.Execute(ctx, s.exec, "pricings.get", func(ctx context.Context) (map[string]any, error) {
		return s.client.GetPricing(ctx, s.cfg.SubscriptionID, PlanCloudPosture)
	})
	if err != nil && !securitycenter.IsNotFound(err) {
		return err
	}
	tier := ""
	if err == nil {
		tier = normalize.String(normalizeMap(raw), "properties", "pricing_tier")
	}
	if tier != requiredPricingTier {
		return domain.NewError(domain.CodePlanNotEnabled,
			"the %s plan is not enabled on subscription %s", PlanCloudPosture, s.cfg.SubscriptionID).
			WithDetail("plan", PlanCloudPosture).
			WithDetail("required_tier", requiredPricingTier)
	}
	return nil
}

func (s *service) subscriptionScope() string {
	return "/subscriptions/" + s.cfg.SubscriptionID
}

func validateFilters(f *Filters) error {
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit < 0 || f.Limit > MaxLimit {
		return domain.NewError(domain.CodeValidation,
			"limit must be between 1 and %d", MaxLimit).
			WithDetail("field", "limit").
			WithDetail("max", MaxLimit)
	}
	if f.Offset < 0 {
		return domain.NewError(domain.CodeValidation, "offset must not be negative").
			WithDetail("field", "offset")
	}
	switch domain.AssignmentStatus(f.Status) {
	case "", domain.AssignmentActive, domain.AssignmentOverdue, domain.AssignmentCompleted:
	default:
		return domain.NewError(domain.CodeValidation,
			"status must be one of: active, overdue, completed").
			WithDetail("field", "status").
			WithDetail("status", f.Status)
	}
	return nil
}

func matchesFilters(a domain.Assignment, f Filters) bool {
	if f.Status != "" && a.Status != domain.AssignmentStatus(f.Status) {
		return false
	}
	if f.DueBefore != nil && (a.DueDate == nil || a.DueDate.After(*f.DueBefore)) {
		return false
	}
	if f.DueAfter != nil && (a.DueDate == nil || a.DueDate.Before(*f.DueAfter)) {
		return false
	}
	return true
}

func paginate(items []domain.Assignment, limit, offset int) []domain.Assignment {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
