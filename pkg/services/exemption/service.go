// Package exemption validates and creates exemptions against a
// recommendation. Local checks run in a fixed order before any upstream
// call is issued.
package exemption

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/de-tools/defender-bridge/pkg/models/domain"
	"github.com/de-tools/defender-bridge/pkg/services/auth"
	"github.com/de-tools/defender-bridge/pkg/services/normalize"
	"github.com/de-tools/defender-bridge/pkg/services/resilience"
	"github.com/de-tools/defender-bridge/pkg/store/securitycenter"
)

// MinJustificationLength is the shortest acceptable justification.
const MinJustificationLength = 10

const defaultCategory = "Waiver"

type Request struct {
	RecommendationID string
	Justification    string
	ExpirationDate   time.Time
	Scope            string
	Category         string
}

type Service interface {
	Create(ctx context.Context, principal domain.Principal, req Request) (*domain.Exemption, error)
}

type Config struct {
	SubscriptionID string
}

type service struct {
	client securitycenter.Client
	exec   *resilience.Executor
	cfg    Config
	now    func() time.Time
}

func NewService(client securitycenter.Client, exec *resilience.Executor, cfg Config) Service {
	return &service{
		client: client,
		exec:   exec,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Create validates the request in order - justification length, expiration,
// recommendation existence, caller authorization, scope containment - and
// only then issues the upstream create.
func (s *service) Create(ctx context.Context, principal domain.Principal, req Request) (*domain.Exemption, error) {
	if len(req.Justification) < MinJustificationLength {
		return nil, domain.NewError(domain.CodeValidation,
			"justification must be at least %d characters", MinJustificationLength).
			WithDetail("field", "justification").
			WithDetail("min_length", MinJustificationLength).
			WithDetail("actual_length", len(req.Justification))
	}

	now := s.now()
	if !req.ExpirationDate.After(now) {
		return nil, domain.NewError(domain.CodeValidation,
			"expiration_date must be strictly in the future").
			WithDetail("field", "expiration_date").
			WithDetail("expiration_date", req.ExpirationDate.Format(time.RFC3339))
	}

	recScope := securitycenter.AssessmentScope(req.RecommendationID)
	if recScope == "" {
		recScope = "/subscriptions/" + s.cfg.SubscriptionID
	}
	assessmentName := securitycenter.AssessmentName(req.RecommendationID)

	assessment, err := resilience.Execute(ctx, s.exec, "assessments.get", func(ctx context.Context) (map[string]any, error) {
		return s.client.GetAssessment(ctx, recScope, assessmentName)
	})
	if err != nil {
		if securitycenter.IsNotFound(err) {
			return nil, domain.NewError(domain.CodeRecommendationNotFound,
				"recommendation %q not found", req.RecommendationID).
				WithDetail("recommendation_id", req.RecommendationID)
		}
		return nil, err
	}

	if err := auth.CheckPermission(principal.Roles, auth.OperationExempt); err != nil {
		return nil, err
	}

	if id := normalize.String(normalizeMap(assessment), "id"); id != "" {
		if sc := securitycenter.AssessmentScope(id); sc != "" {
			recScope = sc
		}
	}
	requestedScope := req.Scope
	if requestedScope == "" {
		requestedScope = recScope
	}
	if !securitycenter.ScopeWithin(requestedScope, recScope) {
		return nil, domain.NewError(domain.CodeScopeMismatch,
			"requested scope is not within the recommendation's scope").
			WithDetail("requested_scope", requestedScope).
			WithDetail("recommendation_scope", recScope)
	}

	category := req.Category
	if category == "" {
		category = defaultCategory
	}
	name := assessmentName + "-exemption-" + uuid.NewString()[:8]
	payload := map[string]any{
		"properties": map[string]any{
			"description":       req.Justification,
			"exemptionCategory": category,
			"expiresOn":         req.ExpirationDate.UTC().Format(time.RFC3339),
			"metadata": map[string]any{
				"assessmentId": req.RecommendationID,
				"requestedBy":  principal.ID,
			},
		},
	}

	created, err := resilience.Execute(ctx, s.exec, "exemptions.create", func(ctx context.Context) (map[string]any, error) {
		return s.client.CreateExemption(ctx, requestedScope, name, payload)
	})
	if err != nil {
		return nil, err
	}

	return mapExemption(created, req, principal, requestedScope, category, name, now), nil
}

func mapExemption(
	raw map[string]any,
	req Request,
	principal domain.Principal,
	scope, category, name string,
	now time.Time,
) *domain.Exemption {
	m := normalizeMap(raw)

	e := &domain.Exemption{
		ID:               name,
		RecommendationID: req.RecommendationID,
		Justification:    req.Justification,
		CreatedBy:        principal.ID,
		Scope:            scope,
		Category:         category,
		ExpiresAt:        req.ExpirationDate,
		CreatedAt:        now,
	}
	if id := normalize.String(m, "id"); id != "" {
		e.ID = id
	}
	if t, ok := normalize.Time(m, "system_data", "created_at"); ok {
		e.CreatedAt = t
	}
	return e
}

func normalizeMap(raw map[string]any) map[string]any {
	m, _ := normalize.Keys(raw).(map[string]any)
	return m
}
