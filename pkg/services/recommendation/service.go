// Package recommendation retrieves and filters security findings, merging in
// current assignment and exemption state per item.
package recommendation

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/errgroup"

	"github.com/de-tools/defender-bridge/pkg/adapters"
	"github.com/de-tools/defender-bridge/pkg/models/domain"
	"github.com/de-tools/defender-bridge/pkg/services/assignment"
	"github.com/de-tools/defender-bridge/pkg/services/auth"
	"github.com/de-tools/defender-bridge/pkg/services/normalize"
	"github.com/de-tools/defender-bridge/pkg/services/resilience"
	"github.com/de-tools/defender-bridge/pkg/store/securitycenter"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000

	defaultEnrichConcurrency = 8
)

const (
	AssignmentFilterAll        = "all"
	AssignmentFilterAssigned   = "assigned"
	AssignmentFilterUnassigned = "unassigned"
	AssignmentFilterOverdue    = "overdue"
)

type Filters struct {
	Severities         []string
	ResourceType       string
	SubscriptionID     string
	AssignmentStatus   string
	AssessmentStatuses []string
	Limit              int
	Offset             int
}

type Page struct {
	Items      []domain.Recommendation
	TotalCount int
	Limit      int
	Offset     int
}

type Service interface {
	List(ctx context.Context, principal domain.Principal, f Filters) (*Page, error)
}

type Config struct {
	SubscriptionID string
	// GracePeriod mirrors the assignment service setting so embedded
	// assignment summaries derive the same status.
	GracePeriod time.Duration

	CacheEnabled  bool
	CacheTTL      time.Duration
	CacheCapacity uint64

	EnrichConcurrency int
}

type service struct {
	client securitycenter.Client
	exec   *resilience.Executor
	cache  *ttlcache.Cache[string, []map[string]any]
	cfg    Config
	now    func() time.Time
}

func NewService(client securitycenter.Client, exec *resilience.Executor, cfg Config) Service {
	if cfg.EnrichConcurrency <= 0 {
		cfg.EnrichConcurrency = defaultEnrichConcurrency
	}
	s := &service{
		client: client,
		exec:   exec,
		cfg:    cfg,
		now:    time.Now,
	}
	if cfg.CacheEnabled {
		s.cache = ttlcache.New[string, []map[string]any](
			ttlcache.WithTTL[string, []map[string]any](cfg.CacheTTL),
			ttlcache.WithCapacity[string, []map[string]any](cfg.CacheCapacity),
		)
		go s.cache.Start()
	}
	return s
}

func (s *service) List(ctx context.Context, principal domain.Principal, f Filters) (*Page, error) {
	if err := auth.CheckPermission(principal.Roles, auth.OperationRead); err != nil {
		return nil, err
	}
	if err := validateFilters(&f); err != nil {
		return nil, err
	}

	subscription := f.SubscriptionID
	if subscription == "" {
		subscription = s.cfg.SubscriptionID
	}
	scope := "/subscriptions/" + subscription

	raws, err := s.fetchAssessments(ctx, scope)
	if err != nil {
		return nil, err
	}

	recommendations := make([]domain.Recommendation, 0, len(raws))
	for _, raw := range raws {
		recommendations = append(recommendations, mapAssessment(raw, subscription, scope))
	}

	filtered, postFiltered := applyLocalFilters(recommendations, f)
	if postFiltered {
		// Client-side filtering loses the provider's native order;
		// fall back to a stable order by recommendation id.
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].ID < filtered[j].ID })
	}

	exempted, err := s.fetchExempted(ctx, scope)
	if err != nil {
		return nil, err
	}

	var page []domain.Recommendation
	var total int
	if f.AssignmentStatus != "" && f.AssignmentStatus != AssignmentFilterAll {
		// Assignment-presence filtering needs assignment state for every
		// candidate, so enrichment happens before pagination.
		statuses, err := s.enrich(ctx, scope, filtered, exempted)
		if err != nil {
			return nil, err
		}
		filtered = filterByAssignment(filtered, statuses, f.AssignmentStatus)
		total = len(filtered)
		page = slicePage(filtered, f.Limit, f.Offset)
	} else {
		total = len(filtered)
		page = slicePage(filtered, f.Limit, f.Offset)
		if _, err := s.enrich(ctx, scope, page, exempted); err != nil {
			return nil, err
		}
	}

	if err := normalize.CheckSize(adapters.MapRecommendationPageDomainToApi(page, total, f.Limit, f.Offset)); err != nil {
		return nil, err
	}
	return &Page{Items: page, TotalCount: total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (s *service) fetchAssessments(ctx context.Context, scope string) ([]map[string]any, error) {
	if s.cache != nil {
		if item := s.cache.Get(scope); item != nil {
			return item.Value(), nil
		}
	}
	raws, err := resilience.Execute(ctx, s.exec, "assessments.list", func(ctx context.Context) ([]map[string]any, error) {
		return s.client.ListAssessments(ctx, scope)
	})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(scope, raws, ttlcache.DefaultTTL)
	}
	return raws, nil
}

// fetchExempted returns the ids of recommendations covered by an unexpired
// exemption. Expiry is evaluated here, at read time; the provider never
// signals it.
func (s *service) fetchExempted(ctx context.Context, scope string) (map[string]bool, error) {
	raws, err := resilience.Execute(ctx, s.exec, "exemptions.list", func(ctx context.Context) ([]map[string]any, error) {
		return s.client.ListExemptions(ctx, scope)
	})
	if err != nil {
		if securitycenter.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	now := s.now()
	exempted := make(map[string]bool)
	for _, raw := range raws {
		m, _ := normalize.Keys(raw).(map[string]any)
		if expires, ok := normalize.Time(m, "properties", "expires_on"); ok && expires.Before(now) {
			continue
		}
		if id := normalize.String(m, "properties", "metadata", "assessment_id"); id != "" {
			exempted[id] = true
		}
	}
	return exempted, nil
}

// enrich merges assignment and exemption state into each recommendation and
// returns the derived assignment status per index ("" when unassigned).
func (s *service) enrich(
	ctx context.Context,
	scope string,
	items []domain.Recommendation,
	exempted map[string]bool,
) ([]string, error) {
	statuses := make([]string, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.EnrichConcurrency)
	for i := range items {
		g.Go(func() error {
			rec := &items[i]
			if exempted[rec.ID] {
				rec.Status = domain.AssessmentNotApplicable
			}

			raws, err := resilience.Execute(gctx, s.exec, "governance_assignments.list",
				func(ctx context.Context) ([]map[string]any, error) {
					return s.client.ListGovernanceAssignments(ctx, scope, securitycenter.AssessmentName(rec.ID))
				})
			if err != nil {
				if securitycenter.IsNotFound(err) {
					return nil
				}
				return err
			}
			if len(raws) == 0 {
				return nil
			}

			// At most one active assignment per recommendation; the
			// provider serializes its own writes.
			a := assignment.FromProvider(raws[0], rec.ID, s.cfg.GracePeriod, s.now())
			rec.AssignedUser = &domain.AssignedUser{
				Email:            a.UserEmail,
				Name:             a.UserName,
				AssignmentDate:   a.AssignedAt,
				NotificationSent: a.NotificationSentAt != nil,
			}
			rec.DueDate = a.DueDate
			grace := a.GracePeriodEnabled
			rec.GracePeriodEnabled = &grace
			statuses[i] = string(a.Status)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
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
	for _, sev := range f.Severities {
		if _, ok := domain.ParseSeverity(sev); !ok {
			return domain.NewError(domain.CodeValidation,
				"invalid severity %q", sev).
				WithDetail("field", "severity").
				WithDetail("allowed", []string{"Critical", "High", "Medium", "Low"})
		}
	}
	switch f.AssignmentStatus {
	case "", AssignmentFilterAll, AssignmentFilterAssigned, AssignmentFilterUnassigned, AssignmentFilterOverdue:
	default:
		return domain.NewError(domain.CodeValidation,
			"assignment_status must be one of: assigned, unassigned, overdue, all").
			WithDetail("field", "assignment_status").
			WithDetail("assignment_status", f.AssignmentStatus)
	}
	return nil
}

func applyLocalFilters(items []domain.Recommendation, f Filters) ([]domain.Recommendation, bool) {
	if len(f.Severities) == 0 && f.ResourceType == "" && len(f.AssessmentStatuses) == 0 {
		return items, false
	}

	res := make([]domain.Recommendation, 0, len(items))
	for _, rec := range items {
		if len(f.Severities) > 0 && !matchesSeverity(rec.Severity, f.Severities) {
			continue
		}
		if f.ResourceType != "" && !matchesResourceType(rec, f.ResourceType) {
			continue
		}
		if len(f.AssessmentStatuses) > 0 && !containsFold(f.AssessmentStatuses, string(rec.Status)) {
			continue
		}
		res = append(res, rec)
	}
	return res, true
}

func matchesSeverity(s domain.Severity, wanted []string) bool {
	for _, w := range wanted {
		if sev, ok := domain.ParseSeverity(w); ok && sev == s {
			return true
		}
	}
	return false
}

func matchesResourceType(rec domain.Recommendation, resourceType string) bool {
	for _, r := range rec.Resources {
		if strings.Contains(strings.ToLower(r.Type), strings.ToLower(resourceType)) {
			return true
		}
	}
	return false
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

func filterByAssignment(items []domain.Recommendation, statuses []string, filter string) []domain.Recommendation {
	res := make([]domain.Recommendation, 0, len(items))
	for i, rec := range items {
		switch filter {
		case AssignmentFilterAssigned:
			if rec.AssignedUser == nil {
				continue
			}
		case AssignmentFilterUnassigned:
			if rec.AssignedUser != nil {
				continue
			}
		case AssignmentFilterOverdue:
			if statuses[i] != string(domain.AssignmentOverdue) {
				continue
			}
		}
		res = append(res, rec)
	}
	return res
}

func slicePage(items []domain.Recommendation, limit, offset int) []domain.Recommendation {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
