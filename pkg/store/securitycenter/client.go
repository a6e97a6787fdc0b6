// Package securitycenter is the REST client for the upstream security
// provider. Responses stay in the provider's raw shape (map[string]any);
// field normalization happens at the service boundary so no other package
// depends on provider vocabulary.
package securitycenter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

const (
	defaultBaseURL  = "https://management.azure.com"
	managementScope = "https://management.azure.com/.default"

	apiVersionAssessments = "2021-06-01"
	apiVersionExemptions  = "2022-07-01-preview"
	apiVersionGovernance  = "2022-01-01-preview"
	apiVersionActiveUsers = "2023-02-01-preview"
	apiVersionPricings    = "2023-01-01"

	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 8 << 20
)

// Client covers the provider operations the services consume. Every call is
// scoped by a hierarchical ARM identifier (subscription / resource group /
// resource / recommendation).
type Client interface {
	ListAssessments(ctx context.Context, scope string) ([]map[string]any, error)
	GetAssessment(ctx context.Context, scope, name string) (map[string]any, error)
	ListExemptions(ctx context.Context, scope string) ([]map[string]any, error)
	CreateExemption(ctx context.Context, scope, name string, payload map[string]any) (map[string]any, error)
	ListGovernanceAssignments(ctx context.Context, scope, assessmentName string) ([]map[string]any, error)
	CreateGovernanceAssignment(ctx context.Context, scope, assessmentName, name string, payload map[string]any) (map[string]any, error)
	ListActiveUsers(ctx context.Context, scope, assessmentName string) ([]map[string]any, error)
	GetPricing(ctx context.Context, subscriptionID, plan string) (map[string]any, error)
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type restClient struct {
	http    *http.Client
	cred    azcore.TokenCredential
	base    string
	scope   string
	timeout time.Duration
}

func NewClient(cred azcore.TokenCredential, opts *Options) Client {
	return newRestClient(cred, opts, defaultBaseURL, managementScope)
}

func newRestClient(cred azcore.TokenCredential, opts *Options, base, scope string) *restClient {
	c := &restClient{
		http:    http.DefaultClient,
		cred:    cred,
		base:    base,
		scope:   scope,
		timeout: defaultTimeout,
	}
	if opts != nil {
		if opts.BaseURL != "" {
			c.base = strings.TrimSuffix(opts.BaseURL, "/")
		}
		if opts.Timeout > 0 {
			c.timeout = opts.Timeout
		}
		if opts.HTTPClient != nil {
			c.http = opts.HTTPClient
		}
	}
	return c
}

func (c *restClient) ListAssessments(ctx context.Context, scope string) ([]map[string]any, error) {
	q := url.Values{"$expand": {"metadata"}}
	return c.list(ctx, scope+"/providers/Microsoft.Security/assessments", apiVersionAssessments, q)
}

func (c *restClient) GetAssessment(ctx context.Context, scope, name string) (map[string]any, error) {
	q := url.Values{"api-version": {apiVersionAssessments}, "$expand": {"metadata"}}
	path := scope + "/providers/Microsoft.Security/assessments/" + url.PathEscape(name)
	return c.do(ctx, http.MethodGet, path, q, nil)
}

func (c *restClient) ListExemptions(ctx context.Context, scope string) ([]map[string]any, error) {
	return c.list(ctx, scope+"/providers/Microsoft.Authorization/policyExemptions", apiVersionExemptions, nil)
}

func (c *restClient) CreateExemption(ctx context.Context, scope, name string, payload map[string]any) (map[string]any, error) {
	q := url.Values{"api-version": {apiVersionExemptions}}
	path := scope + "/providers/Microsoft.Authorization/policyExemptions/" + url.PathEscape(name)
	return c.do(ctx, http.MethodPut, path, q, payload)
}

// ListGovernanceAssignments lists assignments under one assessment, or under
// the whole scope when assessmentName is empty.
func (c *restClient) ListGovernanceAssignments(ctx context.Context, scope, assessmentName string) ([]map[string]any, error) {
	path := scope + "/providers/Microsoft.Security/governanceAssignments"
	if assessmentName != "" {
		path = scope + "/providers/Microsoft.Security/assessments/" + url.PathEscape(assessmentName) + "/governanceAssignments"
	}
	return c.list(ctx, path, apiVersionGovernance, nil)
}

func (c *restClient) CreateGovernanceAssignment(
	ctx context.Context,
	scope, assessmentName, name string,
	payload map[string]any,
) (map[string]any, error) {
	q := url.Values{"api-version": {apiVersionGovernance}}
	path := scope + "/providers/Microsoft.Security/assessments/" +
		url.PathEscape(assessmentName) + "/governanceAssignments/" + url.PathEscape(name)
	return c.do(ctx, http.MethodPut, path, q, payload)
}

func (c *restClient) ListActiveUsers(ctx context.Context, scope, assessmentName string) ([]map[string]any, error) {
	path := scope + "/providers/Microsoft.Security/assessments/" + url.PathEscape(assessmentName) + "/activeUsers"
	return c.list(ctx, path, apiVersionActiveUsers, nil)
}

func (c *restClient) GetPricing(ctx context.Context, subscriptionID, plan string) (map[string]any, error) {
	q := url.Values{"api-version": {apiVersionPricings}}
	path := "/subscriptions/" + url.PathEscape(subscriptionID) +
		"/providers/Microsoft.Security/pricings/" + url.PathEscape(plan)
	return c.do(ctx, http.MethodGet, path, q, nil)
}

// list fetches a collection endpoint and follows nextLink continuations.
func (c *restClient) list(ctx context.Context, path, apiVersion string, extra url.Values) ([]map[string]any, error) {
	q := url.Values{"api-version": {apiVersion}}
	for k, vs := range extra {
		q[k] = vs
	}

	var items []map[string]any
	next := path
	query := q
	for next != "" {
		out, err := c.do(ctx, http.MethodGet, next, query, nil)
		if err != nil {
			return nil, err
		}
		if value, ok := out["value"].([]any); ok {
			for _, it := range value {
				if m, ok := it.(map[string]any); ok {
					items = append(items, m)
				}
			}
		}
		next, _ = out["nextLink"].(string)
		query = nil // nextLink already carries its query string
	}
	return items, nil
}

func (c *restClient) do(ctx context.Context, method, path string, query url.Values, body any) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{c.scope}})
	if err != nil {
		return nil, fmt.Errorf("acquire provider token: %w", err)
	}

	u := path
	if !strings.Contains(u, "://") {
		u = c.base + u
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ProviderError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("read response body: %v", err)}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if len(raw) == 0 {
			return map[string]any{}, nil
		}
		var out map[string]any
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode provider response: %w", err)
		}
		return out, nil
	}

	return nil, newProviderError(resp, raw)
}

func newProviderError(resp *http.Response, raw []byte) *ProviderError {
	pe := &ProviderError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
		pe.Code = envelope.Error.Code
		pe.Message = envelope.Error.Message
	}
	if d, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
		pe.retryAfter = d
		pe.hasHint = true
	}
	return pe
}
