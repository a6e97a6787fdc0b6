package securitycenter

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

const (
	graphBaseURL = "https://graph.microsoft.com"
	graphScope   = "https://graph.microsoft.com/.default"
)

// Directory resolves assignee identities. A 404 means the email does not
// exist in the tenant directory.
type Directory interface {
	ResolveUser(ctx context.Context, email string) (map[string]any, error)
}

type graphDirectory struct {
	rest *restClient
}

func NewDirectory(cred azcore.TokenCredential, opts *Options) Directory {
	return &graphDirectory{rest: newRestClient(cred, opts, graphBaseURL, graphScope)}
}

func (d *graphDirectory) ResolveUser(ctx context.Context, email string) (map[string]any, error) {
	q := url.Values{"$select": {"displayName,mail,department,jobTitle"}}
	path := "/v1.0/users/" + url.PathEscape(email)
	return d.rest.do(ctx, http.MethodGet, path, q, nil)
}
