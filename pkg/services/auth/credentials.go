package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/de-tools/defender-bridge/pkg/models/domain"
	"gopkg.in/ini.v1"
)

const (
	DefaultProfile = "default"

	managementScope = "https://management.azure.com/.default"
)

type Profile struct {
	SubscriptionID string
	TenantID       string
	ClientID       string
}

// LoadProfile reads a named profile from the Azure CLI config file.
// An empty configPath defaults to ~/.azure/config.
func LoadProfile(configPath, profile string) (*Profile, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("unable to get home directory: %w", err)
		}
		configPath = filepath.Join(homeDir, ".azure", "config")
	}

	cfg, err := ini.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("unable to load Azure config file: %w", err)
	}

	section, err := cfg.GetSection(profile)
	if err != nil {
		return nil, fmt.Errorf("profile %s not found in Azure config: %w", profile, err)
	}

	p := &Profile{
		SubscriptionID: section.Key("subscription").String(),
		TenantID:       section.Key("tenant").String(),
		ClientID:       section.Key("client_id").String(),
	}
	if p.SubscriptionID == "" {
		return nil, fmt.Errorf("subscription ID not found in profile %s", profile)
	}
	return p, nil
}

// CredentialProvider resolves the provider-facing authorization context.
// The chain is fixed: explicit client secret, then platform-managed
// identity, then the local CLI session.
type CredentialProvider struct {
	profile *Profile
	secret  string
}

func NewCredentialProvider(p *Profile) *CredentialProvider {
	return &CredentialProvider{
		profile: p,
		secret:  os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

// Resolve returns the first credential in the chain that yields a valid
// token. Secret material is never logged or echoed in errors.
func (c *CredentialProvider) Resolve(ctx context.Context) (azcore.TokenCredential, error) {
	var sources []azcore.TokenCredential
	var tried []string

	if c.secret != "" && c.profile.TenantID != "" && c.profile.ClientID != "" {
		tried = append(tried, "client_secret")
		cred, err := azidentity.NewClientSecretCredential(c.profile.TenantID, c.profile.ClientID, c.secret, nil)
		if err == nil {
			sources = append(sources, cred)
		}
	}

	tried = append(tried, "managed_identity")
	if cred, err := azidentity.NewManagedIdentityCredential(nil); err == nil {
		sources = append(sources, cred)
	}

	tried = append(tried, "azure_cli")
	if cred, err := azidentity.NewAzureCLICredential(nil); err == nil {
		sources = append(sources, cred)
	}

	if len(sources) == 0 {
		return nil, credentialUnavailable(tried, nil)
	}

	chain, err := azidentity.NewChainedTokenCredential(sources, nil)
	if err != nil {
		return nil, credentialUnavailable(tried, err)
	}

	// Probe for a management-plane token so a dead chain fails here
	// instead of on the first provider call.
	if _, err := chain.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{managementScope}}); err != nil {
		return nil, credentialUnavailable(tried, err)
	}

	return chain, nil
}

func credentialUnavailable(tried []string, cause error) error {
	e := domain.NewError(domain.CodeCredentialUnavailable,
		"no credential in the chain produced a valid token").
		WithDetail("sources_tried", tried)
	if cause != nil {
		e = e.WithCause(cause)
	}
	return e
}
