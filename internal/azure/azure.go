// Package azure adapts the Azure SDK management clients to the interfaces
// consumed by the portal.
package azure

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/vmportal/internal/config"
	"github.com/yairfalse/vmportal/internal/portal"
)

// Provider owns the credential and builds per-subscription SDK clients.
type Provider struct {
	cred azcore.TokenCredential
	opts *arm.ClientOptions

	vms         *VMs
	metrics     *Metrics
	subs        *Subscriptions
	appServices *AppServices
	schedules   *Schedules
	jobs        *Jobs
	logs        *Logs
}

// NewCredential returns a service principal credential when a client secret
// is configured and the default credential chain otherwise.
func NewCredential(cfg config.AzureConfig) (azcore.TokenCredential, error) {
	if cfg.HasClientSecret() {
		cred, err := azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
		if err != nil {
			return nil, fmt.Errorf("create client secret credential: %w", err)
		}
		log.Debug().Str("client_id", cfg.ClientID).Msg("using service principal credential")
		return cred, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		TenantID: cfg.TenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("create default credential: %w", err)
	}
	log.Debug().Msg("using default azure credential chain")
	return cred, nil
}

// New creates a Provider. opts may be nil.
func New(cfg config.AzureConfig, opts *arm.ClientOptions) (*Provider, error) {
	cred, err := NewCredential(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithCredential(cred, opts)
}

// NewWithCredential creates a Provider from an existing credential.
func NewWithCredential(cred azcore.TokenCredential, opts *arm.ClientOptions) (*Provider, error) {
	subs, err := newSubscriptions(cred, opts)
	if err != nil {
		return nil, err
	}
	logs, err := newLogs(cred, opts)
	if err != nil {
		return nil, err
	}

	return &Provider{
		cred:        cred,
		opts:        opts,
		vms:         newVMs(cred, opts),
		metrics:     newMetrics(cred, opts),
		subs:        subs,
		appServices: newAppServices(cred, opts),
		schedules:   newSchedules(cred, opts),
		jobs:        newJobs(cred, opts),
		logs:        logs,
	}, nil
}

// Clients returns the adapters as the portal's client bundle.
func (p *Provider) Clients() portal.Clients {
	return portal.Clients{
		VMs:           p.vms,
		Metrics:       p.metrics,
		Subscriptions: p.subs,
		AppServices:   p.appServices,
		Schedules:     p.schedules,
		Jobs:          p.jobs,
		Logs:          p.logs,
	}
}
