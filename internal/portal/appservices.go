package portal

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yairfalse/vmportal/pkg/resource"
)

// AppServiceTarget locates a web app. Both fields are required.
type AppServiceTarget struct {
	SubscriptionID string `json:"subscriptionId"`
	ResourceGroup  string `json:"resourceGroup"`
}

// FailedSubscription records a subscription whose listing failed.
type FailedSubscription struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// AppServiceList is the cross-subscription App Service inventory.
type AppServiceList struct {
	ByResourceGroup      map[string][]resource.AppService      `json:"appServicesByResourceGroup"`
	Groups               []resource.Group[resource.AppService] `json:"groups"`
	TotalCount           int                                   `json:"totalCount"`
	SubscriptionsScanned []string                              `json:"subscriptionsScanned"`
	FailedSubscriptions  []FailedSubscription                  `json:"failedSubscriptions,omitempty"`
}

// ConfigureResult is the response to an app settings merge.
type ConfigureResult struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	Name            string   `json:"name"`
	UpdatedSettings []string `json:"updatedSettings"`
}

// SKU is a requested App Service plan tier.
type SKU struct {
	Name     string `json:"name"`
	Tier     string `json:"tier"`
	Capacity *int   `json:"capacity,omitempty"`
}

func (p *Portal) appServiceClient() (AppServiceClient, error) {
	if p.clients.AppServices == nil {
		return nil, misconfigured(errClientUnavailable)
	}
	return p.clients.AppServices, nil
}

func checkAppService(name string, target AppServiceTarget) error {
	if !resource.ValidName(name, resource.KindAppService) {
		return Invalid("Invalid App Service name")
	}
	if target.SubscriptionID == "" || target.ResourceGroup == "" {
		return Invalid("subscriptionId and resourceGroup are required")
	}
	return nil
}

// ListAppServices scans every visible subscription in discovery order. A
// subscription that fails to list is reported and skipped.
func (p *Portal) ListAppServices(ctx context.Context) (_ *AppServiceList, err error) {
	ctx, done := p.observe(ctx, "ListAppServices")
	defer done(&err)

	client, err := p.appServiceClient()
	if err != nil {
		return nil, err
	}
	if p.clients.Subscriptions == nil {
		return nil, misconfigured(errClientUnavailable)
	}

	subs, err := p.clients.Subscriptions.List(ctx)
	if err != nil {
		return nil, remote("Failed to list App Services", err)
	}

	var (
		all     []resource.AppService
		scanned = []string{}
		failed  []FailedSubscription
	)
	for _, sub := range subs {
		if sub.ID == "" || sub.DisplayName == "" {
			continue
		}
		scanned = append(scanned, sub.ID)

		apps, err := client.List(ctx, sub.ID)
		if err != nil {
			p.logger.Warn().Ctx(ctx).Err(err).Str("subscription", sub.DisplayName).
				Msg("failed to list app services in subscription")
			failed = append(failed, FailedSubscription{ID: sub.ID, Error: err.Error()})
			continue
		}
		for _, app := range apps {
			if app.Name == "" || app.ID == "" {
				continue
			}
			app.SubscriptionID = sub.ID
			app.SubscriptionName = sub.DisplayName
			app.ResourceGroup = resource.GroupKey(app.ID)
			all = append(all, app)
		}
	}

	groups := resource.GroupByResourceGroup(all, func(a resource.AppService) string { return a.ID })

	p.logger.Info().Ctx(ctx).
		Int("count", len(all)).
		Int("subscriptions", len(scanned)).
		Msg("listed app services")

	return &AppServiceList{
		ByResourceGroup:      resource.GroupMap(groups),
		Groups:               groups,
		TotalCount:           len(all),
		SubscriptionsScanned: scanned,
		FailedSubscriptions:  failed,
	}, nil
}

// AppServiceAction starts, stops or restarts one web app.
func (p *Portal) AppServiceAction(ctx context.Context, action Action, name string, target AppServiceTarget, who Principal) (_ *ActionResult, err error) {
	op := action.title() + "AppService"
	ctx, done := p.observe(ctx, op, attribute.String("appservice.name", name))
	defer done(&err)

	if err := checkAppService(name, target); err != nil {
		return nil, err
	}
	client, err := p.appServiceClient()
	if err != nil {
		return nil, err
	}

	p.audit(ctx, op, who, map[string]any{
		"appServiceName": name,
		"subscriptionId": target.SubscriptionID,
		"resourceGroup":  target.ResourceGroup,
	})

	switch action {
	case ActionStart:
		err = client.Start(ctx, target.SubscriptionID, target.ResourceGroup, name)
	case ActionStop:
		err = client.Stop(ctx, target.SubscriptionID, target.ResourceGroup, name)
	default:
		err = client.Restart(ctx, target.SubscriptionID, target.ResourceGroup, name)
	}
	if err != nil {
		return nil, remote(fmt.Sprintf("Failed to %s App Service", action), err)
	}

	p.logger.Info().Ctx(ctx).Str("appservice", name).Msgf("app service %s", action.pastTense())

	return &ActionResult{
		Success: true,
		Message: fmt.Sprintf("App Service %s %s successfully", name, action.pastTense()),
		Name:    name,
	}, nil
}

// ConfigureAppService merges settings into the app's current settings.
// Supplied keys overwrite existing ones; other keys are left untouched.
func (p *Portal) ConfigureAppService(ctx context.Context, name string, target AppServiceTarget, settings map[string]string, who Principal) (_ *ConfigureResult, err error) {
	ctx, done := p.observe(ctx, "ConfigureAppService", attribute.String("appservice.name", name))
	defer done(&err)

	if !resource.ValidName(name, resource.KindAppService) {
		return nil, Invalid("Invalid App Service name")
	}
	if target.SubscriptionID == "" || target.ResourceGroup == "" || settings == nil {
		return nil, Invalid("subscriptionId, resourceGroup, and appSettings are required")
	}
	client, err := p.appServiceClient()
	if err != nil {
		return nil, err
	}

	p.audit(ctx, "ConfigureAppService", who, map[string]any{
		"appServiceName": name,
		"subscriptionId": target.SubscriptionID,
		"resourceGroup":  target.ResourceGroup,
		"settingsCount":  len(settings),
	})

	current, err := client.ApplicationSettings(ctx, target.SubscriptionID, target.ResourceGroup, name)
	if err != nil {
		return nil, remote("Failed to configure App Service", err)
	}

	merged := make(map[string]string, len(current)+len(settings))
	for k, v := range current {
		merged[k] = v
	}
	keys := make([]string, 0, len(settings))
	for k, v := range settings {
		merged[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if err := client.UpdateApplicationSettings(ctx, target.SubscriptionID, target.ResourceGroup, name, merged); err != nil {
		return nil, remote("Failed to configure App Service", err)
	}

	p.logger.Info().Ctx(ctx).Str("appservice", name).Int("settings", len(settings)).Msg("app service configured")

	return &ConfigureResult{
		Success:         true,
		Message:         fmt.Sprintf("App Service %s configured successfully", name),
		Name:            name,
		UpdatedSettings: keys,
	}, nil
}

// ScaleAppService validates a plan change request. Changing the plan SKU is
// not supported, so a valid request always yields a NotImplementedError.
func (p *Portal) ScaleAppService(ctx context.Context, name string, target AppServiceTarget, sku *SKU, who Principal) (err error) {
	ctx, done := p.observe(ctx, "ScaleAppService", attribute.String("appservice.name", name))
	defer done(&err)

	if !resource.ValidName(name, resource.KindAppService) {
		return Invalid("Invalid App Service name")
	}
	if target.SubscriptionID == "" || target.ResourceGroup == "" || sku == nil || sku.Name == "" || sku.Tier == "" {
		return Invalid("subscriptionId, resourceGroup, and sku (with name and tier) are required")
	}

	p.audit(ctx, "ScaleAppService", who, map[string]any{
		"appServiceName": name,
		"subscriptionId": target.SubscriptionID,
		"resourceGroup":  target.ResourceGroup,
		"sku":            sku.Name,
		"tier":           sku.Tier,
	})
	p.logger.Warn().Ctx(ctx).Str("appservice", name).Msg("scale requested but plan updates are not supported")

	return &NotImplementedError{
		Msg:  "Scale feature not yet implemented",
		Name: name,
	}
}
