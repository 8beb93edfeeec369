package azure

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v4"

	"github.com/yairfalse/vmportal/pkg/resource"
)

// AppServices implements portal.AppServiceClient on armappservice.
type AppServices struct {
	clients *clientCache[*armappservice.WebAppsClient]
}

func newAppServices(cred azcore.TokenCredential, opts *arm.ClientOptions) *AppServices {
	return &AppServices{clients: newClientCache("appservice", cred, opts, armappservice.NewWebAppsClient)}
}

// List returns every web app in a subscription.
func (a *AppServices) List(ctx context.Context, subscriptionID string) ([]resource.AppService, error) {
	client, err := a.clients.get(subscriptionID)
	if err != nil {
		return nil, err
	}

	var apps []resource.AppService
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, wrap("list web apps", err)
		}
		for _, site := range page.Value {
			if site == nil {
				continue
			}
			apps = append(apps, siteFromSDK(site, subscriptionID))
		}
	}
	return apps, nil
}

// Start starts a web app.
func (a *AppServices) Start(ctx context.Context, subscriptionID, resourceGroup, name string) error {
	client, err := a.clients.get(subscriptionID)
	if err != nil {
		return err
	}
	_, err = client.Start(ctx, resourceGroup, name, nil)
	return wrap("start web app", err)
}

// Stop stops a web app.
func (a *AppServices) Stop(ctx context.Context, subscriptionID, resourceGroup, name string) error {
	client, err := a.clients.get(subscriptionID)
	if err != nil {
		return err
	}
	_, err = client.Stop(ctx, resourceGroup, name, nil)
	return wrap("stop web app", err)
}

// Restart restarts a web app.
func (a *AppServices) Restart(ctx context.Context, subscriptionID, resourceGroup, name string) error {
	client, err := a.clients.get(subscriptionID)
	if err != nil {
		return err
	}
	_, err = client.Restart(ctx, resourceGroup, name, nil)
	return wrap("restart web app", err)
}

// ApplicationSettings returns the current app settings.
func (a *AppServices) ApplicationSettings(ctx context.Context, subscriptionID, resourceGroup, name string) (map[string]string, error) {
	client, err := a.clients.get(subscriptionID)
	if err != nil {
		return nil, err
	}
	resp, err := client.ListApplicationSettings(ctx, resourceGroup, name, nil)
	if err != nil {
		return nil, wrap("list application settings", err)
	}

	settings := make(map[string]string, len(resp.Properties))
	for k, v := range resp.Properties {
		settings[k] = deref(v)
	}
	return settings, nil
}

// UpdateApplicationSettings replaces the app settings with settings.
func (a *AppServices) UpdateApplicationSettings(ctx context.Context, subscriptionID, resourceGroup, name string, settings map[string]string) error {
	client, err := a.clients.get(subscriptionID)
	if err != nil {
		return err
	}

	props := make(map[string]*string, len(settings))
	for k, v := range settings {
		props[k] = to.Ptr(v)
	}
	_, err = client.UpdateApplicationSettings(ctx, resourceGroup, name, armappservice.StringDictionary{
		Properties: props,
	}, nil)
	return wrap("update application settings", err)
}

// siteFromSDK maps a web app. SKU is left nil: it belongs to the plan.
func siteFromSDK(site *armappservice.Site, subscriptionID string) resource.AppService {
	app := resource.AppService{
		Name:           deref(site.Name),
		ID:             deref(site.ID),
		SubscriptionID: subscriptionID,
		Location:       "unknown",
		State:          "Unknown",
		Kind:           site.Kind,
	}
	app.ResourceGroup = resource.GroupKey(app.ID)
	if site.Location != nil && *site.Location != "" {
		app.Location = *site.Location
	}
	if site.Properties != nil && site.Properties.State != nil && *site.Properties.State != "" {
		app.State = *site.Properties.State
	}
	return app
}
