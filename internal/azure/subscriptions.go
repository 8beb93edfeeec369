package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"

	"github.com/yairfalse/vmportal/pkg/resource"
)

// Subscriptions implements portal.SubscriptionLister.
type Subscriptions struct {
	client *armsubscriptions.Client
}

func newSubscriptions(cred azcore.TokenCredential, opts *arm.ClientOptions) (*Subscriptions, error) {
	client, err := armsubscriptions.NewClient(cred, opts)
	if err != nil {
		return nil, fmt.Errorf("create subscriptions client: %w", err)
	}
	return &Subscriptions{client: client}, nil
}

// List returns every subscription visible to the credential, in the order
// the service returns them.
func (s *Subscriptions) List(ctx context.Context) ([]resource.Subscription, error) {
	var subs []resource.Subscription
	pager := s.client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, wrap("list subscriptions", err)
		}
		for _, sub := range page.Value {
			if sub == nil {
				continue
			}
			subs = append(subs, resource.Subscription{
				ID:          deref(sub.SubscriptionID),
				DisplayName: deref(sub.DisplayName),
			})
		}
	}
	return subs, nil
}
