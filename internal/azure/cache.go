package azure

import (
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
)

// clientFactory matches the constructors of subscription-scoped SDK clients.
type clientFactory[T any] func(subscriptionID string, cred azcore.TokenCredential, opts *arm.ClientOptions) (T, error)

// clientCache builds one SDK client per subscription and reuses it.
type clientCache[T any] struct {
	mu      sync.Mutex
	clients map[string]T
	cred    azcore.TokenCredential
	opts    *arm.ClientOptions
	build   clientFactory[T]
	kind    string
}

func newClientCache[T any](kind string, cred azcore.TokenCredential, opts *arm.ClientOptions, build clientFactory[T]) *clientCache[T] {
	return &clientCache[T]{
		clients: make(map[string]T),
		cred:    cred,
		opts:    opts,
		build:   build,
		kind:    kind,
	}
}

func (c *clientCache[T]) get(subscriptionID string) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[subscriptionID]; ok {
		return client, nil
	}

	client, err := c.build(subscriptionID, c.cred, c.opts)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("create %s client for subscription %s: %w", c.kind, subscriptionID, err)
	}
	c.clients[subscriptionID] = client
	return client, nil
}
