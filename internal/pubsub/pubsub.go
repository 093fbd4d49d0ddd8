// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

// Package pubsub fans control-plane events (pairing, session lifecycle)
// across wivrnd instances, backed by Redis when configured or an
// in-memory bus for single-instance deployments.
package pubsub

import (
	"context"

	"github.com/wivrn-project/wivrnd/internal/config"
)

// PubSub publishes and subscribes to byte-slice messages on named topics.
type PubSub interface {
	Publish(topic string, message []byte) error
	Subscribe(topic string) Subscription
	Close() error
}

// Subscription is a live topic subscription.
type Subscription interface {
	Close() error
	Channel() <-chan []byte
}

// MakePubSub selects the Redis or in-memory backend per configuration.
func MakePubSub(ctx context.Context, config *config.Config) (PubSub, error) {
	if config.Redis.Enabled {
		return makePubSubFromRedis(ctx, config)
	}
	return makeInMemoryPubSub(config)
}
