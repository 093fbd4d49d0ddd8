// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package pubsub

import "github.com/wivrn-project/wivrnd/internal/config"

// makeInMemoryPubSub backs a single wivrnd instance with no external
// event bus; topics are process-local and lost on restart.
func makeInMemoryPubSub(_ *config.Config) (PubSub, error) {
	return inMemoryPubSub{}, nil
}

type inMemoryPubSub struct {
}

func (ps inMemoryPubSub) Publish(topic string, message []byte) error {
	return nil
}

func (ps inMemoryPubSub) Subscribe(topic string) Subscription {
	return inMemorySubscription{
		ch: make(chan []byte),
	}
}

func (ps inMemoryPubSub) Close() error {
	return nil
}

type inMemorySubscription struct {
	ch chan []byte
}

func (s inMemorySubscription) Unsubscribe() error {
	return nil
}

func (s inMemorySubscription) Close() error {
	close(s.ch)
	return nil
}

func (s inMemorySubscription) Channel() <-chan []byte {
	return s.ch
}
