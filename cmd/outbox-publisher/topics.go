package main

import (
	"context"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

// gcpTopics keeps one publisher per topic for the life of the process.
// Only the relay goroutine touches it.
type gcpTopics struct {
	client pubSubClient
	open   map[string]*gcppubsub.Publisher
}

func newGCPTopics(client pubSubClient) *gcpTopics {
	return &gcpTopics{client: client, open: map[string]*gcppubsub.Publisher{}}
}

func (g *gcpTopics) Ping(ctx context.Context) error {
	return g.client.Ping(ctx)
}

func (g *gcpTopics) Sender(topic string) sendFunc {
	pub, ok := g.open[topic]
	if !ok {
		pub = g.client.Publisher(topic)
		if pub == nil {
			return nil
		}
		g.open[topic] = pub
	}
	return func(ctx context.Context, msg *gcppubsub.Message) (string, error) {
		return pub.Publish(ctx, msg).Get(ctx)
	}
}

// Stop flushes and stops every publisher opened so far.
func (g *gcpTopics) Stop() {
	for topic, pub := range g.open {
		pub.Stop()
		delete(g.open, topic)
	}
}
