// Package webhook forwards event bus events to an n8n workflow over HTTP.
package webhook

import (
	"context"
	"sync"
	"time"

	"resty.dev/v3"

	"github.com/safeboy/safeboy/internal/infra/eventbus"
	"github.com/safeboy/safeboy/internal/infra/httpclient"
	"github.com/safeboy/safeboy/internal/infra/logger"
	"github.com/safeboy/safeboy/internal/infra/metrics"
)

const defaultTimeout = 10 * time.Second

// Notifier posts every event of the subscribed topics as JSON to url.
// Delivery is best effort: failures are logged and the event is dropped.
type Notifier struct {
	client *resty.Client
	url    string
	wg     sync.WaitGroup
}

// New returns a Notifier for url.
func New(url string) *Notifier {
	return &Notifier{client: httpclient.NewClient("n8n", defaultTimeout), url: url}
}

// Start subscribes to topics and forwards events until ctx is cancelled or the bus closes.
func (n *Notifier) Start(ctx context.Context, bus eventbus.EventBus, topics ...string) {
	for _, topic := range topics {
		ch := bus.Subscribe(topic)
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case evt, ok := <-ch:
					if !ok {
						return
					}
					n.deliver(ctx, evt)
				}
			}
		}()
	}
}

// Wait blocks until every forwarding goroutine has exited.
func (n *Notifier) Wait() { n.wg.Wait() }

func (n *Notifier) deliver(ctx context.Context, evt eventbus.Event) {
	log := logger.Get()
	resp, err := n.client.R().SetContext(ctx).SetBody(evt).Post(n.url)
	switch {
	case err != nil:
		metrics.WebhookDeliveriesTotal.WithLabelValues(evt.Topic, "error").Inc()
		log.Warn().Err(err).Str("topic", evt.Topic).Msg("webhook delivery failed")
	case resp.IsError():
		metrics.WebhookDeliveriesTotal.WithLabelValues(evt.Topic, "rejected").Inc()
		log.Warn().Int("status", resp.StatusCode()).Str("topic", evt.Topic).Msg("webhook rejected event")
	default:
		metrics.WebhookDeliveriesTotal.WithLabelValues(evt.Topic, "delivered").Inc()
	}
}
