// Package webhook posts profile builder events to an HTTP endpoint.
package webhook

import (
	"context"
	"net/http"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"

	"github.com/micromdm/profilebuilder/deploy"
	"github.com/micromdm/profilebuilder/pubsub"
	"github.com/micromdm/profilebuilder/session"
)

type Event struct {
	Topic     string    `json:"topic"`
	EventID   string    `json:"event_id"`
	CreatedAt time.Time `json:"created_at"`

	DraftEvent    *DraftEvent    `json:"draft_event,omitempty"`
	DeployedEvent *DeployedEvent `json:"deployed_event,omitempty"`
}

type Worker struct {
	logger log.Logger
	url    string
	client *http.Client
	sub    pubsub.Subscriber
	drafts bool
	after  func(*Event, error)
}

type Option func(*Worker)

func WithLogger(logger log.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(w *Worker) {
		w.client = client
	}
}

// WithDraftEvents also forwards every draft change, not only deploys.
func WithDraftEvents() Option {
	return func(w *Worker) {
		w.drafts = true
	}
}

// WithAfterPost calls f after every delivery attempt.
func WithAfterPost(f func(*Event, error)) Option {
	return func(w *Worker) {
		w.after = f
	}
}

func New(url string, sub pubsub.Subscriber, opts ...Option) *Worker {
	worker := &Worker{
		url:    url,
		sub:    sub,
		logger: log.NewNopLogger(),
		client: http.DefaultClient,
	}

	for _, optFn := range opts {
		optFn(worker)
	}

	return worker
}

// Run forwards events until ctx is done. Failed posts are logged and
// dropped.
func (w *Worker) Run(ctx context.Context) error {
	streams, err := w.subscribe(ctx)
	if err != nil {
		return err
	}
	return w.loop(ctx, streams)
}

// Start subscribes before returning and forwards events in the background
// until ctx is done.
func (w *Worker) Start(ctx context.Context) error {
	streams, err := w.subscribe(ctx)
	if err != nil {
		return err
	}
	go w.loop(ctx, streams)
	return nil
}

type streams struct {
	deployed <-chan pubsub.Event
	drafts   <-chan pubsub.Event
}

func (w *Worker) subscribe(ctx context.Context) (streams, error) {
	const subscription = "webhook_worker"
	var (
		s   streams
		err error
	)
	s.deployed, err = w.sub.Subscribe(ctx, subscription, deploy.DeployedTopic)
	if err != nil {
		return s, errors.Wrapf(err, "subscribe %s to %s", subscription, deploy.DeployedTopic)
	}
	if w.drafts {
		s.drafts, err = w.sub.Subscribe(ctx, subscription, session.DraftChangedTopic)
		if err != nil {
			return s, errors.Wrapf(err, "subscribe %s to %s", subscription, session.DraftChangedTopic)
		}
	}
	return s, nil
}

func (w *Worker) loop(ctx context.Context, s streams) error {
	for {
		var (
			event *Event
			err   error
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.deployed:
			event, err = deployedEvent(ev.Topic, ev.Message)
		case ev := <-s.drafts:
			event, err = draftEvent(ev.Topic, ev.Message)
		}

		if err != nil {
			level.Info(w.logger).Log(
				"msg", "create webhook event",
				"err", err,
			)
			continue
		}

		err = postWebhookEvent(ctx, w.client, w.url, event)
		if w.after != nil {
			w.after(event, err)
		}
		if err != nil {
			level.Info(w.logger).Log(
				"msg", "post webhook event",
				"topic", event.Topic,
				"err", err,
			)
			continue
		}
		level.Debug(w.logger).Log("msg", "posted webhook event", "topic", event.Topic, "event_id", event.EventID)
	}
}
