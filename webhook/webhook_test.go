package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micromdm/profilebuilder/deploy"
	"github.com/micromdm/profilebuilder/pubsub"
	"github.com/micromdm/profilebuilder/session"
)

func startWorker(t *testing.T, status int, opts ...Option) (*pubsub.Inmem, <-chan Event) {
	t.Helper()
	received := make(chan Event, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json; charset=utf-8", r.Header.Get("Content-Type"))
		var ev Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("decode webhook body: %s", err)
		}
		received <- ev
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	bus := pubsub.NewInmemPubsub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		bus.Close()
	})

	worker := New(srv.URL, bus, append(opts, WithHTTPClient(srv.Client()))...)
	require.NoError(t, worker.Start(ctx))
	return bus, received
}

func publishDeployed(t *testing.T, bus pubsub.Publisher) deploy.DeployedEvent {
	t.Helper()
	ev := deploy.NewDeployedEvent(deploy.Account{ServerURL: "https://acme.jamfcloud.com", Vendor: "jamf"},
		"com.acme.wifi", "Corp Wi-Fi", 512, time.Now())
	msg, err := deploy.MarshalDeployedEvent(&ev)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), deploy.DeployedTopic, msg))
	return ev
}

func TestWorkerPostsDeployedEvents(t *testing.T) {
	bus, received := startWorker(t, http.StatusOK)
	sent := publishDeployed(t, bus)

	select {
	case ev := <-received:
		assert.Equal(t, deploy.DeployedTopic, ev.Topic)
		assert.Equal(t, sent.ID, ev.EventID)
		require.NotNil(t, ev.DeployedEvent)
		assert.Equal(t, "com.acme.wifi", ev.DeployedEvent.Identifier)
		assert.Equal(t, 512, ev.DeployedEvent.Size)
		assert.Nil(t, ev.DraftEvent)
	case <-time.After(time.Second):
		t.Fatal("webhook not called")
	}
}

func TestWorkerIgnoresDraftEventsByDefault(t *testing.T) {
	bus, received := startWorker(t, http.StatusOK)
	msg, err := json.Marshal(session.ChangeEvent{ID: "1", Action: "metadata"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), session.DraftChangedTopic, msg))

	select {
	case ev := <-received:
		t.Fatalf("unexpected webhook for %s", ev.Topic)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWorkerPostsDraftEvents(t *testing.T) {
	bus, received := startWorker(t, http.StatusOK, WithDraftEvents())
	msg, err := json.Marshal(session.ChangeEvent{
		ID:      "abc",
		Action:  "toggle-payload",
		Step:    "Choose Payloads",
		Defects: []string{"Profile name is required."},
	})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), session.DraftChangedTopic, msg))

	select {
	case ev := <-received:
		assert.Equal(t, "abc", ev.EventID)
		require.NotNil(t, ev.DraftEvent)
		assert.Equal(t, "toggle-payload", ev.DraftEvent.Action)
		assert.Equal(t, []string{"Profile name is required."}, ev.DraftEvent.Defects)
	case <-time.After(time.Second):
		t.Fatal("webhook not called")
	}
}

func TestWorkerSurvivesFailedPost(t *testing.T) {
	bus, received := startWorker(t, http.StatusInternalServerError)
	publishDeployed(t, bus)
	publishDeployed(t, bus)

	for i := 0; i < 2; i++ {
		select {
		case <-received:
		case <-time.After(time.Second):
			t.Fatalf("webhook call %d missing after a failed post", i+1)
		}
	}
}

func TestPostWebhookEventStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("unknown topic\n"))
	}))
	defer srv.Close()

	err := postWebhookEvent(context.Background(), srv.Client(), srv.URL, &Event{Topic: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400 Bad Request: unknown topic")
}

func TestMalformedEvent(t *testing.T) {
	_, err := deployedEvent(deploy.DeployedTopic, []byte("{"))
	assert.Error(t, err)
	_, err = draftEvent(session.DraftChangedTopic, []byte("{"))
	assert.Error(t, err)
}

func TestWorkerAfterPost(t *testing.T) {
	attempts := make(chan error, 1)
	bus, _ := startWorker(t, http.StatusOK, WithAfterPost(func(ev *Event, err error) {
		attempts <- err
	}))
	publishDeployed(t, bus)

	select {
	case err := <-attempts:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("after-post hook not called")
	}
}

func TestRunStopsWithContext(t *testing.T) {
	bus := pubsub.NewInmemPubsub()
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New("http://127.0.0.1:0", bus).Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
