package deploy

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micromdm/profilebuilder/payload"
	"github.com/micromdm/profilebuilder/profile"
	"github.com/micromdm/profilebuilder/pubsub"
)

type fakeGateway struct {
	calls int
	dest  Destination
	name  string
	body  []byte
	err   error
}

func (g *fakeGateway) Upload(ctx context.Context, dest Destination, name string, xml []byte) error {
	g.calls++
	g.dest, g.name, g.body = dest, name, xml
	return g.err
}

type memStore struct{ saved []profile.Profile }

func (m *memStore) List() ([]profile.Profile, error) { return m.saved, nil }

func (m *memStore) ProfileById(id string) (*profile.Profile, error) { return nil, nil }

func (m *memStore) Delete(id string) error { return nil }

func (m *memStore) Save(p *profile.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.saved = append(m.saved, *p)
	return nil
}

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func validDraft() *profile.Draft {
	d := profile.NewDraft()
	d.Name, d.Identifier, d.Organization = "Test", "com.test.profile", "Acme"
	d.AddPayload(payload.TypeGatekeeper).Set("EnableAssessment", payload.Bool(true))
	return d
}

func validAccount() Account {
	return Account{
		DisplayName: "Jamf",
		ServerURL:   "acme.jamfcloud.com",
		Vendor:      "jamf",
		AuthToken:   "token",
		TokenExpiry: now.Add(time.Hour),
	}
}

func TestDeploy(t *testing.T) {
	gw := &fakeGateway{}
	store := &memStore{}
	svc := NewService(gw, payload.DefaultCatalog(), WithClock(func() time.Time { return now }), WithStore(store))

	require.NoError(t, svc.Deploy(context.Background(), validAccount(), validDraft()))
	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, "https://acme.jamfcloud.com", gw.dest.BaseURL)
	assert.Equal(t, "token", gw.dest.AuthToken)
	assert.Equal(t, "Test", gw.name)
	assert.True(t, bytes.Contains(gw.body, []byte("com.test.profile")))
	require.Len(t, store.saved, 1)
	assert.Equal(t, "com.test.profile", store.saved[0].Identifier)
}

func TestDeployFailsFastLocally(t *testing.T) {
	tests := []struct {
		name    string
		account func(a *Account)
		draft   func(d *profile.Draft)
		want    error
	}{
		{name: "missing token", account: func(a *Account) { a.AuthToken = "" }, want: ErrMissingToken},
		{name: "expired token", account: func(a *Account) { a.TokenExpiry = now }, want: ErrExpiredToken},
		{name: "invalid url", account: func(a *Account) { a.ServerURL = " " }, want: ErrInvalidServerURL},
		{name: "defects", draft: func(d *profile.Draft) { d.Name = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{}
			svc := NewService(gw, payload.DefaultCatalog(), WithClock(func() time.Time { return now }))
			acct, d := validAccount(), validDraft()
			if tt.account != nil {
				tt.account(&acct)
			}
			if tt.draft != nil {
				tt.draft(d)
			}
			err := svc.Deploy(context.Background(), acct, d)
			require.Error(t, err)
			if tt.want != nil {
				assert.Equal(t, tt.want, errors.Cause(err))
			} else {
				_, ok := err.(*NotExportableError)
				assert.True(t, ok, "have %T", err)
			}
			assert.Equal(t, 0, gw.calls, "gateway must not be called")
		})
	}
}

func TestTokenWithoutExpiry(t *testing.T) {
	gw := &fakeGateway{}
	acct := validAccount()
	acct.TokenExpiry = time.Time{}
	svc := NewService(gw, payload.DefaultCatalog())
	require.NoError(t, svc.Deploy(context.Background(), acct, validDraft()))
}

func TestTransportErrorLeavesDraft(t *testing.T) {
	gw := &fakeGateway{err: &TransportError{StatusCode: 500, Message: "boom"}}
	store := &memStore{}
	svc := NewService(gw, payload.DefaultCatalog(), WithClock(func() time.Time { return now }), WithStore(store))
	d := validDraft()

	err := svc.Deploy(context.Background(), validAccount(), d)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Empty(t, store.saved)
	assert.Len(t, d.Payloads, 1)
	assert.Equal(t, "Test", d.Name)
}

func TestPush(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, payload.DefaultCatalog(), WithClock(func() time.Time { return now }))
	require.NoError(t, svc.Push(context.Background(), validAccount(), "Stored", profile.Mobileconfig("<plist/>")))
	assert.Equal(t, "Stored", gw.name)

	acct := validAccount()
	acct.AuthToken = ""
	assert.Equal(t, ErrMissingToken, svc.Push(context.Background(), acct, "Stored", nil))
}

func TestLoggingService(t *testing.T) {
	buf := new(bytes.Buffer)
	svc := NewLoggingService(NewService(&fakeGateway{}, payload.DefaultCatalog()), log.NewLogfmtLogger(buf))
	acct := validAccount()
	acct.TokenExpiry = time.Time{}
	require.NoError(t, svc.Deploy(context.Background(), acct, validDraft()))
	line := buf.String()
	assert.True(t, strings.Contains(line, "method=Deploy"), line)
	assert.True(t, strings.Contains(line, "profile=com.test.profile"), line)
}

func TestDeployPublishesEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := pubsub.NewInmemPubsub()
	defer bus.Close()
	events, err := bus.Subscribe(ctx, "test", DeployedTopic)
	require.NoError(t, err)

	gw := &fakeGateway{}
	svc := NewService(gw, payload.DefaultCatalog(), WithClock(func() time.Time { return now }), WithPublisher(bus))
	require.NoError(t, svc.Deploy(ctx, validAccount(), validDraft()))

	select {
	case msg := <-events:
		var ev DeployedEvent
		require.NoError(t, UnmarshalDeployedEvent(msg.Message, &ev))
		assert.Equal(t, "com.test.profile", ev.Identifier)
		assert.Equal(t, "Test", ev.Name)
		assert.Equal(t, "acme.jamfcloud.com", ev.ServerURL)
		assert.Equal(t, len(gw.body), ev.Size)
		assert.True(t, ev.Time.Equal(now))
		assert.NotEmpty(t, ev.ID)
	case <-time.After(time.Second):
		t.Fatal("no deployed event published")
	}
}

func TestFailedDeployPublishesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := pubsub.NewInmemPubsub()
	defer bus.Close()
	events, err := bus.Subscribe(ctx, "test", DeployedTopic)
	require.NoError(t, err)

	gw := &fakeGateway{err: &TransportError{StatusCode: 401, Message: "unauthorized"}}
	svc := NewService(gw, payload.DefaultCatalog(), WithClock(func() time.Time { return now }), WithPublisher(bus))
	require.Error(t, svc.Deploy(ctx, validAccount(), validDraft()))

	select {
	case <-events:
		t.Fatal("failed deploy must not be announced")
	case <-time.After(50 * time.Millisecond):
	}
}
