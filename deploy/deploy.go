// Package deploy hands serialized profiles to an MDM server. Credential
// and draft checks happen locally before any network call; the Gateway is
// responsible only for the upload itself.
package deploy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/micromdm/profilebuilder/payload"
	"github.com/micromdm/profilebuilder/profile"
	"github.com/micromdm/profilebuilder/pubsub"
)

var (
	ErrMissingToken     = errors.New("deploy: missing auth token")
	ErrExpiredToken     = errors.New("deploy: auth token expired")
	ErrInvalidServerURL = errors.New("deploy: invalid server URL")
)

// TransportError is a failed upload reported by a Gateway.
type TransportError struct {
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("deploy: upload failed (%d): %s", e.StatusCode, e.Message)
	}
	return "deploy: upload failed: " + e.Message
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	_, ok := errors.Cause(err).(*TransportError)
	return ok
}

// NotExportableError is returned when the draft still has defects.
type NotExportableError struct {
	Defects []profile.Defect
}

func (e *NotExportableError) Error() string {
	msgs := make([]string, len(e.Defects))
	for i, d := range e.Defects {
		msgs[i] = d.Message
	}
	return "deploy: profile is not exportable: " + strings.Join(msgs, " ")
}

// Destination is where a Gateway uploads to.
type Destination struct {
	BaseURL   string
	AuthToken string
}

// Account describes an MDM server and the credentials held for it.
type Account struct {
	DisplayName string    `json:"display_name"`
	ServerURL   string    `json:"server_url"`
	Vendor      string    `json:"vendor"`
	AuthToken   string    `json:"api_token,omitempty"`
	TokenExpiry time.Time `json:"token_expiry,omitempty"`
}

// Gateway uploads profile bytes to an MDM server.
type Gateway interface {
	Upload(ctx context.Context, dest Destination, profileName string, xml []byte) error
}

type Service interface {
	// Deploy validates and serializes the draft and uploads it.
	Deploy(ctx context.Context, acct Account, d *profile.Draft) error
	// Push uploads an already serialized profile.
	Push(ctx context.Context, acct Account, name string, mc profile.Mobileconfig) error
}

type Option func(*service)

// WithClock overrides time.Now for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithStore records each successful deploy.
func WithStore(store profile.Store) Option {
	return func(s *service) { s.store = store }
}

func NewService(gw Gateway, cat *payload.Catalog, opts ...Option) Service {
	s := &service{
		gateway: gw,
		catalog: cat,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type service struct {
	gateway   Gateway
	catalog   *payload.Catalog
	store     profile.Store
	publisher pubsub.Publisher
	now       func() time.Time
}

func (s *service) Deploy(ctx context.Context, acct Account, d *profile.Draft) error {
	dest, err := s.destination(acct)
	if err != nil {
		return err
	}
	if defects := profile.Validate(d, s.catalog); len(defects) > 0 {
		return &NotExportableError{Defects: defects}
	}
	mc, err := profile.Serialize(d, s.catalog)
	if err != nil {
		return errors.Wrap(err, "serialize profile")
	}
	if err := s.gateway.Upload(ctx, dest, d.Name, mc); err != nil {
		return err
	}
	if err := s.record(d.Identifier, mc); err != nil {
		return err
	}
	return s.announce(ctx, NewDeployedEvent(acct, d.Identifier, d.Name, len(mc), s.now()))
}

func (s *service) Push(ctx context.Context, acct Account, name string, mc profile.Mobileconfig) error {
	dest, err := s.destination(acct)
	if err != nil {
		return err
	}
	if err := s.gateway.Upload(ctx, dest, name, mc); err != nil {
		return err
	}
	// pushed bytes may come from anywhere; the identifier is informational
	identifier, _ := mc.GetPayloadIdentifier()
	return s.announce(ctx, NewDeployedEvent(acct, identifier, name, len(mc), s.now()))
}

func (s *service) destination(acct Account) (Destination, error) {
	if acct.AuthToken == "" {
		return Destination{}, ErrMissingToken
	}
	if !acct.TokenExpiry.IsZero() && !s.now().Before(acct.TokenExpiry) {
		return Destination{}, ErrExpiredToken
	}
	serverURL, err := ValidateServerURL(acct.ServerURL)
	if err != nil {
		return Destination{}, err
	}
	return Destination{BaseURL: serverURL, AuthToken: acct.AuthToken}, nil
}

func (s *service) record(identifier string, mc profile.Mobileconfig) error {
	if s.store == nil {
		return nil
	}
	err := s.store.Save(&profile.Profile{Identifier: identifier, Mobileconfig: mc})
	return errors.Wrap(err, "record deployed profile")
}
