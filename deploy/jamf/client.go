// Package jamf uploads configuration profiles to Jamf Pro.
package jamf

import (
	"context"
	"net/url"
	"time"

	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"github.com/micromdm/profilebuilder/deploy"
)

const (
	uploadPath     = "/JSSResource/osxconfigurationprofiles/id/0"
	tokenPath      = "/api/v1/auth/token"
	oauthTokenPath = "/api/oauth/token"

	Vendor = "jamf"

	// consecutive server failures before uploads fail fast
	breakerThreshold = 3
	breakerTimeout   = 30 * time.Second
)

// Token is a bearer token issued by Jamf Pro.
type Token struct {
	Value   string
	Expires time.Time
}

// Client implements deploy.Gateway against the Jamf Pro Classic API.
// Uploads share a circuit breaker, so a Client should be reused across
// uploads to the same server.
type Client struct {
	logger  log.Logger
	opts    []httptransport.ClientOption
	breaker *gobreaker.CircuitBreaker
}

func NewClient(logger log.Logger, opts ...httptransport.ClientOption) *Client {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	c := &Client{logger: logger, opts: opts}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "jamf-upload",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerThreshold
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			level.Info(c.logger).Log("msg", "circuit breaker state change", "breaker", name, "from", from, "to", to)
		},
	})
	return c
}

// countsAsSuccess keeps client errors such as a rejected token from
// tripping the breaker. Only server errors and connection failures count.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	if te, ok := errors.Cause(err).(*deploy.TransportError); ok {
		return te.StatusCode > 0 && te.StatusCode < 500
	}
	return false
}

var _ deploy.Gateway = (*Client)(nil)

// Upload creates a new macOS configuration profile named profileName.
func (c *Client) Upload(ctx context.Context, dest deploy.Destination, profileName string, xml []byte) error {
	u, err := url.Parse(dest.BaseURL)
	if err != nil || u.Host == "" {
		return deploy.ErrInvalidServerURL
	}
	var uploadEndpoint endpoint.Endpoint
	{
		uploadEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, uploadPath),
			encodeRequestWithBearer(dest.AuthToken, encodeUploadRequest),
			decodeUploadResponse,
			c.opts...,
		).Endpoint()
		uploadEndpoint = circuitbreaker.Gobreaker(c.breaker)(uploadEndpoint)
	}
	resp, err := uploadEndpoint(ctx, uploadRequest{Name: profileName, Payload: xml})
	if err != nil {
		return transportError(err)
	}
	level.Debug(c.logger).Log("msg", "uploaded profile", "name", profileName, "id", resp.(uploadResponse).ID)
	return nil
}

// RequestToken exchanges a username and password for a bearer token.
func (c *Client) RequestToken(ctx context.Context, serverURL, username, password string) (*Token, error) {
	u, err := parseServerURL(serverURL)
	if err != nil {
		return nil, err
	}
	tokenEndpoint := httptransport.NewClient(
		"POST",
		copyURL(u, tokenPath),
		encodeBasicAuthRequest(username, password),
		decodeTokenResponse,
		c.opts...,
	).Endpoint()
	resp, err := tokenEndpoint(ctx, nil)
	if err != nil {
		return nil, transportError(err)
	}
	return resp.(*Token), nil
}

// RequestOAuthToken obtains a token for an API client using the client
// credentials grant.
func (c *Client) RequestOAuthToken(ctx context.Context, serverURL, clientID, clientSecret string) (*Token, error) {
	u, err := parseServerURL(serverURL)
	if err != nil {
		return nil, err
	}
	tokenEndpoint := httptransport.NewClient(
		"POST",
		copyURL(u, oauthTokenPath),
		encodeClientCredentialsRequest,
		decodeOAuthTokenResponse(time.Now),
		c.opts...,
	).Endpoint()
	resp, err := tokenEndpoint(ctx, clientCredentials{ID: clientID, Secret: clientSecret})
	if err != nil {
		return nil, transportError(err)
	}
	return resp.(*Token), nil
}

func parseServerURL(serverURL string) (*url.URL, error) {
	normalized, err := deploy.ValidateServerURL(serverURL)
	if err != nil {
		return nil, err
	}
	return url.Parse(normalized)
}

func transportError(err error) error {
	cause := errors.Cause(err)
	if _, ok := cause.(*deploy.TransportError); ok || cause == deploy.ErrMissingToken {
		return err
	}
	if cause == gobreaker.ErrOpenState || cause == gobreaker.ErrTooManyRequests {
		return &deploy.TransportError{Message: "too many failed uploads, try again later"}
	}
	return &deploy.TransportError{Message: err.Error()}
}

func copyURL(base *url.URL, path string) *url.URL {
	next := *base
	next.Path = path
	return &next
}
