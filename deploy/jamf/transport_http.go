package jamf

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/pkg/errors"

	"github.com/micromdm/profilebuilder/deploy"
)

type uploadRequest struct {
	Name    string
	Payload []byte
}

type uploadResponse struct {
	ID int
}

// Classic API envelope. The mobileconfig travels as escaped text in payloads.
type osxConfigurationProfile struct {
	XMLName xml.Name `xml:"os_x_configuration_profile"`
	ID      int      `xml:"id,omitempty"`
	General general  `xml:"general"`
}

type general struct {
	Name     string `xml:"name,omitempty"`
	Payloads string `xml:"payloads,omitempty"`
}

func encodeRequestWithBearer(token string, next httptransport.EncodeRequestFunc) httptransport.EncodeRequestFunc {
	return func(ctx context.Context, r *http.Request, request interface{}) error {
		r.Header.Set("Authorization", "Bearer "+token)
		return next(ctx, r, request)
	}
}

func encodeUploadRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(uploadRequest)
	body, err := xml.Marshal(osxConfigurationProfile{
		General: general{Name: req.Name, Payloads: string(req.Payload)},
	})
	if err != nil {
		return errors.Wrap(err, "encode jamf profile")
	}
	setBody(r, "application/xml", body)
	r.Header.Set("Accept", "application/xml")
	return nil
}

func decodeUploadResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusCreated && r.StatusCode != http.StatusOK {
		return nil, statusError(r)
	}
	var resp osxConfigurationProfile
	if err := xml.NewDecoder(r.Body).Decode(&resp); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decode jamf upload response")
	}
	return uploadResponse{ID: resp.ID}, nil
}

func encodeBasicAuthRequest(username, password string) httptransport.EncodeRequestFunc {
	return func(_ context.Context, r *http.Request, _ interface{}) error {
		r.SetBasicAuth(username, password)
		r.Header.Set("Accept", "application/json")
		return nil
	}
}

type tokenResponse struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

func decodeTokenResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		return nil, statusError(r)
	}
	var resp tokenResponse
	if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
		return nil, errors.Wrap(err, "decode jamf token response")
	}
	if resp.Token == "" {
		return nil, deploy.ErrMissingToken
	}
	return &Token{Value: resp.Token, Expires: resp.Expires}, nil
}

type clientCredentials struct {
	ID     string
	Secret string
}

func encodeClientCredentialsRequest(_ context.Context, r *http.Request, request interface{}) error {
	creds := request.(clientCredentials)
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", creds.ID)
	form.Set("client_secret", creds.Secret)
	setBody(r, "application/x-www-form-urlencoded", []byte(form.Encode()))
	r.Header.Set("Accept", "application/json")
	return nil
}

type oauthTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func decodeOAuthTokenResponse(now func() time.Time) httptransport.DecodeResponseFunc {
	return func(_ context.Context, r *http.Response) (interface{}, error) {
		if r.StatusCode != http.StatusOK {
			return nil, statusError(r)
		}
		var resp oauthTokenResponse
		if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
			return nil, errors.Wrap(err, "decode jamf oauth response")
		}
		if resp.AccessToken == "" {
			return nil, deploy.ErrMissingToken
		}
		return &Token{
			Value:   resp.AccessToken,
			Expires: now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		}, nil
	}
}

func setBody(r *http.Request, contentType string, body []byte) {
	r.Header.Set("Content-Type", contentType)
	r.ContentLength = int64(len(body))
	r.Body = ioutil.NopCloser(bytes.NewReader(body))
}

func statusError(r *http.Response) error {
	body, _ := ioutil.ReadAll(io.LimitReader(r.Body, 4096))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(r.StatusCode)
	}
	return &deploy.TransportError{StatusCode: r.StatusCode, Message: msg}
}
