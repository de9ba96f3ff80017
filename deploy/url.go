package deploy

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// ValidateServerURL normalizes a server URL, defaulting the scheme to
// https when none is given.
func ValidateServerURL(serverURL string) (string, error) {
	serverURL = strings.TrimSpace(serverURL)
	if serverURL == "" {
		return "", ErrInvalidServerURL
	}
	if !strings.HasPrefix(serverURL, "http://") && !strings.HasPrefix(serverURL, "https://") {
		serverURL = "https://" + serverURL
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", errors.Wrap(ErrInvalidServerURL, err.Error())
	}
	if u.Host == "" {
		return "", ErrInvalidServerURL
	}
	return u.String(), nil
}
