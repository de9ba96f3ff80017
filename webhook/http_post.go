package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

const userAgent = "profilebuilder-webhook"

type httpClient interface {
	Do(*http.Request) (*http.Response, error)
}

// postWebhookEvent delivers a single event. Any status of 400 or above is an
// error carrying the start of the response body.
func postWebhookEvent(ctx context.Context, client httpClient, url string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrapf(err, "encode %s webhook", event.Topic)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build webhook request")
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "deliver %s webhook", event.Topic)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 400 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	if msg := strings.TrimSpace(string(snippet)); msg != "" {
		return errors.Errorf("webhook endpoint returned %s: %s", resp.Status, msg)
	}
	return errors.Errorf("webhook endpoint returned %s", resp.Status)
}
