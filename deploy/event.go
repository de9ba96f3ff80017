package deploy

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/micromdm/profilebuilder/pubsub"
)

const DeployedTopic = "profilebuilder.ProfileDeployed"

// DeployedEvent is published after a successful upload.
type DeployedEvent struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"time"`
	Identifier string    `json:"identifier,omitempty"`
	Name       string    `json:"name"`
	ServerURL  string    `json:"server_url"`
	Vendor     string    `json:"vendor,omitempty"`
	Size       int       `json:"size"`
}

func NewDeployedEvent(acct Account, identifier, name string, size int, now time.Time) DeployedEvent {
	return DeployedEvent{
		ID:         uuid.NewString(),
		Time:       now.UTC(),
		Identifier: identifier,
		Name:       name,
		ServerURL:  acct.ServerURL,
		Vendor:     acct.Vendor,
		Size:       size,
	}
}

func MarshalDeployedEvent(ev *DeployedEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	return data, errors.Wrap(err, "marshal deployed event")
}

func UnmarshalDeployedEvent(data []byte, ev *DeployedEvent) error {
	return errors.Wrap(json.Unmarshal(data, ev), "unmarshal deployed event")
}

// WithPublisher announces each successful upload on DeployedTopic.
func WithPublisher(pub pubsub.Publisher) Option {
	return func(s *service) { s.publisher = pub }
}

func (s *service) announce(ctx context.Context, ev DeployedEvent) error {
	if s.publisher == nil {
		return nil
	}
	msg, err := MarshalDeployedEvent(&ev)
	if err != nil {
		return err
	}
	return errors.Wrapf(s.publisher.Publish(ctx, DeployedTopic, msg), "publish %s", DeployedTopic)
}
