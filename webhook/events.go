package webhook

import (
	"github.com/pkg/errors"

	"github.com/micromdm/profilebuilder/deploy"
	"github.com/micromdm/profilebuilder/session"
)

type DeployedEvent struct {
	Identifier string `json:"identifier,omitempty"`
	Name       string `json:"name"`
	ServerURL  string `json:"server_url"`
	Vendor     string `json:"vendor,omitempty"`
	Size       int    `json:"size"`
}

func deployedEvent(topic string, data []byte) (*Event, error) {
	var ev deploy.DeployedEvent
	if err := deploy.UnmarshalDeployedEvent(data, &ev); err != nil {
		return nil, errors.Wrap(err, "unmarshal deployed event for webhook")
	}

	webhookEvent := Event{
		Topic:     topic,
		EventID:   ev.ID,
		CreatedAt: ev.Time,

		DeployedEvent: &DeployedEvent{
			Identifier: ev.Identifier,
			Name:       ev.Name,
			ServerURL:  ev.ServerURL,
			Vendor:     ev.Vendor,
			Size:       ev.Size,
		},
	}

	return &webhookEvent, nil
}

type DraftEvent struct {
	Action     string   `json:"action"`
	Step       string   `json:"step"`
	Defects    []string `json:"defects"`
	Exportable bool     `json:"exportable"`
}

func draftEvent(topic string, data []byte) (*Event, error) {
	ev, err := session.UnmarshalChangeEvent(data)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal draft event for webhook")
	}

	webhookEvent := Event{
		Topic:     topic,
		EventID:   ev.ID,
		CreatedAt: ev.Time,

		DraftEvent: &DraftEvent{
			Action:     ev.Action,
			Step:       ev.Step,
			Defects:    ev.Defects,
			Exportable: ev.Exportable,
		},
	}

	return &webhookEvent, nil
}
