// Package session owns one profile draft for the duration of an editing
// session. Every mutation recomputes the draft's defects and announces the
// change on the event bus, so listeners only ever query current state.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/micromdm/profilebuilder/payload"
	"github.com/micromdm/profilebuilder/pppc"
	"github.com/micromdm/profilebuilder/profile"
	"github.com/micromdm/profilebuilder/pubsub"
	"github.com/micromdm/profilebuilder/workflow"
)

const DraftChangedTopic = "profilebuilder.DraftChanged"

// ChangeEvent is the JSON message published on DraftChangedTopic.
type ChangeEvent struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"time"`
	Action     string    `json:"action"`
	Step       string    `json:"step"`
	Defects    []string  `json:"defects"`
	Exportable bool      `json:"exportable"`
}

type Session struct {
	catalog   *payload.Catalog
	publisher pubsub.Publisher
	logger    log.Logger

	mu      sync.Mutex
	draft   *profile.Draft
	gate    *workflow.Gate
	defects []profile.Defect
}

type Option func(*Session)

func WithPublisher(p pubsub.Publisher) Option {
	return func(s *Session) { s.publisher = p }
}

func WithLogger(logger log.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// New starts a session with an empty draft at the first step of flow.
func New(cat *payload.Catalog, flow workflow.Flow, opts ...Option) *Session {
	s := &Session{
		catalog: cat,
		logger:  log.NewNopLogger(),
		draft:   profile.NewDraft(),
		gate:    workflow.NewGate(flow),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.defects = profile.Validate(s.draft, s.catalog)
	return s
}

func (s *Session) Catalog() *payload.Catalog { return s.catalog }

// Draft returns the session's draft. Callers must not mutate it directly.
func (s *Session) Draft() *profile.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Defects returns the defects computed after the latest mutation.
func (s *Session) Defects() []profile.Defect {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]profile.Defect, len(s.defects))
	copy(out, s.defects)
	return out
}

func (s *Session) Exportable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.defects) == 0
}

// Step returns the current workflow step.
func (s *Session) Step() workflow.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.Step()
}

func (s *Session) CanAdvance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.CanAdvance(s.draft)
}

func (s *Session) CanFinish() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.CanFinish(s.draft)
}

func (s *Session) IsLastStep() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.IsLast()
}

func (s *Session) Advance(ctx context.Context) bool {
	var moved bool
	s.mutate(ctx, "advance", func(d *profile.Draft) { moved = s.gate.Advance(d) })
	return moved
}

func (s *Session) Retreat(ctx context.Context) bool {
	var moved bool
	s.mutate(ctx, "retreat", func(*profile.Draft) { moved = s.gate.Retreat() })
	return moved
}

// Reset discards the draft and returns to the first step.
func (s *Session) Reset(ctx context.Context) {
	s.mutate(ctx, "reset", func(*profile.Draft) {
		s.draft = profile.NewDraft()
		s.gate.Reset()
	})
}

// Metadata holds the profile-level fields.
type Metadata struct {
	Name         string
	Description  string
	Identifier   string
	Organization string
	Scope        profile.Scope
}

func (s *Session) SetMetadata(ctx context.Context, m Metadata) {
	s.mutate(ctx, "metadata", func(d *profile.Draft) {
		d.Name = m.Name
		d.Description = m.Description
		d.Identifier = m.Identifier
		d.Organization = m.Organization
		if m.Scope != "" {
			d.Scope = m.Scope
		}
	})
}

// AddPayload adds a payload of a catalog type. Unknown types are rejected.
func (s *Session) AddPayload(ctx context.Context, typeID string) (*payload.Instance, error) {
	if _, ok := s.catalog.Lookup(typeID); !ok {
		return nil, errors.Errorf("unknown payload type %q", typeID)
	}
	var p *payload.Instance
	s.mutate(ctx, "add-payload", func(d *profile.Draft) { p = d.AddPayload(typeID) })
	return p, nil
}

func (s *Session) TogglePayload(ctx context.Context, typeID string) bool {
	var selected bool
	s.mutate(ctx, "toggle-payload", func(d *profile.Draft) {
		selected = d.TogglePayload(typeID)
		if !selected && typeID == payload.TypePPPC {
			d.ClearTargetApp()
		}
	})
	return selected
}

func (s *Session) RemovePayload(ctx context.Context, id uuid.UUID) bool {
	var removed bool
	s.mutate(ctx, "remove-payload", func(d *profile.Draft) { removed = d.RemovePayload(id) })
	return removed
}

func (s *Session) SetPayloadEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	var err error
	s.mutate(ctx, "enable-payload", func(d *profile.Draft) {
		p, ok := d.Payload(id)
		if !ok {
			err = errors.Errorf("no payload %s", id)
			return
		}
		p.Enabled = enabled
	})
	return err
}

// SetSetting replaces one setting on a payload instance.
func (s *Session) SetSetting(ctx context.Context, id uuid.UUID, key string, v payload.Value) error {
	var err error
	s.mutate(ctx, "set-setting", func(d *profile.Draft) {
		p, ok := d.Payload(id)
		if !ok {
			err = errors.Errorf("no payload %s", id)
			return
		}
		p.Set(key, v)
	})
	return err
}

func (s *Session) RemoveSetting(ctx context.Context, id uuid.UUID, key string) error {
	var err error
	s.mutate(ctx, "remove-setting", func(d *profile.Draft) {
		p, ok := d.Payload(id)
		if !ok {
			err = errors.Errorf("no payload %s", id)
			return
		}
		p.Remove(key)
	})
	return err
}

func (s *Session) SelectTargetApp(ctx context.Context, app pppc.TargetApp, codeRequirement string) {
	s.mutate(ctx, "select-app", func(d *profile.Draft) { d.SelectTargetApp(app, codeRequirement) })
}

func (s *Session) ClearTargetApp(ctx context.Context) {
	s.mutate(ctx, "clear-app", func(d *profile.Draft) { d.ClearTargetApp() })
}

func (s *Session) AddPermission(ctx context.Context, e pppc.Entry) {
	s.mutate(ctx, "add-permission", func(d *profile.Draft) { d.AddPrivacyPermission(e) })
}

func (s *Session) UpdatePermission(ctx context.Context, e pppc.Entry) bool {
	var ok bool
	s.mutate(ctx, "update-permission", func(d *profile.Draft) { ok = d.UpdatePrivacyPermission(e) })
	return ok
}

func (s *Session) RemovePermission(ctx context.Context, id uuid.UUID) bool {
	var ok bool
	s.mutate(ctx, "remove-permission", func(d *profile.Draft) { ok = d.RemovePrivacyPermission(id) })
	return ok
}

// Export serializes the draft if it has no defects.
func (s *Session) Export() (profile.Mobileconfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.defects) > 0 {
		return nil, errors.Errorf("profile has %d defects: %s", len(s.defects), s.defects[0].Message)
	}
	return profile.Serialize(s.draft, s.catalog)
}

func (s *Session) mutate(ctx context.Context, action string, f func(*profile.Draft)) {
	s.mu.Lock()
	f(s.draft)
	s.defects = profile.Validate(s.draft, s.catalog)
	ev := ChangeEvent{
		ID:         uuid.NewString(),
		Time:       time.Now().UTC(),
		Action:     action,
		Step:       s.gate.Step().Name,
		Defects:    make([]string, 0, len(s.defects)),
		Exportable: len(s.defects) == 0,
	}
	for _, d := range s.defects {
		ev.Defects = append(ev.Defects, d.Message)
	}
	s.mu.Unlock()

	s.publish(ctx, ev)
}

func (s *Session) publish(ctx context.Context, ev ChangeEvent) {
	if s.publisher == nil {
		return
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		s.logger.Log("msg", "marshal change event", "err", err)
		return
	}
	if err := s.publisher.Publish(ctx, DraftChangedTopic, msg); err != nil {
		s.logger.Log("msg", "publish change event", "action", ev.Action, "err", err)
	}
}

// UnmarshalChangeEvent decodes a message published on DraftChangedTopic.
func UnmarshalChangeEvent(msg []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	err := json.Unmarshal(msg, &ev)
	return ev, errors.Wrap(err, "unmarshal change event")
}
