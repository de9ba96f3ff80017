package profile

import (
	"github.com/google/uuid"

	"github.com/micromdm/profilebuilder/payload"
	"github.com/micromdm/profilebuilder/pppc"
)

// Scope is the PayloadScope of a profile.
type Scope string

const (
	ScopeSystem Scope = "System"
	ScopeUser   Scope = "User"
)

// Draft is a profile being edited. It is owned by a single editing
// session and is not safe for concurrent mutation.
type Draft struct {
	Name         string
	Description  string
	Identifier   string
	Organization string
	Scope        Scope

	Payloads           []*payload.Instance
	PrivacyPermissions []pppc.Entry
	TargetApp          *pppc.TargetApp
}

func NewDraft() *Draft {
	return &Draft{Scope: ScopeSystem}
}

// AddPayload adds an instance of typeID, or returns the existing one if
// the draft already holds that type.
func (d *Draft) AddPayload(typeID string) *payload.Instance {
	if existing := d.PayloadsOfType(typeID); len(existing) > 0 {
		return existing[0]
	}
	return d.ForceAddPayload(typeID)
}

// ForceAddPayload adds a new instance even if the type is already present.
func (d *Draft) ForceAddPayload(typeID string) *payload.Instance {
	p := payload.NewInstance(typeID)
	d.Payloads = append(d.Payloads, p)
	return p
}

// TogglePayload removes every instance of typeID if one exists, otherwise
// adds one. It reports whether the type is selected afterwards.
func (d *Draft) TogglePayload(typeID string) bool {
	existing := d.PayloadsOfType(typeID)
	if len(existing) == 0 {
		d.ForceAddPayload(typeID)
		return true
	}
	for _, p := range existing {
		d.RemovePayload(p.ID)
	}
	return false
}

// RemovePayload removes the instance with the given id.
func (d *Draft) RemovePayload(id uuid.UUID) bool {
	for i, p := range d.Payloads {
		if p.ID == id {
			d.Payloads = append(d.Payloads[:i], d.Payloads[i+1:]...)
			return true
		}
	}
	return false
}

func (d *Draft) Payload(id uuid.UUID) (*payload.Instance, bool) {
	for _, p := range d.Payloads {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

func (d *Draft) PayloadsOfType(typeID string) []*payload.Instance {
	var out []*payload.Instance
	for _, p := range d.Payloads {
		if p.Type == typeID {
			out = append(out, p)
		}
	}
	return out
}

func (d *Draft) HasPayloadType(typeID string) bool {
	for _, p := range d.Payloads {
		if p.Type == typeID {
			return true
		}
	}
	return false
}

func (d *Draft) AddPrivacyPermission(e pppc.Entry) {
	d.PrivacyPermissions = append(d.PrivacyPermissions, e)
}

// UpdatePrivacyPermission replaces the entry with the same id.
func (d *Draft) UpdatePrivacyPermission(e pppc.Entry) bool {
	for i := range d.PrivacyPermissions {
		if d.PrivacyPermissions[i].ID == e.ID {
			d.PrivacyPermissions[i] = e
			return true
		}
	}
	return false
}

func (d *Draft) RemovePrivacyPermission(id uuid.UUID) bool {
	for i, e := range d.PrivacyPermissions {
		if e.ID == id {
			d.PrivacyPermissions = append(d.PrivacyPermissions[:i], d.PrivacyPermissions[i+1:]...)
			return true
		}
	}
	return false
}

// SelectTargetApp sets the application permissions are granted to. The
// default permission set is seeded only when no permissions exist yet.
func (d *Draft) SelectTargetApp(app pppc.TargetApp, codeRequirement string) {
	d.TargetApp = &app
	if len(d.PrivacyPermissions) == 0 {
		d.PrivacyPermissions = pppc.DefaultEntries(app, codeRequirement)
	}
}

// ClearTargetApp drops the target app together with every permission,
// since the entries reference its identifier.
func (d *Draft) ClearTargetApp() {
	d.TargetApp = nil
	d.PrivacyPermissions = nil
}

// ClearAll resets payloads, permissions and the target app. Profile
// metadata is kept.
func (d *Draft) ClearAll() {
	d.Payloads = nil
	d.ClearTargetApp()
}
