package pppc

import "github.com/google/uuid"

// IdentifierKind says how an entry's Identifier names the application.
type IdentifierKind int

const (
	BundleID IdentifierKind = iota
	Path
)

// String returns the IdentifierType value used in profiles.
func (k IdentifierKind) String() string {
	if k == Path {
		return "path"
	}
	return "bundleID"
}

// TargetApp is the application permissions are being granted to.
type TargetApp struct {
	Name     string
	BundleID string
	Path     string
}

// Entry grants or denies one application access to one service.
type Entry struct {
	ID              uuid.UUID
	Service         Service
	Identifier      string
	IdentifierKind  IdentifierKind
	Allowed         bool
	UserOverride    bool
	Comment         string
	CodeRequirement string
}

// NewEntry returns an allowing entry with a fresh id.
func NewEntry(service Service, identifier string, kind IdentifierKind) Entry {
	return Entry{
		ID:             uuid.New(),
		Service:        service,
		Identifier:     identifier,
		IdentifierKind: kind,
		Allowed:        true,
	}
}

// IsComplete reports whether the entry can be exported. Both the workflow
// gate and the validator rely on this rule.
func (e Entry) IsComplete() bool {
	return len(e.Missing()) == 0
}

// Missing names the fields that keep the entry from being complete.
func (e Entry) Missing() []string {
	var missing []string
	if e.Identifier == "" {
		missing = append(missing, "identifier")
	}
	if e.Service.RequiresCodeRequirement && e.CodeRequirement == "" {
		missing = append(missing, "code requirement")
	}
	return missing
}

var defaultServices = []string{
	ServiceFullDiskAccess,
	ServiceAccessibility,
	ServiceInputMonitoring,
}

// DefaultEntries seeds the permissions commonly needed by a newly
// selected application. The bundle id is preferred over the path.
func DefaultEntries(app TargetApp, codeRequirement string) []Entry {
	identifier, kind := app.BundleID, BundleID
	if identifier == "" {
		identifier, kind = app.Path, Path
	}
	entries := make([]Entry, 0, len(defaultServices))
	for _, id := range defaultServices {
		e := NewEntry(MustService(id), identifier, kind)
		e.CodeRequirement = codeRequirement
		entries = append(entries, e)
	}
	return entries
}

const authorizationUserOverride = "AllowStandardUserToSetSystemService"

// ServicesDict builds the Services dictionary of a TCC payload, keyed by
// service key. Entries keep their relative order within each service.
func ServicesDict(entries []Entry) map[string]interface{} {
	grouped := make(map[string][]interface{})
	for _, e := range entries {
		grouped[e.Service.Key] = append(grouped[e.Service.Key], e.dict())
	}
	out := make(map[string]interface{}, len(grouped))
	for k, v := range grouped {
		out[k] = v
	}
	return out
}

func (e Entry) dict() map[string]interface{} {
	d := map[string]interface{}{
		"Identifier":     e.Identifier,
		"IdentifierType": e.IdentifierKind.String(),
		"StaticCode":     false,
	}
	switch {
	case e.Allowed && e.UserOverride:
		d["Authorization"] = authorizationUserOverride
	case e.Allowed:
		d["Authorization"] = "Allow"
	default:
		d["Authorization"] = "Deny"
	}
	if e.CodeRequirement != "" {
		d["CodeRequirement"] = e.CodeRequirement
	}
	if e.Comment != "" {
		d["Comment"] = e.Comment
	}
	return d
}
