package profile

import (
	"fmt"
	"strings"

	"github.com/micromdm/profilebuilder/payload"
)

// Severity of a Defect. Every defect currently blocks export.
type Severity int

const SeverityError Severity = iota

func (s Severity) String() string { return "error" }

// Rule identifies the check that produced a Defect.
type Rule string

const (
	RuleName             Rule = "name"
	RuleIdentifier       Rule = "identifier"
	RuleIdentifierFormat Rule = "identifier-format"
	RulePayloads         Rule = "payloads"
	RulePayloadSettings  Rule = "payload-settings"
	RulePrivacy          Rule = "privacy"
)

// Defect is a user-correctable problem with a draft.
type Defect struct {
	Message  string
	Severity Severity
	Rule     Rule
}

func (d Defect) String() string { return d.Message }

// Validate reports every defect in the draft. Rules are independent and
// all of them run; a nil result means the draft is exportable.
func Validate(d *Draft, cat *payload.Catalog) []Defect {
	var defects []Defect
	add := func(rule Rule, format string, args ...interface{}) {
		defects = append(defects, Defect{
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityError,
			Rule:     rule,
		})
	}

	if d.Name == "" {
		add(RuleName, "Profile name is required.")
	}
	if d.Identifier == "" {
		add(RuleIdentifier, "Profile identifier is required.")
	} else if !IdentifierLooksValid(d.Identifier) {
		add(RuleIdentifierFormat, "Profile identifier must be in reverse-DNS format (e.g. com.company.profile).")
	}
	if len(d.Payloads) == 0 {
		add(RulePayloads, "At least one payload is required.")
	}
	for _, p := range d.Payloads {
		// the privacy payload is configured through its permission list
		if p.Type == payload.TypePPPC {
			continue
		}
		if p.Len() == 0 {
			add(RulePayloadSettings, "%s has no configuration.", displayName(cat, p.Type))
		}
	}
	for _, msg := range privacyDefects(d) {
		add(RulePrivacy, "%s", msg)
	}
	return defects
}

// IsExportable reports whether Validate finds no defects.
func IsExportable(d *Draft, cat *payload.Catalog) bool {
	return len(Validate(d, cat)) == 0
}

// IdentifierLooksValid is the only structural identifier check: the value
// must contain a dot. Reverse-DNS shape and character set are not enforced.
func IdentifierLooksValid(id string) bool {
	return strings.Contains(id, ".")
}

// PrivacyComplete reports whether the draft's privacy permissions are ready
// for export. It holds trivially when no privacy payload is selected.
func PrivacyComplete(d *Draft) bool {
	return len(privacyDefects(d)) == 0
}

func privacyDefects(d *Draft) []string {
	if !d.HasPayloadType(payload.TypePPPC) {
		return nil
	}
	if len(d.PrivacyPermissions) == 0 {
		return []string{"Privacy Preferences requires at least one permission."}
	}
	var out []string
	for _, e := range d.PrivacyPermissions {
		for _, field := range e.Missing() {
			out = append(out, fmt.Sprintf("Privacy permission for %s is missing %s.", serviceName(e.Service.Name, e.Service.ID), field))
		}
	}
	return out
}

func serviceName(name, id string) string {
	if name != "" {
		return name
	}
	if id != "" {
		return id
	}
	return "unknown service"
}

func displayName(cat *payload.Catalog, typeID string) string {
	if cat != nil {
		if e, ok := cat.Lookup(typeID); ok {
			return e.Name
		}
	}
	return typeID
}
