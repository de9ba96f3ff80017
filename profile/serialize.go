package profile

import (
	"bytes"
	"fmt"

	"github.com/groob/plist"
	"github.com/jessepeterson/cfgprofiles"
	"github.com/pkg/errors"

	"github.com/micromdm/profilebuilder/payload"
	"github.com/micromdm/profilebuilder/pppc"
)

const configurationPayloadType = "Configuration"

// EncodingError is returned when a setting value has no plist mapping.
type EncodingError struct {
	Payload string
	Key     string
	Kind    payload.Kind
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %s setting %q: no plist mapping for %s", e.Payload, e.Key, e.Kind)
}

// configuration is the top level dictionary of a mobileconfig.
type configuration struct {
	*cfgprofiles.Payload
	PayloadContent           []interface{}
	PayloadScope             string
	PayloadRemovalDisallowed bool
}

// keys owned by the serializer; settings cannot override them.
var reservedKeys = map[string]bool{
	"PayloadType":       true,
	"PayloadIdentifier": true,
	"PayloadUUID":       true,
	"PayloadVersion":    true,
	"PayloadEnabled":    true,
}

// Serialize encodes the draft as an XML property list. The top level
// PayloadUUID is new on every call; payload UUIDs come from the instances
// and are stable. Disabled payloads are left out. Serialize does not
// validate the draft.
func Serialize(d *Draft, cat *payload.Catalog) (Mobileconfig, error) {
	top := configuration{
		Payload:                  cfgprofiles.NewPayload(configurationPayloadType, d.Identifier),
		PayloadContent:           []interface{}{},
		PayloadScope:             string(d.Scope),
		PayloadRemovalDisallowed: false,
	}
	top.PayloadDisplayName = d.Name
	top.PayloadDescription = d.Description
	top.PayloadOrganization = d.Organization
	if top.PayloadScope == "" {
		top.PayloadScope = string(ScopeSystem)
	}

	for _, p := range d.Payloads {
		if !p.Enabled {
			continue
		}
		content, err := payloadDict(d, cat, p)
		if err != nil {
			return nil, err
		}
		top.PayloadContent = append(top.PayloadContent, content)
	}

	buf := new(bytes.Buffer)
	enc := plist.NewEncoder(buf)
	enc.Indent("  ")
	if err := enc.Encode(top); err != nil {
		return nil, errors.Wrap(err, "encode mobileconfig")
	}
	return Mobileconfig(buf.Bytes()), nil
}

func payloadDict(d *Draft, cat *payload.Catalog, p *payload.Instance) (map[string]interface{}, error) {
	entry, ok := cat.Lookup(p.Type)
	if !ok {
		entry = payload.Entry{ID: p.Type, Name: p.Type}
	}

	dict := map[string]interface{}{
		"PayloadDisplayName": entry.Name,
		"PayloadDescription": entry.Description,
	}
	for _, key := range p.Keys() {
		if reservedKeys[key] {
			continue
		}
		v, _ := p.Get(key)
		pv, err := plistValue(v)
		if err != nil {
			return nil, &EncodingError{Payload: p.Type, Key: key, Kind: v.Kind()}
		}
		dict[key] = pv
	}
	if p.Type == payload.TypePPPC {
		dict["Services"] = pppc.ServicesDict(d.PrivacyPermissions)
	}

	dict["PayloadType"] = entry.AppleType()
	dict["PayloadIdentifier"] = d.Identifier + "." + p.Type
	dict["PayloadUUID"] = p.ID.String()
	dict["PayloadVersion"] = 1
	dict["PayloadEnabled"] = p.Enabled
	return dict, nil
}

func plistValue(v payload.Value) (interface{}, error) {
	switch v.Kind() {
	case payload.KindString:
		return v.AsString(), nil
	case payload.KindBool:
		return v.AsBool(), nil
	case payload.KindInteger:
		return v.AsInt(), nil
	case payload.KindReal:
		return v.AsReal(), nil
	case payload.KindStringArray:
		return v.AsStringArray(), nil
	default:
		return nil, errors.New("unmapped kind")
	}
}
