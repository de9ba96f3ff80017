package main

import (
	"fmt"
	"io/ioutil"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/micromdm/profilebuilder/payload"
	"github.com/micromdm/profilebuilder/pppc"
	"github.com/micromdm/profilebuilder/profile"
)

// draftFile is the YAML form of a profile draft.
type draftFile struct {
	Name         string           `yaml:"name"`
	Description  string           `yaml:"description,omitempty"`
	Identifier   string           `yaml:"identifier"`
	Organization string           `yaml:"organization,omitempty"`
	Scope        string           `yaml:"scope,omitempty"`
	TargetApp    *targetAppFile   `yaml:"target_app,omitempty"`
	Payloads     []payloadFile    `yaml:"payloads"`
	Permissions  []permissionFile `yaml:"permissions,omitempty"`
}

type targetAppFile struct {
	Name            string `yaml:"name,omitempty"`
	BundleID        string `yaml:"bundle_id,omitempty"`
	Path            string `yaml:"path,omitempty"`
	CodeRequirement string `yaml:"code_requirement,omitempty"`
}

type payloadFile struct {
	Type     string                 `yaml:"type"`
	Enabled  *bool                  `yaml:"enabled,omitempty"`
	Settings map[string]interface{} `yaml:"settings,omitempty"`
}

type permissionFile struct {
	Service         string `yaml:"service"`
	Identifier      string `yaml:"identifier"`
	IdentifierType  string `yaml:"identifier_type,omitempty"`
	Allowed         *bool  `yaml:"allowed,omitempty"`
	UserOverride    bool   `yaml:"user_override,omitempty"`
	Comment         string `yaml:"comment,omitempty"`
	CodeRequirement string `yaml:"code_requirement,omitempty"`
}

func loadDraftFile(path string, cat *payload.Catalog) (*profile.Draft, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read draft %s", path)
	}
	return parseDraft(data, cat)
}

func parseDraft(data []byte, cat *payload.Catalog) (*profile.Draft, error) {
	var f draftFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "decode draft yaml")
	}

	d := profile.NewDraft()
	d.Name = f.Name
	d.Description = f.Description
	d.Identifier = f.Identifier
	d.Organization = f.Organization
	switch profile.Scope(f.Scope) {
	case "":
	case profile.ScopeSystem, profile.ScopeUser:
		d.Scope = profile.Scope(f.Scope)
	default:
		return nil, errors.Errorf("scope must be System or User, got %q", f.Scope)
	}

	for i, pf := range f.Payloads {
		entry, ok := cat.Lookup(pf.Type)
		if !ok {
			return nil, errors.Errorf("payloads[%d]: unknown payload type %q", i, pf.Type)
		}
		p := d.ForceAddPayload(entry.ID)
		if pf.Enabled != nil {
			p.Enabled = *pf.Enabled
		}
		for key, raw := range pf.Settings {
			var hint payload.Kind
			if spec, ok := entry.Setting(key); ok {
				hint = spec.Kind
			}
			v, err := toValue(raw, hint)
			if err != nil {
				return nil, errors.Wrapf(err, "payloads[%d] (%s) setting %s", i, pf.Type, key)
			}
			p.Set(key, v)
		}
	}

	if f.TargetApp != nil {
		d.SelectTargetApp(pppc.TargetApp{
			Name:     f.TargetApp.Name,
			BundleID: f.TargetApp.BundleID,
			Path:     f.TargetApp.Path,
		}, f.TargetApp.CodeRequirement)
		if len(f.Permissions) > 0 {
			// explicit permissions replace the seeded defaults
			d.PrivacyPermissions = nil
		}
	}
	for i, pf := range f.Permissions {
		e, err := pf.entry()
		if err != nil {
			return nil, errors.Wrapf(err, "permissions[%d]", i)
		}
		d.AddPrivacyPermission(e)
	}
	return d, nil
}

func (pf permissionFile) entry() (pppc.Entry, error) {
	svc, ok := pppc.LookupService(pf.Service)
	if !ok {
		return pppc.Entry{}, errors.Errorf("unknown privacy service %q", pf.Service)
	}
	kind := pppc.BundleID
	switch pf.IdentifierType {
	case "", "bundleID":
	case "path":
		kind = pppc.Path
	default:
		return pppc.Entry{}, errors.Errorf("identifier_type must be bundleID or path, got %q", pf.IdentifierType)
	}
	e := pppc.NewEntry(svc, pf.Identifier, kind)
	if pf.Allowed != nil {
		e.Allowed = *pf.Allowed
	}
	e.UserOverride = pf.UserOverride
	e.Comment = pf.Comment
	e.CodeRequirement = pf.CodeRequirement
	return e, nil
}

// toValue converts a decoded YAML scalar or list to a setting value. A
// non-zero hint forces the catalog's declared kind.
func toValue(raw interface{}, hint payload.Kind) (payload.Value, error) {
	switch raw.(type) {
	case map[string]interface{}:
		return payload.Value{}, errors.New("nested dictionaries are not supported")
	case []interface{}:
		if hint != payload.KindStringArray && hint != 0 {
			return payload.Value{}, errors.Errorf("want a %s, got a list", hint)
		}
	}

	switch hint {
	case payload.KindString:
		return payload.String(fmt.Sprint(raw)), nil
	case payload.KindBool:
		if b, ok := raw.(bool); ok {
			return payload.Bool(b), nil
		}
		b, err := strconv.ParseBool(fmt.Sprint(raw))
		if err != nil {
			return payload.Value{}, errors.Errorf("want a boolean, got %v", raw)
		}
		return payload.Bool(b), nil
	case payload.KindInteger:
		switch v := raw.(type) {
		case int:
			return payload.Integer(int64(v)), nil
		case int64:
			return payload.Integer(v), nil
		}
		i, err := strconv.ParseInt(fmt.Sprint(raw), 10, 64)
		if err != nil {
			return payload.Value{}, errors.Errorf("want an integer, got %v", raw)
		}
		return payload.Integer(i), nil
	case payload.KindReal:
		switch v := raw.(type) {
		case float64:
			return payload.Real(v), nil
		case int:
			return payload.Real(float64(v)), nil
		}
		f, err := strconv.ParseFloat(fmt.Sprint(raw), 64)
		if err != nil {
			return payload.Value{}, errors.Errorf("want a number, got %v", raw)
		}
		return payload.Real(f), nil
	case payload.KindStringArray:
		return stringArray(raw)
	}

	switch v := raw.(type) {
	case string:
		return payload.String(v), nil
	case bool:
		return payload.Bool(v), nil
	case int:
		return payload.Integer(int64(v)), nil
	case int64:
		return payload.Integer(v), nil
	case float64:
		return payload.Real(v), nil
	case []interface{}:
		return stringArray(v)
	case nil:
		return payload.Value{}, errors.New("empty value")
	default:
		return payload.Value{}, errors.Errorf("unsupported value %T", raw)
	}
}

func stringArray(raw interface{}) (payload.Value, error) {
	items, ok := raw.([]interface{})
	if !ok {
		return payload.Value{}, errors.Errorf("want a list, got %v", raw)
	}
	ss := make([]string, 0, len(items))
	for _, item := range items {
		switch item.(type) {
		case map[string]interface{}, []interface{}:
			return payload.Value{}, errors.New("list items must be scalars")
		}
		ss = append(ss, fmt.Sprint(item))
	}
	return payload.StringArray(ss), nil
}
