package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micromdm/profilebuilder/payload"
	"github.com/micromdm/profilebuilder/pppc"
	"github.com/micromdm/profilebuilder/profile"
)

const exampleDraft = `
name: Corp Wi-Fi
identifier: com.acme.wifi
organization: Acme
scope: User
payloads:
  - type: wifi
    settings:
      SSID_STR: corp
      EncryptionType: WPA2
      AutoJoin: "true"
      HIDDEN_NETWORK: false
  - type: vpn
    enabled: false
    settings:
      UserDefinedName: Office
      VPNType: IKEv2
      RemoteAddress: vpn.acme.com
      OnDemandEnabled: 1
      Custom: [a, 2, true]
`

func TestParseDraft(t *testing.T) {
	d, err := parseDraft([]byte(exampleDraft), payload.DefaultCatalog())
	require.NoError(t, err)

	assert.Equal(t, "Corp Wi-Fi", d.Name)
	assert.Equal(t, profile.ScopeUser, d.Scope)
	require.Len(t, d.Payloads, 2)

	wifi := d.Payloads[0]
	assert.True(t, wifi.Enabled)
	autoJoin, ok := wifi.Get("AutoJoin")
	require.True(t, ok)
	assert.Equal(t, payload.KindBool, autoJoin.Kind(), "catalog kind wins over the YAML string")
	assert.True(t, autoJoin.AsBool())

	vpn := d.Payloads[1]
	assert.False(t, vpn.Enabled)
	onDemand, _ := vpn.Get("OnDemandEnabled")
	assert.Equal(t, int64(1), onDemand.AsInt())
	custom, _ := vpn.Get("Custom")
	assert.Equal(t, []string{"a", "2", "true"}, custom.AsStringArray())

	assert.Empty(t, profile.Validate(d, payload.DefaultCatalog()))
}

func TestParseDraftPermissions(t *testing.T) {
	const src = `
name: Agent
identifier: com.acme.agent
payloads:
  - type: pppc
target_app:
  name: Agent
  bundle_id: com.acme.agent
  code_requirement: anchor apple generic
permissions:
  - service: camera
    identifier: com.acme.agent
    allowed: false
  - service: full-disk-access
    identifier: /usr/local/bin/agent
    identifier_type: path
    code_requirement: identifier agent
`
	d, err := parseDraft([]byte(src), payload.DefaultCatalog())
	require.NoError(t, err)
	require.NotNil(t, d.TargetApp)
	require.Len(t, d.PrivacyPermissions, 2, "explicit permissions replace defaults")

	camera := d.PrivacyPermissions[0]
	assert.Equal(t, pppc.ServiceCamera, camera.Service.ID)
	assert.False(t, camera.Allowed)

	fda := d.PrivacyPermissions[1]
	assert.Equal(t, pppc.Path, fda.IdentifierKind)
	assert.True(t, fda.IsComplete())
	assert.True(t, profile.IsExportable(d, payload.DefaultCatalog()))
}

func TestParseDraftTargetAppSeedsDefaults(t *testing.T) {
	const src = `
name: Agent
identifier: com.acme.agent
payloads:
  - type: pppc
target_app:
  bundle_id: com.acme.agent
`
	d, err := parseDraft([]byte(src), payload.DefaultCatalog())
	require.NoError(t, err)
	assert.Len(t, d.PrivacyPermissions, 3)
	assert.False(t, profile.PrivacyComplete(d), "full disk access needs a code requirement")
}

func TestParseDraftErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown payload", "payloads:\n  - type: nope\n"},
		{"bad scope", "scope: Device\n"},
		{"bad integer", "payloads:\n  - type: vpn\n    settings:\n      OnDemandEnabled: often\n"},
		{"unknown service", "permissions:\n  - service: telepathy\n    identifier: x\n"},
		{"bad identifier type", "permissions:\n  - service: camera\n    identifier: x\n    identifier_type: team\n"},
		{"nested list", "payloads:\n  - type: wifi\n    settings:\n      SSID_STR: [[a]]\n"},
		{"not yaml", "name: [unterminated\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseDraft([]byte(tt.src), payload.DefaultCatalog())
			assert.Error(t, err)
		})
	}
}
