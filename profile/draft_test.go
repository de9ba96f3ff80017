package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micromdm/profilebuilder/payload"
	"github.com/micromdm/profilebuilder/pppc"
)

func TestAddPayloadIsIdempotentPerType(t *testing.T) {
	d := NewDraft()
	first := d.AddPayload(payload.TypeWiFi)
	second := d.AddPayload(payload.TypeWiFi)
	assert.Same(t, first, second)
	assert.Len(t, d.Payloads, 1)

	forced := d.ForceAddPayload(payload.TypeWiFi)
	assert.NotEqual(t, first.ID, forced.ID)
	assert.Len(t, d.PayloadsOfType(payload.TypeWiFi), 2)
}

func TestTogglePayload(t *testing.T) {
	d := NewDraft()
	assert.True(t, d.TogglePayload(payload.TypeVPN))
	assert.True(t, d.HasPayloadType(payload.TypeVPN))
	assert.False(t, d.TogglePayload(payload.TypeVPN))
	assert.False(t, d.HasPayloadType(payload.TypeVPN))
}

func TestRemovePayloadByID(t *testing.T) {
	d := NewDraft()
	a := d.ForceAddPayload(payload.TypeWiFi)
	b := d.ForceAddPayload(payload.TypeWiFi)

	require.True(t, d.RemovePayload(a.ID))
	assert.False(t, d.RemovePayload(a.ID))

	_, ok := d.Payload(a.ID)
	assert.False(t, ok)
	p, ok := d.Payload(b.ID)
	require.True(t, ok)
	assert.Same(t, b, p)
}

func TestPrivacyPermissions(t *testing.T) {
	d := NewDraft()
	e := pppc.NewEntry(pppc.MustService(pppc.ServiceCamera), "com.example.app", pppc.BundleID)
	d.AddPrivacyPermission(e)

	e.Allowed = false
	require.True(t, d.UpdatePrivacyPermission(e))
	assert.False(t, d.PrivacyPermissions[0].Allowed)

	require.True(t, d.RemovePrivacyPermission(e.ID))
	assert.Empty(t, d.PrivacyPermissions)
	assert.False(t, d.UpdatePrivacyPermission(e))
}

func TestSelectTargetAppSeedsOnce(t *testing.T) {
	d := NewDraft()
	app := pppc.TargetApp{Name: "Example", BundleID: "com.example.app"}
	d.SelectTargetApp(app, "anchor apple")
	require.NotNil(t, d.TargetApp)
	assert.Len(t, d.PrivacyPermissions, 3)

	d.RemovePrivacyPermission(d.PrivacyPermissions[0].ID)
	d.SelectTargetApp(app, "anchor apple")
	assert.Len(t, d.PrivacyPermissions, 2, "reselecting must not reseed existing permissions")
}

func TestClearAll(t *testing.T) {
	d := NewDraft()
	d.Name = "keep"
	d.AddPayload(payload.TypePPPC)
	d.SelectTargetApp(pppc.TargetApp{BundleID: "com.example.app"}, "")

	d.ClearAll()
	assert.Empty(t, d.Payloads)
	assert.Empty(t, d.PrivacyPermissions)
	assert.Nil(t, d.TargetApp)
	assert.Equal(t, "keep", d.Name)
}

func TestClearTargetAppDropsPermissions(t *testing.T) {
	d := NewDraft()
	d.SelectTargetApp(pppc.TargetApp{BundleID: "com.example.app"}, "")
	d.ClearTargetApp()
	assert.Nil(t, d.TargetApp)
	assert.Empty(t, d.PrivacyPermissions)
}
