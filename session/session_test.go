package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micromdm/profilebuilder/payload"
	"github.com/micromdm/profilebuilder/pppc"
	"github.com/micromdm/profilebuilder/pubsub"
	"github.com/micromdm/profilebuilder/workflow"
)

func TestGuidedSession(t *testing.T) {
	ctx := context.Background()
	s := New(payload.DefaultCatalog(), workflow.ThreeStep())
	assert.False(t, s.Exportable())
	assert.False(t, s.CanAdvance())

	_, err := s.AddPayload(ctx, "nope")
	require.Error(t, err)

	assert.True(t, s.TogglePayload(ctx, payload.TypePPPC))
	assert.False(t, s.CanAdvance())
	s.SelectTargetApp(ctx, pppc.TargetApp{Name: "Example", BundleID: "com.example.app"}, "anchor apple")
	require.True(t, s.Advance(ctx))
	require.True(t, s.Advance(ctx))
	assert.True(t, s.IsLastStep())
	assert.False(t, s.CanFinish())

	s.SetMetadata(ctx, Metadata{Name: "Test", Identifier: "com.test.profile", Organization: "Acme"})
	assert.True(t, s.CanFinish())
	assert.Empty(t, s.Defects())

	mc, err := s.Export()
	require.NoError(t, err)
	id, err := mc.GetPayloadIdentifier()
	require.NoError(t, err)
	assert.Equal(t, "com.test.profile", id)
}

func TestTogglingPrivacyOffClearsPermissions(t *testing.T) {
	ctx := context.Background()
	s := New(payload.DefaultCatalog(), workflow.ThreeStep())
	s.TogglePayload(ctx, payload.TypePPPC)
	s.SelectTargetApp(ctx, pppc.TargetApp{BundleID: "com.example.app"}, "")
	require.Len(t, s.Draft().PrivacyPermissions, 3)

	assert.False(t, s.TogglePayload(ctx, payload.TypePPPC))
	assert.Empty(t, s.Draft().PrivacyPermissions)
	assert.Nil(t, s.Draft().TargetApp)
}

func TestSettingsAndExport(t *testing.T) {
	ctx := context.Background()
	s := New(payload.DefaultCatalog(), workflow.FourStep())
	s.SetMetadata(ctx, Metadata{Name: "Test", Identifier: "com.test.profile", Organization: "Acme", Scope: "User"})
	p, err := s.AddPayload(ctx, payload.TypeWiFi)
	require.NoError(t, err)

	_, err = s.Export()
	require.Error(t, err, "payload without settings is a defect")

	require.NoError(t, s.SetSetting(ctx, p.ID, "SSID_STR", payload.String("corp")))
	assert.True(t, s.Exportable())
	assert.Equal(t, "User", string(s.Draft().Scope))

	require.NoError(t, s.SetPayloadEnabled(ctx, p.ID, false))
	require.NoError(t, s.RemoveSetting(ctx, p.ID, "SSID_STR"))
	assert.False(t, s.Exportable())

	assert.True(t, s.RemovePayload(ctx, p.ID))
	assert.Error(t, s.SetSetting(ctx, p.ID, "k", payload.Bool(true)))
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s := New(payload.DefaultCatalog(), workflow.ThreeStep())
	s.TogglePayload(ctx, payload.TypeWiFi)
	require.True(t, s.Advance(ctx))

	s.Reset(ctx)
	assert.Equal(t, workflow.StepChoose, s.Step().Name)
	assert.Empty(t, s.Draft().Payloads)
}

func TestPermissions(t *testing.T) {
	ctx := context.Background()
	s := New(payload.DefaultCatalog(), workflow.ThreeStep())
	e := pppc.NewEntry(pppc.MustService(pppc.ServiceMicrophone), "com.example.app", pppc.BundleID)
	s.AddPermission(ctx, e)
	e.Comment = "calls"
	assert.True(t, s.UpdatePermission(ctx, e))
	assert.Equal(t, "calls", s.Draft().PrivacyPermissions[0].Comment)
	assert.True(t, s.RemovePermission(ctx, e.ID))
	assert.False(t, s.RemovePermission(ctx, e.ID))
}

func TestPublishesChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := pubsub.NewInmemPubsub()
	defer bus.Close()

	events, err := bus.Subscribe(ctx, "test", DraftChangedTopic)
	require.NoError(t, err)

	s := New(payload.DefaultCatalog(), workflow.ThreeStep(), WithPublisher(bus))
	s.SetMetadata(ctx, Metadata{Name: "Test"})

	select {
	case msg := <-events:
		ev, err := UnmarshalChangeEvent(msg.Message)
		require.NoError(t, err)
		assert.Equal(t, "metadata", ev.Action)
		assert.Equal(t, workflow.StepChoose, ev.Step)
		assert.False(t, ev.Exportable)
		assert.Contains(t, ev.Defects, "Profile identifier is required.")
	case <-time.After(time.Second):
		t.Fatal("no change event published")
	}
}
