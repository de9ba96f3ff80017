package workflow

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micromdm/profilebuilder/payload"
	"github.com/micromdm/profilebuilder/pppc"
	"github.com/micromdm/profilebuilder/profile"
)

func TestThreeStepFlow(t *testing.T) {
	d := profile.NewDraft()
	g := NewGate(ThreeStep())
	require.True(t, g.IsFirst())

	assert.False(t, g.Advance(d), "no payloads selected")

	d.AddPayload(payload.TypePPPC)
	assert.False(t, g.CanAdvance(d), "privacy payload needs a target app")

	d.SelectTargetApp(pppc.TargetApp{Name: "Example", BundleID: "com.example.app"}, "")
	require.True(t, g.Advance(d))
	assert.Equal(t, StepConfigure, g.Step().Name)

	// full disk access needs a code requirement
	assert.False(t, g.CanAdvance(d))
	for i := range d.PrivacyPermissions {
		d.PrivacyPermissions[i].CodeRequirement = "anchor apple"
	}
	require.True(t, g.Advance(d))
	assert.True(t, g.IsLast())

	assert.False(t, g.CanFinish(d))
	d.Name, d.Identifier, d.Organization = "Test", "com.test.profile", "Acme"
	assert.True(t, g.CanFinish(d))
	assert.False(t, g.Advance(d), "no step after the last")
}

func TestFourStepFlow(t *testing.T) {
	d := profile.NewDraft()
	g := NewGate(FourStep())
	assert.Len(t, g.Flow().Steps, 4)
	assert.Equal(t, StepSetup, g.Step().Name)
	assert.False(t, g.CanAdvance(d))

	d.Name, d.Identifier, d.Organization = "Test", "com.test.profile", "Acme"
	require.True(t, g.Advance(d))
	d.AddPayload(payload.TypeFileVault).Set("Enable", payload.String("On"))
	require.True(t, g.Advance(d))
	require.True(t, g.Advance(d))
	assert.Equal(t, StepExport, g.Step().Name)
	assert.True(t, g.CanFinish(d))
}

func TestRetreatAndReset(t *testing.T) {
	d := profile.NewDraft()
	d.AddPayload(payload.TypeWiFi)
	g := NewGate(ThreeStep())

	assert.False(t, g.Retreat())
	require.True(t, g.Advance(d))
	require.True(t, g.Advance(d))
	assert.Equal(t, 2, g.Current())

	// retreat is unconditional
	d.ClearAll()
	assert.True(t, g.Retreat())
	assert.Equal(t, 1, g.Current())

	g.Reset()
	assert.Equal(t, 0, g.Current())
}

func TestNoSkippingAfterEdit(t *testing.T) {
	d := profile.NewDraft()
	d.AddPayload(payload.TypeWiFi)
	g := NewGate(ThreeStep())
	require.True(t, g.Advance(d))

	// step one becomes unmet while on step two
	d.ClearAll()
	assert.False(t, g.CanAdvance(d))
	assert.Equal(t, StepChoose, g.Blocking(d))
}

// the configure step and the validator agree on privacy completeness.
func TestCompletenessConsistency(t *testing.T) {
	cat := payload.DefaultCatalog()
	services := pppc.Services()
	identifiers := []string{"", "com.example.app"}
	requirements := []string{"", "anchor apple"}

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		d := profile.NewDraft()
		if r.Intn(4) != 0 {
			d.AddPayload(payload.TypePPPC)
		}
		n := r.Intn(4)
		for j := 0; j < n; j++ {
			e := pppc.NewEntry(services[r.Intn(len(services))], identifiers[r.Intn(2)], pppc.BundleID)
			e.CodeRequirement = requirements[r.Intn(2)]
			d.AddPrivacyPermission(e)
		}

		var privacyDefects int
		for _, def := range profile.Validate(d, cat) {
			if def.Rule == profile.RulePrivacy {
				privacyDefects++
			}
		}
		if have, want := PayloadsConfigured(d), privacyDefects == 0; have != want {
			t.Fatalf("iteration %d: gate says %t, validator reports %d privacy defects", i, have, privacyDefects)
		}
	}
}

// the gate never reaches the last step while an earlier predicate fails.
func TestGateSoundness(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 300; i++ {
		d := profile.NewDraft()
		g := NewGate(ThreeStep())
		for j := 0; j < 12; j++ {
			switch r.Intn(6) {
			case 0:
				d.TogglePayload(payload.TypeWiFi)
			case 1:
				d.TogglePayload(payload.TypePPPC)
			case 2:
				d.SelectTargetApp(pppc.TargetApp{BundleID: "com.example.app"}, "anchor apple")
			case 3:
				d.ClearTargetApp()
			case 4:
				g.Retreat()
			default:
				g.Advance(d)
			}
			if g.Current() > 0 {
				for k := 0; k < g.Current(); k++ {
					step := g.Flow().Steps[k]
					if !step.Ready(d) && g.CanAdvance(d) {
						t.Fatalf("iteration %d: can advance past unmet step %s", i, step.Name)
					}
				}
			}
		}
	}
}

func TestNewGatePanicsOnEmptyFlow(t *testing.T) {
	assert.Panics(t, func() { NewGate(Flow{}) })
}
