// Package workflow implements the guided step sequence used to build a
// profile. A Gate only tracks the current step; the draft it evaluates is
// owned by the caller.
package workflow

import (
	"github.com/micromdm/profilebuilder/payload"
	"github.com/micromdm/profilebuilder/profile"
)

// Step is a named stage with the predicate that must hold to leave it.
type Step struct {
	Name  string
	Ready func(d *profile.Draft) bool
}

// Flow is a fixed, ordered sequence of steps.
type Flow struct {
	Name  string
	Steps []Step
}

// Step names.
const (
	StepSetup     = "Setup"
	StepChoose    = "Choose Payloads"
	StepConfigure = "Configure Settings"
	StepReview    = "Review & Export"
	StepExport    = "Export & Deploy"
)

// PayloadsChosen holds when at least one payload is selected and, if the
// privacy payload is among them, a target application is selected.
func PayloadsChosen(d *profile.Draft) bool {
	if len(d.Payloads) == 0 {
		return false
	}
	if d.HasPayloadType(payload.TypePPPC) && d.TargetApp == nil {
		return false
	}
	return true
}

// PayloadsConfigured holds when every privacy permission is complete.
func PayloadsConfigured(d *profile.Draft) bool {
	return profile.PrivacyComplete(d)
}

// MetadataComplete holds when name, identifier and organization are set.
func MetadataComplete(d *profile.Draft) bool {
	return d.Name != "" && d.Identifier != "" && d.Organization != ""
}

// ThreeStep is the Choose, Configure, Review flow.
func ThreeStep() Flow {
	return Flow{
		Name: "guided",
		Steps: []Step{
			{Name: StepChoose, Ready: PayloadsChosen},
			{Name: StepConfigure, Ready: PayloadsConfigured},
			{Name: StepReview, Ready: MetadataComplete},
		},
	}
}

// FourStep is the Setup, Choose, Configure, Export flow.
func FourStep() Flow {
	return Flow{
		Name: "wizard",
		Steps: []Step{
			{Name: StepSetup, Ready: MetadataComplete},
			{Name: StepChoose, Ready: PayloadsChosen},
			{Name: StepConfigure, Ready: PayloadsConfigured},
			{Name: StepExport, Ready: MetadataComplete},
		},
	}
}

// Gate is a cursor over a Flow.
type Gate struct {
	flow    Flow
	current int
}

// NewGate starts at the first step. The flow must have at least one step.
func NewGate(flow Flow) *Gate {
	if len(flow.Steps) == 0 {
		panic("workflow: flow has no steps")
	}
	return &Gate{flow: flow}
}

func (g *Gate) Flow() Flow { return g.flow }

// Current returns the zero-based index of the current step.
func (g *Gate) Current() int { return g.current }

func (g *Gate) Step() Step { return g.flow.Steps[g.current] }

func (g *Gate) IsFirst() bool { return g.current == 0 }

func (g *Gate) IsLast() bool { return g.current == len(g.flow.Steps)-1 }

// CanAdvance reports whether the draft satisfies the current step and
// every step before it, so an edit made after moving forward can never
// carry the draft past an unmet earlier step.
func (g *Gate) CanAdvance(d *profile.Draft) bool {
	if g.IsLast() {
		return false
	}
	return g.readyThrough(d, g.current)
}

// Advance moves to the next step when CanAdvance holds. It reports whether
// the step changed.
func (g *Gate) Advance(d *profile.Draft) bool {
	if !g.CanAdvance(d) {
		return false
	}
	g.current++
	return true
}

// Retreat moves back one step unless already at the first.
func (g *Gate) Retreat() bool {
	if g.IsFirst() {
		return false
	}
	g.current--
	return true
}

// Reset returns to the first step. Clearing the draft is up to the caller.
func (g *Gate) Reset() { g.current = 0 }

// CanFinish reports whether the terminal action (export or deploy) is
// allowed: the gate is on the last step and every step is satisfied.
func (g *Gate) CanFinish(d *profile.Draft) bool {
	return g.IsLast() && g.readyThrough(d, len(g.flow.Steps)-1)
}

// Blocking returns the name of the first unmet step up to and including
// the current one, or "" if none.
func (g *Gate) Blocking(d *profile.Draft) string {
	for i := 0; i <= g.current; i++ {
		if !g.flow.Steps[i].Ready(d) {
			return g.flow.Steps[i].Name
		}
	}
	return ""
}

func (g *Gate) readyThrough(d *profile.Draft, last int) bool {
	for i := 0; i <= last; i++ {
		if !g.flow.Steps[i].Ready(d) {
			return false
		}
	}
	return true
}
