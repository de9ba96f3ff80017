package payload

import (
	"sort"

	"github.com/google/uuid"
)

// Instance is one configured occurrence of a catalog payload type.
// Settings are not checked against the catalog schema here; unknown keys
// are kept and left for the validator.
type Instance struct {
	ID      uuid.UUID
	Type    string
	Enabled bool

	settings map[string]Value
}

// NewInstance creates an enabled instance with a fresh UUID. The UUID is
// reused as the PayloadUUID on every export of the instance.
func NewInstance(typeID string) *Instance {
	return &Instance{
		ID:       uuid.New(),
		Type:     typeID,
		Enabled:  true,
		settings: make(map[string]Value),
	}
}

func (p *Instance) Get(key string) (Value, bool) {
	v, ok := p.settings[key]
	return v, ok
}

func (p *Instance) Set(key string, v Value) {
	if p.settings == nil {
		p.settings = make(map[string]Value)
	}
	p.settings[key] = v
}

func (p *Instance) Remove(key string) {
	delete(p.settings, key)
}

// Keys returns the setting keys in sorted order.
func (p *Instance) Keys() []string {
	keys := make([]string, 0, len(p.settings))
	for k := range p.settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p *Instance) Len() int { return len(p.settings) }
