package sequencer

import "sort"

// Kit maps the four drum voices used by the groove to MIDI notes
type Kit struct {
	Name      string
	Kick      uint8
	Snare     uint8
	ClosedHat uint8
	OpenHat   uint8
}

// Kits contains all available drum kit mappings
var Kits = map[string]Kit{
	"gm":   {Name: "General MIDI", Kick: 36, Snare: 38, ClosedHat: 42, OpenHat: 46},
	"rd8":  {Name: "Behringer RD-8", Kick: 36, Snare: 40, ClosedHat: 42, OpenHat: 46}, // RD-8 snare is 40, not 38
	"tr8s": {Name: "Roland TR-8S", Kick: 36, Snare: 38, ClosedHat: 42, OpenHat: 46},
	"er1":  {Name: "Korg ER-1", Kick: 36, Snare: 38, ClosedHat: 42, OpenHat: 46}, // PCM hats
}

// DefaultKit is the default kit name
const DefaultKit = "gm"

// KitNames returns the available kit names, sorted
func KitNames() []string {
	names := make([]string, 0, len(Kits))
	for name := range Kits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetKit returns a kit by name, defaulting to GM if not found
func GetKit(name string) Kit {
	if kit, ok := Kits[name]; ok {
		return kit
	}
	return Kits[DefaultKit]
}
