package config

import "sort"

// Preset is a built-in par document.
type Preset struct {
	Description string
	Par         string
}

var Presets = map[string]Preset{
	"isolated": {
		Description: "Isolated millisecond pulsar with spindown and dispersion",
		Par: `PSRJ           J1744-1134
ELONG          266.1194 1
ELAT           11.8052
F0             245.4261196898081 1
F1             -5.38e-16 1
PEPOCH         55000
DM             3.1380 1
PHOFF          0
`,
	},
	"binary": {
		Description: "Circular binary behind a constant instrumental delay",
		Par: `PSRJ           J1012+5307
NO_SS_SHAPIRO
DELAY          1.5e-6
F0             190.2678376220576 1
F1             -6.2e-16
PEPOCH         55000
DM             9.0231 1
BINARY         CIRC
A1             0.5818172 1
PB             0.60467271355 1
TASC           55000.0712
`,
	},
	"dmx": {
		Description: "Piecewise dispersion offsets over three epochs",
		Par: `PSRJ           J1909-3744
ELONG          284.2270
ELAT           -15.1557
PLANET_SHAPIRO Y
F0             339.3156872184403 1
PEPOCH         55000
DM             10.3912
DMX_0001       0.0004 1
DMXR1_0001     54990
DMXR2_0001     55010
DMX_0002       -0.0002 1
DMXR1_0002     55010
DMXR2_0002     55030
DMXF1_0002     1400
DMX_0003       0.0001 1
DMXR1_0003     55030
DMXR2_0003     55050
`,
	},
}

func GetPreset(name string) *Preset {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return &p
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
