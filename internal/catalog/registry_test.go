package catalog

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/pulsetiming/internal/config"
	"github.com/san-kum/pulsetiming/internal/timing"
	"github.com/san-kum/pulsetiming/internal/toa"
)

const binaryPar = `PSRJ     J1012+5307
F0       190.2678 1
F1       -6.2e-16
PEPOCH   55000
DM       9.02
BINARY   CIRC
A1       0.58
PB       0.604
TASC     55000.1
`

func quiet() timing.Option {
	return timing.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func componentNames(m *timing.Model) []string {
	var out []string
	for _, c := range m.Components() {
		out = append(out, c.Name())
	}
	return out
}

func TestRegistry_New(t *testing.T) {
	r := NewRegistry()
	for _, name := range r.Names() {
		c, err := r.New(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())
	}

	_, err := r.New("BinaryDD")
	assert.ErrorIs(t, err, ErrUnknownComponent)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	err := r.Register("Spindown", nil)
	assert.ErrorIs(t, err, ErrDuplicateComponent)

	n := len(r.Names())
	require.NoError(t, r.Register("Jump", r.ctors["ConstantDelay"]))
	assert.Len(t, r.Names(), n+1)
	assert.Equal(t, "Jump", r.Names()[n])
	assert.IsNonDecreasing(t, r.SortedNames())
}

func TestRegistry_Select(t *testing.T) {
	r := NewRegistry()
	recs, err := timing.ParseRecords(strings.NewReader(binaryPar))
	require.NoError(t, err)

	var got []string
	for _, c := range r.Select(recs) {
		got = append(got, c.Name())
	}
	assert.Equal(t, []string{"SolarShapiro", "Dispersion", "BinaryCircular", "Spindown"}, got)

	recs, err = timing.ParseRecords(strings.NewReader("F0 1\nNO_SS_SHAPIRO\nPHOFF 0.1\n"))
	require.NoError(t, err)
	got = got[:0]
	for _, c := range r.Select(recs) {
		got = append(got, c.Name())
	}
	assert.Equal(t, []string{"Spindown", "PhaseOffset"}, got)
}

func TestBuildModel(t *testing.T) {
	m, err := NewRegistry().BuildModel(strings.NewReader(binaryPar), quiet())
	require.NoError(t, err)

	assert.Equal(t, "J1012+5307", m.Name)
	assert.ElementsMatch(t, []string{"SolarShapiro", "Dispersion", "BinaryCircular", "Spindown"}, componentNames(m))
	assert.Empty(t, m.Warnings())
	assert.Equal(t, []string{"F0"}, m.FreeParams())

	pb, err := m.Param("PB")
	require.NoError(t, err)
	assert.InDelta(t, 0.604, pb.Float(), 1e-12)

	b := toa.FromTimes([]float64{55000.2 * toa.SecondsPerDay, 55000.5 * toa.SecondsPerDay}, 1400)
	delay, err := m.TotalDelay(b)
	require.NoError(t, err)
	assert.Len(t, delay, 2)
}

func TestBuildModel_SetupFailure(t *testing.T) {
	_, err := NewRegistry().BuildModel(strings.NewReader("PSR J0000\nBINARY CIRC\nA1 1\nF0 1\n"), quiet())
	assert.ErrorIs(t, err, timing.ErrMissingParameter)
}

func TestBuildModel_Presets(t *testing.T) {
	r := NewRegistry()
	for _, name := range config.ListPresets() {
		t.Run(name, func(t *testing.T) {
			m, err := r.BuildModel(strings.NewReader(config.GetPreset(name).Par), quiet())
			require.NoError(t, err)
			assert.Empty(t, m.Warnings())
			assert.NotEmpty(t, m.FreeParams())

			dm, err := m.DesignMatrix(toa.FromTimes([]float64{55001 * toa.SecondsPerDay, 55020 * toa.SecondsPerDay}, 1400), timing.DefaultDesignOptions())
			require.NoError(t, err)
			assert.Equal(t, len(m.FreeParams())+1, dm.Cols())
		})
	}
}
