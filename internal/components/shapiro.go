package components

import (
	"math"

	"github.com/san-kum/pulsetiming/internal/param"
	"github.com/san-kum/pulsetiming/internal/timing"
)

const (
	// SunTime is GM☉/c³ in seconds.
	SunTime = 4.925490947e-6
	// JupiterTime is GM♃/c³ in seconds.
	JupiterTime = 4.702819050e-9

	j2000MJD    = 51544.5
	yearDays    = 365.25
	jupiterDays = 4332.59
	minCosGap   = 1e-12
)

// SolarShapiro is -2·T·ln(1 - cos θ) for the Sun, with θ the elongation of
// the pulsar in a circular ecliptic orbit of the Earth. PLANET_SHAPIRO adds
// the same term for Jupiter.
type SolarShapiro struct {
	*timing.Base

	ELONG         *param.Param
	ELAT          *param.Param
	PlanetShapiro *param.Param
}

// OptOutKey disables the component during model assembly.
const OptOutKey = "NO_SS_SHAPIRO"

func NewSolarShapiro() *SolarShapiro {
	s := &SolarShapiro{
		Base:          timing.NewBase("SolarShapiro", "solar_system_shapiro", timing.DelayKind),
		ELONG:         param.NewAngle("ELONG", "Ecliptic longitude", param.WithAliases("LAMBDA")),
		ELAT:          param.NewAngle("ELAT", "Ecliptic latitude", param.WithAliases("BETA")),
		PlanetShapiro: param.NewBool("PLANET_SHAPIRO", "Include planetary Shapiro delays", param.WithValue(false)),
	}
	for _, p := range []*param.Param{s.ELONG, s.ELAT, s.PlanetShapiro} {
		_ = s.AddParam(p)
	}
	_ = s.SetSpecialParams("PLANET_SHAPIRO")

	s.AddDelayFunc(s.delay)
	_ = s.RegisterDerivative("ELONG", s.dELONG)
	_ = s.RegisterDerivative("ELAT", s.dELAT)
	return s
}

// AppliesTo is true unless the par file opts out.
func (s *SolarShapiro) AppliesTo(records timing.Records) bool {
	return !records.Has(OptOutKey)
}

type body struct {
	t      float64
	period float64
}

func (s *SolarShapiro) bodies() []body {
	out := []body{{SunTime, yearDays}}
	if s.PlanetShapiro.Flag() {
		out = append(out, body{JupiterTime, jupiterDays})
	}
	return out
}

// geometry returns cos θ and the partial derivatives of cos θ with respect
// to ELONG and ELAT, in radians, for one body.
func (s *SolarShapiro) geometry(mjd float64, b body) (c, dLon, dLat float64) {
	lon := s.ELONG.Float() * math.Pi / 180
	lat := s.ELAT.Float() * math.Pi / 180
	sunLon := 2 * math.Pi * (mjd - j2000MJD) / b.period
	delta := sunLon - lon
	c = math.Cos(lat) * math.Cos(delta)
	dLon = math.Cos(lat) * math.Sin(delta)
	dLat = -math.Sin(lat) * math.Cos(delta)
	return c, dLon, dLat
}

func gap(c float64) float64 {
	return math.Max(1-c, minCosGap)
}

func (s *SolarShapiro) delay(ev *timing.Eval, _ []float64) ([]float64, error) {
	mjds := ev.Batch().MJDs()
	out := make([]float64, len(mjds))
	for _, b := range s.bodies() {
		for i, t := range mjds {
			c, _, _ := s.geometry(t, b)
			out[i] += -2 * b.t * math.Log(gap(c))
		}
	}
	return out, nil
}

func (s *SolarShapiro) partial(ev *timing.Eval, lat bool) []float64 {
	mjds := ev.Batch().MJDs()
	out := make([]float64, len(mjds))
	for _, b := range s.bodies() {
		for i, t := range mjds {
			c, dLon, dLat := s.geometry(t, b)
			dc := dLon
			if lat {
				dc = dLat
			}
			out[i] += 2 * b.t * dc / gap(c) * math.Pi / 180
		}
	}
	return out
}

// dELONG and dELAT are per degree.
func (s *SolarShapiro) dELONG(ev *timing.Eval, _ string, _ []float64) ([]float64, error) {
	return s.partial(ev, false), nil
}

func (s *SolarShapiro) dELAT(ev *timing.Eval, _ string, _ []float64) ([]float64, error) {
	return s.partial(ev, true), nil
}
