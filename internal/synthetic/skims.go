package synthetic

import (
	"math"

	"github.com/okian/tripsim/internal/domain/model"
)

// Skim parameters. Zones sit on a line; the distance between zones i and j is
// proportional to |i-j| with a fixed intrazonal distance.
const (
	zoneSpacingKM    = 1.6
	intrazonalKM     = 0.8
	peakAutoFactor   = 1.35
	peakTransitWait  = 1.1
	transitAccessMin = 6
)

// speeds in km/h.
var speeds = map[model.Mode]float64{
	model.AutoDriver:    38,
	model.AutoPassenger: 38,
	model.Bicycle:       15,
	model.Bus:           20,
	model.Train:         55,
	model.TramOrMetro:   28,
	model.Walk:          4.8,
}

// Skims serves travel times and distances between numbered zones. It
// implements modechoice.TravelTimes and modechoice.Distances.
type Skims struct {
	zones int
}

// NewSkims returns skims over zones 1..zones.
func NewSkims(zones int) *Skims { return &Skims{zones: zones} }

// Distance returns the distance in km, or NaN for an unknown zone.
func (s *Skims) Distance(origin, destination model.ZoneID) float64 {
	if !s.known(origin) || !s.known(destination) {
		return math.NaN()
	}
	if origin == destination {
		return intrazonalKM
	}
	d := int(origin) - int(destination)
	if d < 0 {
		d = -d
	}
	return float64(d) * zoneSpacingKM
}

// TravelTime returns the in-vehicle plus access time in minutes, or NaN for
// an unknown zone or mode.
func (s *Skims) TravelTime(m model.Mode, origin, destination model.ZoneID, peakHour bool) float64 {
	v, ok := speeds[m]
	dist := s.Distance(origin, destination)
	if !ok || math.IsNaN(dist) {
		return math.NaN()
	}
	minutes := dist / v * 60
	switch m {
	case model.AutoDriver, model.AutoPassenger:
		if peakHour {
			minutes *= peakAutoFactor
		}
	case model.Bus, model.Train, model.TramOrMetro:
		minutes += transitAccessMin
		if peakHour {
			minutes *= peakTransitWait
		}
	}
	return minutes
}

func (s *Skims) known(z model.ZoneID) bool { return z >= 1 && int(z) <= s.zones }
