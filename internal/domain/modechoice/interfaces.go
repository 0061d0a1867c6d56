// Package modechoice assigns a mode to every located trip: systematic
// utilities from a purpose-specific calculator, plus calibration factors,
// plus sampled noise, resolved by arg-max.
package modechoice

import (
	"github.com/okian/tripsim/internal/domain/model"
)

// TravelTimes returns the door-to-door travel time in minutes by mode.
type TravelTimes interface {
	TravelTime(m model.Mode, origin, destination model.ZoneID, peakHour bool) float64
}

// Distances returns the network distance in kilometres.
type Distances interface {
	Distance(origin, destination model.ZoneID) float64
}

// UtilityCalculator computes the systematic utility of every mode for one
// trip. Unavailable modes are absent, NaN or -Inf.
type UtilityCalculator interface {
	Utilities(purpose model.Purpose, hh *model.Household, p *model.Person,
		origin, destination model.ZoneID, tt TravelTimes, dist Distances, peakHour bool) model.Utilities
}

// UtilityFunc adapts a function to UtilityCalculator.
type UtilityFunc func(purpose model.Purpose, hh *model.Household, p *model.Person,
	origin, destination model.ZoneID, tt TravelTimes, dist Distances, peakHour bool) model.Utilities

// Utilities implements UtilityCalculator.
func (f UtilityFunc) Utilities(purpose model.Purpose, hh *model.Household, p *model.Person,
	origin, destination model.ZoneID, tt TravelTimes, dist Distances, peakHour bool,
) model.Utilities {
	return f(purpose, hh, p, origin, destination, tt, dist, peakHour)
}

// RegionLookup maps a zone to its calibration region.
type RegionLookup interface {
	Region(zone model.ZoneID) (model.RegionID, bool)
}
