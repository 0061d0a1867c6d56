package synthetic

import (
	"math"

	"github.com/okian/tripsim/internal/domain/model"
	"github.com/okian/tripsim/internal/domain/modechoice"
)

// Cost and availability parameters of the synthetic utility functions.
const (
	autoCostPerKM   = 0.22
	transitFare     = 2.4
	maxWalkKM       = 6
	maxBicycleKM    = 18
	minTrainKM      = 5
	minBicycleAge   = 8
	incomeReference = 3000
	metroRegion     = model.RegionID(1)
)

// utilityCoefficients holds the coefficients of one purpose's linear utility.
type utilityCoefficients struct {
	asc  map[model.Mode]float64
	time float64
	cost float64
}

var purposeCoefficients = map[model.Purpose]utilityCoefficients{
	model.HBW: {
		asc:  map[model.Mode]float64{model.AutoPassenger: -1.6, model.Bicycle: -0.9, model.Bus: -0.6, model.Train: -0.3, model.TramOrMetro: -0.2, model.Walk: 0.4},
		time: -0.045, cost: -0.35,
	},
	model.HBE: {
		asc:  map[model.Mode]float64{model.AutoPassenger: 0.2, model.Bicycle: 0.1, model.Bus: 0.3, model.Train: -0.4, model.TramOrMetro: 0.1, model.Walk: 1.1},
		time: -0.06, cost: -0.5,
	},
	model.HBS: {
		asc:  map[model.Mode]float64{model.AutoPassenger: -0.8, model.Bicycle: -0.7, model.Bus: -1.1, model.Train: -1.6, model.TramOrMetro: -0.9, model.Walk: 0.6},
		time: -0.07, cost: -0.3,
	},
	model.HBO: {
		asc:  map[model.Mode]float64{model.AutoPassenger: -0.5, model.Bicycle: -0.8, model.Bus: -1.0, model.Train: -1.2, model.TramOrMetro: -0.8, model.Walk: 0.5},
		time: -0.055, cost: -0.3,
	},
	model.NHBW: {
		asc:  map[model.Mode]float64{model.AutoPassenger: -1.8, model.Bicycle: -1.2, model.Bus: -0.9, model.Train: -0.6, model.TramOrMetro: -0.5, model.Walk: 0.3},
		time: -0.05, cost: -0.25,
	},
	model.NHBO: {
		asc:  map[model.Mode]float64{model.AutoPassenger: -0.7, model.Bicycle: -1.0, model.Bus: -1.2, model.Train: -1.5, model.TramOrMetro: -1.0, model.Walk: 0.4},
		time: -0.06, cost: -0.3,
	},
}

// Calculators returns one utility calculator per purpose. Metro is only
// offered for trips that start and end in the first region.
func Calculators(regions modechoice.RegionLookup) map[model.Purpose]modechoice.UtilityCalculator {
	out := make(map[model.Purpose]modechoice.UtilityCalculator, len(purposeCoefficients))
	for purpose, c := range purposeCoefficients {
		out[purpose] = modechoice.UtilityFunc(func(_ model.Purpose, hh *model.Household, p *model.Person,
			origin, destination model.ZoneID, tt modechoice.TravelTimes, dist modechoice.Distances, peakHour bool,
		) model.Utilities {
			return c.utilities(regions, hh, p, origin, destination, tt, dist, peakHour)
		})
	}
	return out
}

func (c utilityCoefficients) utilities(regions modechoice.RegionLookup, hh *model.Household, p *model.Person,
	origin, destination model.ZoneID, tt modechoice.TravelTimes, dist modechoice.Distances, peakHour bool,
) model.Utilities {
	km := dist.Distance(origin, destination)
	incomeScale := incomeReference / math.Max(hh.Income, 1)

	u := make(model.Utilities, len(model.Modes()))
	for _, m := range model.Modes() {
		v := c.asc[m] + c.time*tt.TravelTime(m, origin, destination, peakHour)
		switch m {
		case model.AutoDriver, model.AutoPassenger:
			v += c.cost * incomeScale * autoCostPerKM * km
		case model.Bus, model.Train, model.TramOrMetro:
			v += c.cost * incomeScale * transitFare
		}
		u[m] = v
	}

	if !p.License || hh.Autos == 0 {
		u[model.AutoDriver] = math.NaN()
	}
	if km > maxWalkKM {
		u[model.Walk] = math.Inf(-1)
	}
	if km > maxBicycleKM || p.Age < minBicycleAge {
		u[model.Bicycle] = math.Inf(-1)
	}
	if km < minTrainKM {
		u[model.Train] = math.NaN()
	}
	ro, okO := regions.Region(origin)
	rd, okD := regions.Region(destination)
	if !okO || !okD || ro != metroRegion || rd != metroRegion {
		delete(u, model.TramOrMetro)
	}
	return u
}
