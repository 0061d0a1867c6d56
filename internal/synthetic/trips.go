package synthetic

import (
	"math/rand/v2"

	"github.com/okian/tripsim/internal/domain/model"
)

// Trip materialisation parameters.
const (
	// one trip in unlocatedEvery has no destination zone.
	unlocatedEvery   = 60
	peakShareCommute = 0.7
	peakShareOther   = 0.3
	localRadiusZones = 4
)

// Trips turns count results into trips. Results are visited in order and trip
// ids are assigned sequentially from 1, so equal inputs give equal trips.
// Home-based trips start in the home zone; non-home-based trips start in a
// zone near home. A fixed fraction of trips is left without a destination.
func (p *Population) Trips(seed uint64, results []model.TripCountResult) []*model.Trip {
	byID := make(map[int]*model.Person, len(p.Persons))
	for _, person := range p.Persons {
		byID[person.ID] = person
	}

	rng := rand.New(rand.NewPCG(seed, 1))
	var trips []*model.Trip
	for _, r := range results {
		person, ok := byID[r.PersonID]
		if !ok {
			continue
		}
		home := person.Household.Zone
		for range r.Count {
			t := &model.Trip{
				ID:       len(trips) + 1,
				Person:   person,
				Purpose:  r.Purpose,
				Origin:   home,
				PeakHour: rng.Float64() < peakShare(r.Purpose),
				Mode:     model.ModeNone,
			}
			if !homeBased(r.Purpose) {
				t.Origin = p.near(rng, home)
			}
			t.Destination = p.destination(rng, r.Purpose, t.Origin)
			if t.ID%unlocatedEvery == 0 {
				t.Destination = model.NoZone
			}
			trips = append(trips, t)
		}
	}
	return trips
}

func homeBased(purpose model.Purpose) bool {
	return purpose != model.NHBW && purpose != model.NHBO
}

func peakShare(purpose model.Purpose) float64 {
	switch purpose {
	case model.HBW, model.HBE, model.NHBW:
		return peakShareCommute
	default:
		return peakShareOther
	}
}

// destination draws uniformly over all zones for work and education, and
// near the origin otherwise.
func (p *Population) destination(rng *rand.Rand, purpose model.Purpose, origin model.ZoneID) model.ZoneID {
	switch purpose {
	case model.HBW, model.HBE, model.NHBW:
		return model.ZoneID(1 + rng.IntN(p.zones))
	default:
		return p.near(rng, origin)
	}
}

func (p *Population) near(rng *rand.Rand, zone model.ZoneID) model.ZoneID {
	z := int(zone) + rng.IntN(2*localRadiusZones+1) - localRadiusZones
	return model.ZoneID(max(1, min(p.zones, z)))
}
