// Package synthetic builds a deterministic stand-in for the external inputs of
// a simulation run: a population, zone-to-zone skims, utility calculators,
// default model coefficients and observed mode shares. It exists for smoke runs
// and end-to-end tests; every value derives from a seed.
package synthetic

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/okian/tripsim/internal/domain/model"
)

// Household generation parameters.
const (
	meanExtraMembers = 1.4
	maxHouseholdSize = 8
	meanLogIncome    = 8.1
	sdLogIncome      = 0.5
	maxAutos         = 3
)

// Person generation parameters.
const (
	childShare      = 0.2
	seniorShare     = 0.18
	minAdultAge     = 18
	adultAgeRange   = 47
	seniorAgeRange  = 25
	childAgeRange   = 18
	employmentRate  = 0.72
	studentRate     = 0.45
	licenseRate     = 0.85
	seniorEmployed  = 0.1
	seniorLicensed  = 0.7
	seniorAge       = 65
	autoPerAdult    = 0.55
)

// Default population sizes.
const (
	DefaultHouseholds = 2000
	DefaultZones      = 40
	DefaultRegions    = 3
)

// PopulationOption configures Generate.
type PopulationOption func(*popConfig)

type popConfig struct {
	households int
	zones      int
	regions    int
}

// WithHouseholds sets the number of households.
func WithHouseholds(n int) PopulationOption {
	return func(c *popConfig) {
		if n > 0 {
			c.households = n
		}
	}
}

// WithZones sets the number of zones. Zones are numbered 1..n.
func WithZones(n int) PopulationOption {
	return func(c *popConfig) {
		if n > 0 {
			c.zones = n
		}
	}
}

// WithRegions sets the number of calibration regions. Regions are numbered 1..n.
func WithRegions(n int) PopulationOption {
	return func(c *popConfig) {
		if n > 0 {
			c.regions = n
		}
	}
}

// Population is a synthetic set of households and persons over numbered zones.
type Population struct {
	Households []*model.Household
	Persons    []*model.Person
	zones      int
	regions    int
}

// Generate builds a population from seed. Equal seeds and options give equal
// populations.
func Generate(seed uint64, opts ...PopulationOption) (*Population, error) {
	c := popConfig{households: DefaultHouseholds, zones: DefaultZones, regions: DefaultRegions}
	for _, opt := range opts {
		opt(&c)
	}
	if c.regions > c.zones {
		return nil, fmt.Errorf("%w: %d regions over %d zones", model.ErrConfiguration, c.regions, c.zones)
	}

	rng := rand.New(rand.NewPCG(seed, 0))
	extra := distuv.Poisson{Lambda: meanExtraMembers, Src: rng}
	income := distuv.LogNormal{Mu: meanLogIncome, Sigma: sdLogIncome, Src: rng}
	uni := distuv.Uniform{Min: 0, Max: 1, Src: rng}

	pop := &Population{
		Households: make([]*model.Household, 0, c.households),
		zones:      c.zones,
		regions:    c.regions,
	}
	personID := 0
	for h := 1; h <= c.households; h++ {
		size := min(1+int(extra.Rand()), maxHouseholdSize)
		hh := &model.Household{
			ID:     h,
			Zone:   model.ZoneID(1 + rng.IntN(c.zones)),
			Size:   size,
			Income: income.Rand(),
		}
		adults := 0
		for range size {
			personID++
			p := newPerson(personID, hh, uni)
			if p.Age >= minAdultAge {
				adults++
			}
			pop.Persons = append(pop.Persons, p)
		}
		for range adults {
			if hh.Autos < maxAutos && uni.Rand() < autoPerAdult {
				hh.Autos++
			}
		}
		pop.Households = append(pop.Households, hh)
	}
	return pop, nil
}

func newPerson(id int, hh *model.Household, uni distuv.Uniform) *model.Person {
	p := &model.Person{ID: id, Household: hh}
	switch r := uni.Rand(); {
	case r < childShare:
		p.Age = int(uni.Rand() * childAgeRange)
		p.Student = p.Age >= 6
	case r < childShare+seniorShare:
		p.Age = seniorAge + int(uni.Rand()*seniorAgeRange)
		p.Employed = uni.Rand() < seniorEmployed
		p.License = uni.Rand() < seniorLicensed
	default:
		p.Age = minAdultAge + int(uni.Rand()*adultAgeRange)
		p.Employed = uni.Rand() < employmentRate
		p.Student = !p.Employed && uni.Rand() < studentRate
		p.License = uni.Rand() < licenseRate
	}
	return p
}

// Zones returns the number of zones.
func (p *Population) Zones() int { return p.zones }

// Regions returns the number of calibration regions.
func (p *Population) Regions() int { return p.regions }

// Region implements modechoice.RegionLookup. Zones are dealt to regions in
// contiguous, non-empty blocks.
func (p *Population) Region(zone model.ZoneID) (model.RegionID, bool) {
	if zone < 1 || int(zone) > p.zones {
		return 0, false
	}
	return model.RegionID(1 + (int(zone)-1)*p.regions/p.zones), true
}
