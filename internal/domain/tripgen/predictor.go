package tripgen

import (
	"fmt"
	"sort"

	"github.com/okian/tripsim/internal/domain/model"
)

// InterceptKey names the constant term of a coefficient table.
const InterceptKey = "intercept"

// Coefficients maps attribute names to regression coefficients. Tables are
// supplied as data and treated as opaque by the count models.
type Coefficients map[string]float64

// PredictorCalculator evaluates a linear predictor for one person.
type PredictorCalculator interface {
	Predict(hh *model.Household, p *model.Person, coef Coefficients) float64
}

// Attribute extracts one explanatory variable from a household and person.
type Attribute func(hh *model.Household, p *model.Person) float64

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// DefaultAttributes are the explanatory variables known to LinearPredictor.
var DefaultAttributes = map[string]Attribute{
	"hh_size":   func(hh *model.Household, _ *model.Person) float64 { return float64(hh.Size) },
	"autos":     func(hh *model.Household, _ *model.Person) float64 { return float64(hh.Autos) },
	"income_k":  func(hh *model.Household, _ *model.Person) float64 { return hh.Income / 1000 },
	"age":       func(_ *model.Household, p *model.Person) float64 { return float64(p.Age) },
	"employed":  func(_ *model.Household, p *model.Person) float64 { return boolFloat(p.Employed) },
	"student":   func(_ *model.Household, p *model.Person) float64 { return boolFloat(p.Student) },
	"license":   func(_ *model.Household, p *model.Person) float64 { return boolFloat(p.License) },
	"child":     func(_ *model.Household, p *model.Person) float64 { return boolFloat(p.Age < 18) },
	"senior":    func(_ *model.Household, p *model.Person) float64 { return boolFloat(p.Age >= 65) },
	"no_autos":  func(hh *model.Household, _ *model.Person) float64 { return boolFloat(hh.Autos == 0) },
	"autos_cap": autosPerCapita,
}

func autosPerCapita(hh *model.Household, _ *model.Person) float64 {
	if hh.Size <= 0 {
		return 0
	}
	return float64(hh.Autos) / float64(hh.Size)
}

// LinearPredictor sums coefficient × attribute over a fixed attribute set.
type LinearPredictor struct {
	attrs map[string]Attribute
	names []string
}

// NewLinearPredictor returns a predictor over attrs; nil means DefaultAttributes.
func NewLinearPredictor(attrs map[string]Attribute) *LinearPredictor {
	if attrs == nil {
		attrs = DefaultAttributes
	}
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return &LinearPredictor{attrs: attrs, names: names}
}

// Validate checks a coefficient table before any sampling: the intercept is
// required and every other key must name a known attribute.
func (lp *LinearPredictor) Validate(coef Coefficients) error {
	if _, ok := coef[InterceptKey]; !ok {
		return fmt.Errorf("%w: %q", ErrMissingCoefficient, InterceptKey)
	}
	for k := range coef {
		if k == InterceptKey {
			continue
		}
		if _, ok := lp.attrs[k]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCoefficient, k)
		}
	}
	return nil
}

// Predict implements PredictorCalculator. Attributes are visited in name
// order so the floating-point sum is reproducible.
func (lp *LinearPredictor) Predict(hh *model.Household, p *model.Person, coef Coefficients) float64 {
	sum := coef[InterceptKey]
	for _, name := range lp.names {
		c, ok := coef[name]
		if !ok || c == 0 {
			continue
		}
		sum += c * lp.attrs[name](hh, p)
	}
	return sum
}
