package errorterm_test

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/okian/tripsim/internal/domain/errorterm"
	"github.com/okian/tripsim/internal/domain/logit"
	"github.com/okian/tripsim/internal/domain/model"
)

const eulerGamma = 0.5772156649

// ksDistance is the Kolmogorov–Smirnov statistic of xs against the standard Gumbel CDF.
func ksDistance(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	ref := distuv.GumbelRight{Mu: 0, Beta: 1}
	n := float64(len(sorted))
	d := 0.0
	for i, x := range sorted {
		f := ref.CDF(x)
		d = math.Max(d, math.Max(math.Abs(float64(i+1)/n-f), math.Abs(f-float64(i)/n)))
	}
	return d
}

func draws(s *errorterm.Sampler, seed uint64, n int, modes ...model.Mode) [][]float64 {
	rng := rand.New(rand.NewPCG(seed, 1))
	out := make([][]float64, len(modes))
	for i := 0; i < n; i++ {
		noise := s.Sample(rng)
		for j, m := range modes {
			out[j] = append(out[j], noise[m])
		}
	}
	return out
}

func TestFlatSampler(t *testing.T) {
	Convey("Given a flat sampler over two modes", t, func() {
		s := errorterm.NewFlatSampler([]model.Mode{model.Bus, model.Walk})
		So(s.Nested(), ShouldBeFalse)

		Convey("When drawing many vectors", func() {
			cols := draws(s, 7, 50_000, model.Bus, model.Walk)

			Convey("Then each column should look like a standard Gumbel", func() {
				for _, col := range cols {
					So(stat.Mean(col, nil), ShouldAlmostEqual, eulerGamma, 0.03)
					So(ksDistance(col), ShouldBeLessThan, 0.02)
				}
			})

			Convey("And columns should be uncorrelated", func() {
				So(math.Abs(stat.Correlation(cols[0], cols[1], nil)), ShouldBeLessThan, 0.05)
			})
		})

		Convey("When two generators share a seed", func() {
			a := s.Sample(rand.New(rand.NewPCG(11, 3)))
			b := s.Sample(rand.New(rand.NewPCG(11, 3)))

			Convey("Then the vectors should be identical", func() {
				So(a, ShouldResemble, b)
			})
		})
	})
}

func TestNestedSampler(t *testing.T) {
	Convey("Given a nest with lambda one", t, func() {
		tree, err := logit.NewNestTree([]logit.Nest{
			{Modes: []model.Mode{model.Bus, model.Train}, Lambda: 1},
		}, nil)
		So(err, ShouldBeNil)
		s := errorterm.NewNestedSampler(tree)
		So(s.Nested(), ShouldBeTrue)

		Convey("Then members should be independent standard Gumbel draws", func() {
			cols := draws(s, 21, 50_000, model.Bus, model.Train)
			for _, col := range cols {
				So(stat.Mean(col, nil), ShouldAlmostEqual, eulerGamma, 0.03)
				So(ksDistance(col), ShouldBeLessThan, 0.02)
			}
			So(math.Abs(stat.Correlation(cols[0], cols[1], nil)), ShouldBeLessThan, 0.05)
		})
	})

	Convey("Given correlated nests", t, func() {
		for i, lambda := range []float64{0.3, 0.6, 0.9} {
			tree, err := logit.NewNestTree([]logit.Nest{
				{Modes: []model.Mode{model.Bus, model.Train}, Lambda: lambda},
			}, nil)
			So(err, ShouldBeNil)
			cols := draws(errorterm.NewNestedSampler(tree), uint64(40+i), 50_000, model.Bus, model.Train)

			Convey(fmt.Sprintf("Then members keep a standard Gumbel marginal at lambda %.1f", lambda), func() {
				for _, col := range cols {
					So(stat.Mean(col, nil), ShouldAlmostEqual, eulerGamma, 0.03)
					So(ksDistance(col), ShouldBeLessThan, 0.02)
				}
			})
		}
	})

	Convey("Given a correlated nest next to an independent one", t, func() {
		tree, err := logit.NewNestTree([]logit.Nest{
			{Modes: []model.Mode{model.AutoDriver, model.AutoPassenger}, Lambda: 0.3},
			{Modes: []model.Mode{model.Walk}, Lambda: 1},
		}, nil)
		So(err, ShouldBeNil)
		s := errorterm.NewNestedSampler(tree)

		cols := draws(s, 5, 20_000, model.AutoDriver, model.AutoPassenger, model.Walk)

		Convey("Then members of the nest should be positively correlated", func() {
			So(stat.Correlation(cols[0], cols[1], nil), ShouldBeGreaterThan, 0.3)
		})

		Convey("And draws across nests should be independent", func() {
			So(math.Abs(stat.Correlation(cols[0], cols[2], nil)), ShouldBeLessThan, 0.05)
		})

		Convey("And every draw should be finite", func() {
			bad := 0
			for _, col := range cols {
				for _, v := range col {
					if math.IsNaN(v) || math.IsInf(v, 0) {
						bad++
					}
				}
			}
			So(bad, ShouldEqual, 0)
		})
	})

	Convey("Given a nil tree", t, func() {
		s := errorterm.NewNestedSampler(nil)

		Convey("Then it should sample every mode independently", func() {
			noise := s.Sample(rand.New(rand.NewPCG(1, 1)))
			So(len(noise), ShouldEqual, len(model.Modes()))
			So(s.Nested(), ShouldBeFalse)
		})
	})
}

func TestStaticNoise(t *testing.T) {
	Convey("Given static noise for a purpose stream", t, func() {
		s := errorterm.NewFlatSampler(model.Modes())
		static := errorterm.NewStaticNoise(s, 99, uint64(model.HBW))

		Convey("Then the same person should always get the same vector", func() {
			So(static.For(17), ShouldResemble, static.For(17))
		})

		Convey("And different persons should get different vectors", func() {
			So(static.For(17)[model.Bus], ShouldNotEqual, static.For(18)[model.Bus])
		})

		Convey("And another stream should differ for the same person", func() {
			other := errorterm.NewStaticNoise(s, 99, uint64(model.HBO))
			So(other.For(17)[model.Bus], ShouldNotEqual, static.For(17)[model.Bus])
		})
	})
}
