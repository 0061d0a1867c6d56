package tripgen_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tripsim/internal/domain/model"
	"github.com/okian/tripsim/internal/domain/tripgen"
)

func sumPMF(pmf tripgen.PMF, upTo int) float64 {
	s := 0.0
	for i := 0; i <= upTo; i++ {
		s += pmf(i)
	}
	return s
}

func TestHurdleNB(t *testing.T) {
	Convey("Given a hurdle negative binomial model", t, func() {
		m, err := tripgen.NewHurdleNB(1.5)
		So(err, ShouldBeNil)
		So(m.Theta(), ShouldEqual, 1.5)
		So(m.MaxCount(), ShouldEqual, tripgen.DefaultMaxCount)

		Convey("When the binary utility is zero", func() {
			pmf := m.PMF(0, math.Log(2))

			Convey("Then P(0) is one half", func() {
				So(pmf(0), ShouldAlmostEqual, 0.5, 1e-12)
			})
		})

		Convey("When summing the distribution", func() {
			cases := [][2]float64{{0, 0}, {1.2, -0.5}, {-2, 1.7}, {3, 2.5}, {-0.3, -3}}
			for _, c := range cases {
				pmf := m.PMF(c[0], c[1])
				So(sumPMF(pmf, tripgen.DefaultMaxCount), ShouldAlmostEqual, 1.0, 1e-9)
				So(pmf(-1), ShouldEqual, 0)
			}
		})

		Convey("When the count mean is tiny but representable", func() {
			small, err := tripgen.NewHurdleNB(3)
			So(err, ShouldBeNil)

			Convey("Then the truncated distribution still sums to one", func() {
				for cu := -40.0; cu <= -20; cu += 2.5 {
					pmf := small.PMF(0, cu)
					So(sumPMF(pmf, tripgen.DefaultMaxCount), ShouldAlmostEqual, 1.0, 1e-9)
					So(pmf(1), ShouldAlmostEqual, 0.5, 1e-8)
				}
			})

			Convey("Then no draw runs past the cap", func() {
				rng := rand.New(rand.NewPCG(3, 5))
				failed, many := 0, 0
				for i := 0; i < 20000; i++ {
					cu := -20 - 20*rng.Float64()
					n, err := tripgen.Sample(rng, small, 0, cu)
					if err != nil {
						failed++
					}
					if n > 1 {
						many++
					}
				}
				So(failed, ShouldEqual, 0)
				So(many, ShouldEqual, 0)
			})
		})

		Convey("When the count mean vanishes", func() {
			pmf := m.PMF(0.4, -800)

			Convey("Then every positive outcome is a single trip", func() {
				phi := 1 / (1 + math.Exp(-0.4))
				So(pmf(0), ShouldAlmostEqual, phi, 1e-12)
				So(pmf(1), ShouldAlmostEqual, 1-phi, 1e-12)
				So(pmf(2), ShouldEqual, 0)
			})
		})

		Convey("When sampling many persons", func() {
			// θ=1, μ=2: E[count | count>0] = μ/(1-p^θ) = 3 with p=1/3, so the
			// hurdle mean at φ=0.5 is 1.5.
			nb, err := tripgen.NewHurdleNB(1)
			So(err, ShouldBeNil)
			rng := rand.New(rand.NewPCG(7, 11))
			const n = 40000
			total, zeros := 0, 0
			for i := 0; i < n; i++ {
				k, err := tripgen.Sample(rng, nb, 0, math.Log(2))
				if err != nil {
					t.Fatalf("sample %d: %v", i, err)
				}
				total += k
				if k == 0 {
					zeros++
				}
			}

			Convey("Then the empirical moments match", func() {
				So(float64(zeros)/n, ShouldAlmostEqual, 0.5, 0.015)
				So(float64(total)/n, ShouldAlmostEqual, 1.5, 0.06)
			})
		})
	})

	Convey("Given invalid dispersion values", t, func() {
		for _, theta := range []float64{0, -1, math.NaN(), math.Inf(1)} {
			_, err := tripgen.NewHurdleNB(theta)
			So(errors.Is(err, tripgen.ErrInvalidModel), ShouldBeTrue)
			So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
		}
	})
}

func TestHurdlePOLR(t *testing.T) {
	Convey("Given a hurdle ordered logit model with three cutpoints", t, func() {
		m, err := tripgen.NewHurdlePOLR([]float64{-1, 0.5, 2}, tripgen.WithMaxCount(10))
		So(err, ShouldBeNil)
		So(m.MaxCount(), ShouldEqual, 10)

		Convey("When the binary utility is zero", func() {
			pmf := m.PMF(0, 0.3)

			Convey("Then P(0) is one half and counts stop at four", func() {
				So(pmf(0), ShouldAlmostEqual, 0.5, 1e-12)
				So(pmf(5), ShouldEqual, 0)
				So(sumPMF(pmf, 4), ShouldAlmostEqual, 1.0, 1e-12)
			})

			Convey("Then count one follows the first cutpoint", func() {
				want := 0.5 * (1 / (1 + math.Exp(-(-1 - 0.3))))
				So(pmf(1), ShouldAlmostEqual, want, 1e-12)
			})
		})

		Convey("When the predictor grows", func() {
			low := m.PMF(0, -2)
			high := m.PMF(0, 4)

			Convey("Then mass moves to the top count", func() {
				So(high(4), ShouldBeGreaterThan, low(4))
				So(high(1), ShouldBeLessThan, low(1))
			})
		})
	})

	Convey("Given invalid cutpoints", t, func() {
		bad := [][]float64{
			nil,
			{1, 1},
			{2, 1},
			{0, math.NaN()},
			{math.Inf(-1), 0},
		}
		for _, c := range bad {
			_, err := tripgen.NewHurdlePOLR(c)
			So(errors.Is(err, tripgen.ErrInvalidModel), ShouldBeTrue)
		}
	})
}

func TestInvert(t *testing.T) {
	Convey("Given a three point distribution", t, func() {
		pmf := tripgen.PMF(func(i int) float64 {
			switch i {
			case 0:
				return 0.2
			case 1:
				return 0.5
			case 2:
				return 0.3
			}
			return 0
		})

		Convey("Then the first count whose cumulative exceeds the draw is returned", func() {
			for u, want := range map[float64]int{0: 0, 0.19: 0, 0.25: 1, 0.69: 1, 0.71: 2, 0.999: 2} {
				got, err := tripgen.Invert(u, pmf, 10)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
			}
		})
	})

	Convey("Given a model whose mass sits far beyond the cap", t, func() {
		m, err := tripgen.NewHurdleNB(0.5, tripgen.WithMaxCount(5))
		So(err, ShouldBeNil)
		pmf := m.PMF(-50, 10)

		Convey("Then the walk stops with a reportable error", func() {
			n, err := tripgen.Invert(0.99, pmf, m.MaxCount())
			So(errors.Is(err, tripgen.ErrCountNotConverged), ShouldBeTrue)
			So(n, ShouldEqual, 5)
			So(errors.Is(err, model.ErrConfiguration), ShouldBeFalse)
		})
	})

	Convey("Given a NaN predictor", t, func() {
		m, _ := tripgen.NewHurdleNB(1)
		_, err := tripgen.Sample(rand.New(rand.NewPCG(1, 1)), m, math.NaN(), 0)
		So(err, ShouldEqual, tripgen.ErrInvalidPredictor)
	})
}
