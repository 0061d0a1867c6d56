package calibration_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tripsim/internal/domain/calibration"
	"github.com/okian/tripsim/internal/domain/model"
)

func tallyOf(region model.RegionID, purpose model.Purpose, counts map[model.Mode]int) *calibration.Tally {
	t := calibration.NewTally()
	for _, m := range model.Modes() {
		for i := 0; i < counts[m]; i++ {
			t.Add(region, purpose, m)
		}
	}
	return t
}

func TestObservedShares(t *testing.T) {
	Convey("Given observed-share rows", t, func() {
		Convey("When they are valid", func() {
			obs, err := calibration.NewObservedShares([]calibration.Observation{
				{Region: 2, Purpose: model.HBW, Mode: model.Walk, Share: 0.1},
				{Region: 1, Purpose: model.HBW, Mode: model.Bus, Share: 0.3, Factor: -0.2},
				{Region: 1, Purpose: model.HBW, Mode: model.AutoDriver, Share: 0.6},
			})
			So(err, ShouldBeNil)

			Convey("Then keys are sorted and starting factors are kept", func() {
				keys := obs.Keys()
				So(len(keys), ShouldEqual, 3)
				So(keys[0], ShouldResemble, calibration.Key{Region: 1, Purpose: model.HBW, Mode: model.AutoDriver})
				So(keys[2].Region, ShouldEqual, model.RegionID(2))
				So(obs.InitialFactors().Get(1, model.HBW, model.Bus), ShouldEqual, -0.2)
			})
		})

		Convey("When a row is invalid", func() {
			bad := map[string][]calibration.Observation{
				"share above one": {{Region: 1, Purpose: model.HBW, Mode: model.Bus, Share: 1.2}},
				"negative share":  {{Region: 1, Purpose: model.HBW, Mode: model.Bus, Share: -0.1}},
				"unknown mode":    {{Region: 1, Purpose: model.HBW, Mode: model.ModeNone, Share: 0.1}},
				"duplicate": {
					{Region: 1, Purpose: model.HBW, Mode: model.Bus, Share: 0.1},
					{Region: 1, Purpose: model.HBW, Mode: model.Bus, Share: 0.2},
				},
			}
			for name, rows := range bad {
				Convey("Then "+name+" is a configuration error", func() {
					_, err := calibration.NewObservedShares(rows)
					So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
				})
			}
		})
	})
}

func TestTally(t *testing.T) {
	Convey("Given two partial tallies", t, func() {
		a := tallyOf(1, model.HBW, map[model.Mode]int{model.Bus: 2, model.Walk: 1})
		b := tallyOf(1, model.HBW, map[model.Mode]int{model.Bus: 1, model.Walk: 4})
		b.Add(3, model.HBS, model.Train)

		a.Merge(b)
		a.Merge(nil)

		Convey("Then merged counts and shares add up", func() {
			k := calibration.Key{Region: 1, Purpose: model.HBW, Mode: model.Bus}
			So(a.Count(k), ShouldEqual, 3)
			So(a.Trips(k.Stratum()), ShouldEqual, 8)
			So(a.Share(k), ShouldAlmostEqual, 3.0/8, 1e-12)
			So(a.Total(), ShouldEqual, 9)
		})

		Convey("Then an empty stratum has share zero", func() {
			So(a.Share(calibration.Key{Region: 9, Purpose: model.HBO, Mode: model.Bus}), ShouldEqual, 0)
		})
	})
}

func TestLoopUpdate(t *testing.T) {
	ctx := context.Background()

	Convey("Given an observed bus share of 0.30", t, func() {
		obs, err := calibration.NewObservedShares([]calibration.Observation{
			{Region: 1, Purpose: model.HBW, Mode: model.Bus, Share: 0.30},
			{Region: 1, Purpose: model.HBW, Mode: model.AutoDriver, Share: 0.70},
			{Region: 2, Purpose: model.HBW, Mode: model.Bus, Share: 0.25},
		})
		So(err, ShouldBeNil)
		loop := calibration.NewLoop(obs)

		Convey("When the simulated share is 0.20", func() {
			it := loop.Update(ctx, tallyOf(1, model.HBW, map[model.Mode]int{model.Bus: 20, model.AutoDriver: 80}))

			Convey("Then the bus factor grows by 0.10", func() {
				So(loop.Factors().Get(1, model.HBW, model.Bus), ShouldAlmostEqual, 0.10, 1e-12)
				So(loop.Factors().Get(1, model.HBW, model.AutoDriver), ShouldAlmostEqual, -0.10, 1e-12)
			})

			Convey("Then the stratum without trips moves fully to its observed share", func() {
				So(loop.Factors().Get(2, model.HBW, model.Bus), ShouldAlmostEqual, 0.25, 1e-12)
				So(it.MaxGap, ShouldAlmostEqual, 0.25, 1e-12)
			})

			Convey("Then one diagnostic row per observed key is written", func() {
				So(it.Number, ShouldEqual, 1)
				So(len(it.Rows), ShouldEqual, 3)
				So(it.Rows[0].Mode, ShouldEqual, model.AutoDriver)
				So(it.Rows[1].Simulated, ShouldAlmostEqual, 0.20, 1e-12)
				So(it.Rows[1].Trips, ShouldEqual, 100)
				So(it.Rows[2].Trips, ShouldEqual, 0)
				So(loop.Diagnostics(), ShouldResemble, it.Rows)
			})

			Convey("When a second iteration runs", func() {
				loop.Update(ctx, tallyOf(1, model.HBW, map[model.Mode]int{model.Bus: 30, model.AutoDriver: 70}))

				Convey("Then factors accumulate and diagnostics append", func() {
					So(loop.Iterations(), ShouldEqual, 2)
					So(loop.Factors().Get(1, model.HBW, model.Bus), ShouldAlmostEqual, 0.10, 1e-12)
					So(loop.Factors().Get(2, model.HBW, model.Bus), ShouldAlmostEqual, 0.50, 1e-12)
					So(len(loop.Diagnostics()), ShouldEqual, 6)
				})
			})
		})
	})
}

func TestLoopRun(t *testing.T) {
	Convey("Given a round whose bus share follows its factor", t, func() {
		obs, err := calibration.NewObservedShares([]calibration.Observation{
			{Region: 1, Purpose: model.HBS, Mode: model.Bus, Share: 0.4},
		})
		So(err, ShouldBeNil)
		loop := calibration.NewLoop(obs)

		rounds := 0
		round := func(_ context.Context, f *calibration.FactorTable) (*calibration.Tally, error) {
			rounds++
			share := 0.1 + f.Get(1, model.HBS, model.Bus)
			bus := int(share*1000 + 0.5)
			return tallyOf(1, model.HBS, map[model.Mode]int{model.Bus: bus, model.Walk: 1000 - bus}), nil
		}

		Convey("When running three iterations", func() {
			final, err := loop.Run(context.Background(), 3, round)
			So(err, ShouldBeNil)

			Convey("Then each iteration is followed by one final round", func() {
				So(rounds, ShouldEqual, 4)
				So(loop.Iterations(), ShouldEqual, 3)
				So(final.Share(calibration.Key{Region: 1, Purpose: model.HBS, Mode: model.Bus}), ShouldAlmostEqual, 0.4, 1e-3)
				So(loop.MaxGap(), ShouldAlmostEqual, 0, 1e-3)
			})
		})

		Convey("When the round fails", func() {
			boom := errors.New("boom")
			_, err := loop.Run(context.Background(), 2, func(context.Context, *calibration.FactorTable) (*calibration.Tally, error) {
				return nil, boom
			})
			So(errors.Is(err, boom), ShouldBeTrue)
			So(loop.Iterations(), ShouldEqual, 0)
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := loop.Run(ctx, 2, round)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(rounds, ShouldEqual, 0)
		})

		Convey("When no round is given", func() {
			_, err := loop.Run(context.Background(), 1, nil)
			So(err, ShouldEqual, calibration.ErrNoRound)
		})
	})

	Convey("Given a loop seeded from an existing factor table", t, func() {
		obs, _ := calibration.NewObservedShares([]calibration.Observation{{Region: 1, Purpose: model.HBO, Mode: model.Walk, Share: 0.5}})
		table := calibration.NewFactorTable()
		table.Set(calibration.Key{Region: 1, Purpose: model.HBO, Mode: model.Walk}, 1.5)
		loop := calibration.NewLoop(obs, calibration.WithFactors(table))

		Convey("Then updates continue from that table", func() {
			loop.Update(context.Background(), tallyOf(1, model.HBO, map[model.Mode]int{model.Walk: 1, model.Bus: 1}))
			So(table.Get(1, model.HBO, model.Walk), ShouldAlmostEqual, 1.5, 1e-12)
			So(loop.Factors(), ShouldEqual, table)
		})
	})
}

func TestFactorTableApply(t *testing.T) {
	Convey("Given a factor table", t, func() {
		table := calibration.NewFactorTable()
		table.Set(calibration.Key{Region: 4, Purpose: model.NHBW, Mode: model.Train}, 0.7)

		Convey("Then Apply adds factors of the matching stratum only", func() {
			u := model.Utilities{model.Train: 1, model.Walk: -1}
			table.Apply(4, model.NHBW, u)
			So(u[model.Train], ShouldAlmostEqual, 1.7, 1e-12)
			So(u[model.Walk], ShouldEqual, -1)

			other := model.Utilities{model.Train: 1}
			table.Apply(5, model.NHBW, other)
			So(other[model.Train], ShouldEqual, 1)
		})

		Convey("Then Snapshot returns sorted keys and a copy", func() {
			table.Set(calibration.Key{Region: 1, Purpose: model.HBW, Mode: model.Bus}, -0.1)
			keys, values := table.Snapshot()
			So(keys[0].Region, ShouldEqual, model.RegionID(1))
			values[keys[0]] = 99
			So(table.Get(1, model.HBW, model.Bus), ShouldEqual, -0.1)
			So(table.Len(), ShouldEqual, 2)
		})
	})
}
