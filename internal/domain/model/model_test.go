package model_test

import (
	"errors"
	"math"
	"testing"

	model "github.com/okian/tripsim/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestModes(t *testing.T) {
	convey.Convey("Given the mode enumeration", t, func() {
		modes := model.Modes()

		convey.Convey("Then it should list every mode in declaration order", func() {
			convey.So(len(modes), convey.ShouldEqual, 7)
			convey.So(modes[0], convey.ShouldEqual, model.AutoDriver)
			convey.So(modes[len(modes)-1], convey.ShouldEqual, model.Walk)
		})

		convey.Convey("When parsing names", func() {
			for _, m := range modes {
				parsed, err := model.ParseMode(m.String())
				convey.So(err, convey.ShouldBeNil)
				convey.So(parsed, convey.ShouldEqual, m)
			}

			parsed, err := model.ParseMode(" TRAMORMETRO ")
			convey.So(err, convey.ShouldBeNil)
			convey.So(parsed, convey.ShouldEqual, model.TramOrMetro)
		})

		convey.Convey("When parsing an unknown name", func() {
			_, err := model.ParseMode("hovercraft")

			convey.Convey("Then it should return ErrUnknownValue", func() {
				convey.So(errors.Is(err, model.ErrUnknownValue), convey.ShouldBeTrue)
			})
		})

		convey.Convey("Then ModeNone should print as none and be invalid", func() {
			convey.So(model.ModeNone.String(), convey.ShouldEqual, "none")
			convey.So(model.ModeNone.Valid(), convey.ShouldBeFalse)
		})
	})
}

func TestPurposes(t *testing.T) {
	convey.Convey("Given the purpose enumeration", t, func() {
		convey.So(len(model.Purposes()), convey.ShouldEqual, 6)

		p, err := model.ParsePurpose("nhbo")
		convey.So(err, convey.ShouldBeNil)
		convey.So(p, convey.ShouldEqual, model.NHBO)

		var q model.Purpose
		convey.So(q.UnmarshalText([]byte("HBS")), convey.ShouldBeNil)
		convey.So(q, convey.ShouldEqual, model.HBS)

		_, err = model.ParsePurpose("leisure")
		convey.So(errors.Is(err, model.ErrUnknownValue), convey.ShouldBeTrue)
	})
}

func TestUtilities(t *testing.T) {
	convey.Convey("Given utilities with unavailable alternatives", t, func() {
		u := model.Utilities{
			model.AutoDriver: 1.5,
			model.Bus:        math.NaN(),
			model.Walk:       math.Inf(-1),
		}

		convey.Convey("When normalizing", func() {
			u.Normalize()

			convey.Convey("Then NaN should become -Inf", func() {
				convey.So(math.IsInf(u[model.Bus], -1), convey.ShouldBeTrue)
			})

			convey.Convey("And only finite alternatives should be available", func() {
				convey.So(u.Available(model.AutoDriver), convey.ShouldBeTrue)
				convey.So(u.Available(model.Bus), convey.ShouldBeFalse)
				convey.So(u.Available(model.Walk), convey.ShouldBeFalse)
				convey.So(u.Available(model.Train), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When cloning", func() {
			c := u.Clone()
			c[model.AutoDriver] = 0

			convey.Convey("Then the original should be untouched", func() {
				convey.So(u[model.AutoDriver], convey.ShouldEqual, 1.5)
			})
		})
	})
}

func TestTripLocated(t *testing.T) {
	convey.Convey("Given trips with and without trip ends", t, func() {
		convey.So((&model.Trip{Origin: 3, Destination: 7}).Located(), convey.ShouldBeTrue)
		convey.So((&model.Trip{Origin: model.NoZone, Destination: 7}).Located(), convey.ShouldBeFalse)
		convey.So((&model.Trip{Origin: 3}).Located(), convey.ShouldBeFalse)
	})
}
