package coefficients_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tripsim/internal/adapters/coefficients"
	"github.com/okian/tripsim/internal/domain/logit"
	"github.com/okian/tripsim/internal/domain/model"
	"github.com/okian/tripsim/internal/domain/tripgen"
)

const validFile = `
purposes:
  HBS:
    model: polr
    cutpoints: [-0.5, 1.0, 2.5]
    binary: {intercept: 0.4}
    count: {intercept: 0, age: 0.01}
  hbw:
    model: NB
    theta: 1.3
    max_count: 40
    binary:
      intercept: -0.2
      employed: -2
    count:
      intercept: 0.1
    nests:
      - modes: [autoDriver, autoPassenger]
        lambda: 0.6
      - modes: [bus, train, tramOrMetro]
        lambda: 0.4
      - modes: [bicycle, walk]
        lambda: 1
`

func TestDecode(t *testing.T) {
	Convey("Given a valid model file", t, func() {
		m, err := coefficients.Decode(strings.NewReader(validFile), coefficients.WithMaxCount(100))
		So(err, ShouldBeNil)

		Convey("Then purposes come back in enumeration order with their models", func() {
			So(len(m.Purposes), ShouldEqual, 2)
			So(m.Purposes[0].Purpose, ShouldEqual, model.HBW)
			So(m.Purposes[1].Purpose, ShouldEqual, model.HBS)

			nb, ok := m.Purposes[0].Count.(*tripgen.HurdleNB)
			So(ok, ShouldBeTrue)
			So(nb.Theta(), ShouldEqual, 1.3)
			So(nb.MaxCount(), ShouldEqual, 40)
			So(m.Purposes[0].Binary["employed"], ShouldEqual, -2)

			polr, ok := m.Purposes[1].Count.(*tripgen.HurdlePOLR)
			So(ok, ShouldBeTrue)
			So(polr.MaxCount(), ShouldEqual, 100)
		})

		Convey("Then only the purpose with nests gets a tree", func() {
			So(m.Nests, ShouldContainKey, model.HBW)
			So(m.Nests, ShouldNotContainKey, model.HBS)
			idx, ok := m.Nests[model.HBW].NestOf(model.Train)
			So(ok, ShouldBeTrue)
			So(idx, ShouldEqual, 1)
		})

		Convey("Then the decoded models build a generator", func() {
			_, err := tripgen.NewGenerator(m.Purposes)
			So(err, ShouldBeNil)
		})
	})

	Convey("Given invalid model files", t, func() {
		cases := map[string]struct {
			body string
			want error
		}{
			"empty":           {"", coefficients.ErrInvalidModelFile},
			"no purposes":     {"purposes: {}\n", coefficients.ErrInvalidModelFile},
			"unknown key":     {"purposes:\n  HBW:\n    model: nb\n    theta: 1\n    colour: red\n", coefficients.ErrInvalidModelFile},
			"unknown purpose": {"purposes:\n  LEISURE:\n    model: nb\n    theta: 1\n", coefficients.ErrInvalidModelFile},
			"duplicate":       {"purposes:\n  HBW: {model: nb, theta: 1}\n  hbw: {model: nb, theta: 1}\n", coefficients.ErrInvalidModelFile},
			"unknown model":   {"purposes:\n  HBW:\n    model: poisson\n", coefficients.ErrInvalidModelFile},
			"bad theta":       {"purposes:\n  HBW:\n    model: nb\n    theta: 0\n", tripgen.ErrInvalidModel},
			"bad cutpoints":   {"purposes:\n  HBW:\n    model: polr\n    cutpoints: [2, 1]\n", tripgen.ErrInvalidModel},
			"bad lambda": {
				"purposes:\n  HBW:\n    model: nb\n    theta: 1\n    nests:\n      - modes: [autoDriver, autoPassenger, bicycle, bus, train, tramOrMetro, walk]\n        lambda: 1.5\n",
				logit.ErrInvalidNest,
			},
			"uncovered mode": {
				"purposes:\n  HBW:\n    model: nb\n    theta: 1\n    nests:\n      - modes: [bus]\n        lambda: 0.5\n",
				logit.ErrInvalidNest,
			},
		}
		for name, tc := range cases {
			Convey("Then "+name+" is a configuration error", func() {
				_, err := coefficients.Decode(strings.NewReader(tc.body))
				So(errors.Is(err, tc.want), ShouldBeTrue)
				So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
			})
		}
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a model file on disk", t, func() {
		path := filepath.Join(t.TempDir(), "models.yaml")
		So(os.WriteFile(path, []byte(validFile), 0o600), ShouldBeNil)

		m, err := coefficients.Load(path)
		So(err, ShouldBeNil)
		So(len(m.Purposes), ShouldEqual, 2)
	})

	Convey("Given a missing file", t, func() {
		_, err := coefficients.Load(filepath.Join(t.TempDir(), "none.yaml"))
		So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
	})
}
