package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tripsim/internal/adapters/http/api"
	service "github.com/okian/tripsim/internal/app"
	"github.com/okian/tripsim/internal/domain/calibration"
	"github.com/okian/tripsim/internal/domain/model"
)

func newMux(state *api.RunState) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(state).Register(mux)
	return mux
}

func get(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func report() *service.Report {
	return &service.Report{
		RunID:          "run-1",
		Seed:           9,
		Duration:       1500 * time.Millisecond,
		Persons:        10,
		TripsByPurpose: map[model.Purpose]int{model.HBW: 7, model.HBS: 3},
		Trips:          10,
		Chosen:         9,
		Dropped:        1,
		Iterations:     1,
		MaxGap:         0.05,
		Diagnostics: []calibration.DiagnosticRow{
			{Iteration: 0, Region: 1, Purpose: model.HBW, Mode: model.Bus, Observed: 0.2, Simulated: 0.1, Factor: 0.1, Trips: 7},
			{Iteration: 1, Region: 1, Purpose: model.HBW, Mode: model.Bus, Observed: 0.2, Simulated: 0.18, Factor: 0.12, Trips: 7},
		},
	}
}

func TestHealth(t *testing.T) {
	Convey("Given the API", t, func() {
		mux := newMux(api.NewRunState())

		Convey("Then GET /healthz reports ok", func() {
			rec := get(mux, "/healthz")
			So(rec.Code, ShouldEqual, http.StatusOK)
			var body map[string]string
			So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
			So(body["status"], ShouldEqual, "ok")
		})

		Convey("Then the OpenAPI document is mounted", func() {
			So(get(mux, "/openapi.yaml").Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then other methods are rejected", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
			So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a run state", t, func() {
		state := api.NewRunState()
		mux := newMux(state)

		decode := func() api.RunResponse {
			rec := get(mux, "/run")
			So(rec.Code, ShouldEqual, http.StatusOK)
			var resp api.RunResponse
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			return resp
		}

		Convey("Then it starts pending", func() {
			resp := decode()
			So(resp.Status, ShouldEqual, api.StatusPending)
			So(resp.StartedAt, ShouldBeNil)
		})

		Convey("When the run starts and finishes", func() {
			state.Start()
			So(decode().Status, ShouldEqual, api.StatusRunning)
			state.Finish(report())
			resp := decode()

			Convey("Then the summary is served", func() {
				So(resp.Status, ShouldEqual, api.StatusFinished)
				So(resp.StartedAt, ShouldNotBeNil)
				So(resp.Summary, ShouldNotBeNil)
				So(resp.Summary.RunID, ShouldEqual, "run-1")
				So(resp.Summary.TripsByPurpose["HBW"], ShouldEqual, 7)
				So(resp.Summary.DurationMS, ShouldEqual, 1500)
			})
		})

		Convey("When the run fails", func() {
			state.Start()
			state.Fail(errors.New("boom"))
			resp := decode()
			So(resp.Status, ShouldEqual, api.StatusFailed)
			So(resp.Error, ShouldEqual, "boom")
			So(resp.Summary, ShouldBeNil)
		})
	})
}

func TestDiagnostics(t *testing.T) {
	Convey("Given a run state", t, func() {
		state := api.NewRunState()
		mux := newMux(state)

		Convey("When no report exists", func() {
			So(get(mux, "/run/diagnostics").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the run has finished", func() {
			state.Finish(report())

			Convey("Then all rows are served by default", func() {
				rec := get(mux, "/run/diagnostics")
				So(rec.Code, ShouldEqual, http.StatusOK)
				var rows []api.DiagnosticRow
				So(json.Unmarshal(rec.Body.Bytes(), &rows), ShouldBeNil)
				So(len(rows), ShouldEqual, 2)
				So(rows[0].Mode, ShouldEqual, model.Bus)
			})

			Convey("Then one iteration can be selected", func() {
				rec := get(mux, "/run/diagnostics?iteration=1")
				var rows []api.DiagnosticRow
				So(json.Unmarshal(rec.Body.Bytes(), &rows), ShouldBeNil)
				So(len(rows), ShouldEqual, 1)
				So(rows[0].Factor, ShouldEqual, 0.12)
			})

			Convey("Then a bad iteration is a bad request", func() {
				So(get(mux, "/run/diagnostics?iteration=x").Code, ShouldEqual, http.StatusBadRequest)
				So(get(mux, "/run/diagnostics?iteration=-2").Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}
