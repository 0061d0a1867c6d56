package api

import (
	service "github.com/okian/tripsim/internal/app"
	"github.com/okian/tripsim/internal/domain/calibration"
	"github.com/okian/tripsim/internal/domain/model"
)

// Summary is the JSON view of a finished run.
type Summary struct {
	RunID          string         `json:"run_id"`
	Seed           uint64         `json:"seed"`
	Persons        int            `json:"persons"`
	Trips          int            `json:"trips"`
	TripsByPurpose map[string]int `json:"trips_by_purpose"`
	FailedPersons  int            `json:"failed_persons"`
	Chosen         int            `json:"chosen"`
	Infeasible     int            `json:"infeasible"`
	Dropped        int            `json:"dropped"`
	Iterations     int            `json:"iterations"`
	MaxGap         float64        `json:"max_share_gap"`
	MeanLogsum     float64        `json:"mean_logsum"`
	DurationMS     int64          `json:"duration_ms"`
}

// NewSummary flattens rep.
func NewSummary(rep *service.Report) Summary {
	s := Summary{
		RunID:          rep.RunID,
		Seed:           rep.Seed,
		Persons:        rep.Persons,
		Trips:          rep.Trips,
		TripsByPurpose: make(map[string]int, len(rep.TripsByPurpose)),
		FailedPersons:  rep.FailedPersons,
		Chosen:         rep.Chosen,
		Infeasible:     rep.Infeasible,
		Dropped:        rep.Dropped,
		Iterations:     rep.Iterations,
		MaxGap:         rep.MaxGap,
		MeanLogsum:     rep.MeanLogsum,
		DurationMS:     rep.Duration.Milliseconds(),
	}
	for p, n := range rep.TripsByPurpose {
		s.TripsByPurpose[p.String()] = n
	}
	return s
}

// DiagnosticRow is the JSON view of one calibration diagnostic.
type DiagnosticRow struct {
	Iteration int           `json:"iteration"`
	Region    int           `json:"region"`
	Purpose   model.Purpose `json:"purpose"`
	Mode      model.Mode    `json:"mode"`
	Observed  float64       `json:"observed"`
	Simulated float64       `json:"simulated"`
	Factor    float64       `json:"factor"`
	Trips     int           `json:"trips"`
}

func newDiagnosticRow(r calibration.DiagnosticRow) DiagnosticRow {
	return DiagnosticRow{
		Iteration: r.Iteration,
		Region:    int(r.Region),
		Purpose:   r.Purpose,
		Mode:      r.Mode,
		Observed:  r.Observed,
		Simulated: r.Simulated,
		Factor:    r.Factor,
		Trips:     r.Trips,
	}
}
