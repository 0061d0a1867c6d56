package synthetic

import (
	"bytes"
	_ "embed"

	"github.com/okian/tripsim/internal/adapters/coefficients"
	"github.com/okian/tripsim/internal/domain/calibration"
	"github.com/okian/tripsim/internal/domain/model"
)

//go:embed models.yaml
var defaultModelFile []byte

// ModelFile returns a copy of the built-in model file.
func ModelFile() []byte { return bytes.Clone(defaultModelFile) }

// DefaultModels decodes the built-in model file.
func DefaultModels(opts ...coefficients.Option) (*coefficients.Models, error) {
	return coefficients.Decode(bytes.NewReader(defaultModelFile), opts...)
}

// targetShares are region-independent mode shares per purpose. Each row sums to 1.
var targetShares = map[model.Purpose][]float64{
	//               autoDriver autoPassenger bicycle bus train tramOrMetro walk
	model.HBW:  {0.46, 0.06, 0.10, 0.12, 0.08, 0.06, 0.12},
	model.HBE:  {0.05, 0.20, 0.18, 0.22, 0.05, 0.06, 0.24},
	model.HBS:  {0.42, 0.14, 0.08, 0.06, 0.01, 0.04, 0.25},
	model.HBO:  {0.38, 0.18, 0.09, 0.07, 0.03, 0.05, 0.20},
	model.NHBW: {0.50, 0.05, 0.07, 0.10, 0.08, 0.06, 0.14},
	model.NHBO: {0.36, 0.20, 0.08, 0.06, 0.02, 0.04, 0.24},
}

// ObservedShares returns observed-share rows for regions 1..regions. Metro is
// only observed in the first region; elsewhere its share is moved to bus.
func ObservedShares(regions int) []calibration.Observation {
	var rows []calibration.Observation
	for r := 1; r <= regions; r++ {
		region := model.RegionID(r)
		for _, purpose := range model.Purposes() {
			shares := targetShares[purpose]
			for i, mode := range model.Modes() {
				share := shares[i]
				switch {
				case mode == model.TramOrMetro && region != metroRegion:
					continue
				case mode == model.Bus && region != metroRegion:
					share += shares[model.TramOrMetro]
				}
				rows = append(rows, calibration.Observation{Region: region, Purpose: purpose, Mode: mode, Share: share})
			}
		}
	}
	return rows
}
