package errorterm

import (
	"math/rand/v2"

	"github.com/okian/tripsim/internal/domain/model"
)

// streamStride spreads stream ids across the PCG seed space.
const streamStride = 0x9e3779b97f4a7c15

// StaticNoise hands out person-level noise that is identical for every trip of
// the person and every calibration iteration. Each person gets a generator
// derived from (seed, stream, person id), so the value does not depend on which
// task asks for it and no state is shared between tasks.
type StaticNoise struct {
	sampler *Sampler
	seed    uint64
}

// NewStaticNoise binds sampler to a run seed and a stream (e.g. the purpose).
func NewStaticNoise(sampler *Sampler, seed, stream uint64) *StaticNoise {
	return &StaticNoise{sampler: sampler, seed: seed + stream*streamStride}
}

// For returns the noise vector of personID.
func (s *StaticNoise) For(personID int) model.Noise {
	rng := rand.New(rand.NewPCG(s.seed, uint64(personID)))
	return s.sampler.Sample(rng)
}
