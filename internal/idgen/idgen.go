// Package idgen mints the six digit identifiers handed to patients and
// appointments. Ids are minted before the owning row is written, so callers
// pair Generate with an existence check (see NextFree).
package idgen

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	MinID = 100000
	MaxID = 999999
)

type Generator interface {
	Generate() int
}

// RandGenerator draws uniformly from [MinID, MaxID]. Safe for concurrent use.
type RandGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandGenerator seeds a generator once. A zero seed means "seed from the clock".
func NewRandGenerator(seed uint64) *RandGenerator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandGenerator{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (g *RandGenerator) Generate() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return MinID + g.rnd.IntN(MaxID-MinID+1)
}

// ExistsFunc reports whether id is already taken.
type ExistsFunc func(ctx context.Context, id int) (bool, error)

// NextFree keeps drawing from gen until exists reports a free id. It only
// gives up on an exists error or when ctx is done.
func NextFree(ctx context.Context, gen Generator, exists ExistsFunc) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		id := gen.Generate()
		taken, err := exists(ctx, id)
		if err != nil {
			return 0, err
		}
		if !taken {
			return id, nil
		}
	}
}
