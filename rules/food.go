package rules

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"

	"github.com/brensch/hunter/game"
)

// FoodSettings mirrors the engine knobs: MinimumFood is kept on the board
// after every turn and FoodSpawnChance is the percentage chance (0-100) of
// one extra item per turn.
type FoodSettings struct {
	MinimumFood     int
	FoodSpawnChance int
}

var DefaultFoodSettings = FoodSettings{MinimumFood: 1, FoodSpawnChance: 15}

func applyFoodRules(state *game.GameState, rng *rand.Rand, settings FoodSettings, salt uint64) {
	if state == nil || state.Width <= 0 || state.Height <= 0 {
		return
	}
	if rng == nil {
		seed := int64(seedFor(state, salt))
		if seed == 0 {
			seed = 1
		}
		rng = rand.New(rand.NewSource(seed))
	}

	toSpawn := max(settings.MinimumFood-len(state.Food), 0)
	if chance := min(max(settings.FoodSpawnChance, 0), 100); chance > 0 && rng.Intn(100) < chance {
		toSpawn++
	}
	if toSpawn == 0 {
		return
	}

	taken := make(map[game.Point]bool, len(state.Food)+len(state.Snakes)*4)
	for _, s := range state.Snakes {
		for _, p := range s.Body {
			taken[p] = true
		}
	}
	for _, f := range state.Food {
		taken[f] = true
	}

	free := make([]game.Point, 0, int(state.Width*state.Height))
	for y := int32(0); y < state.Height; y++ {
		for x := int32(0); x < state.Width; x++ {
			if p := (game.Point{X: x, Y: y}); !taken[p] {
				free = append(free, p)
			}
		}
	}

	for ; toSpawn > 0 && len(free) > 0; toSpawn-- {
		i := rng.Intn(len(free))
		state.Food = append(state.Food, free[i])
		free[i] = free[len(free)-1]
		free = free[:len(free)-1]
	}
}

// ApplyFoodSettings places food on an existing state, e.g. to seed the
// board before the first turn.
func ApplyFoodSettings(state *game.GameState, rng *rand.Rand, settings FoodSettings) {
	applyFoodRules(state, rng, settings, 0x5345454446) // "SEEDF"
}

// seedFor hashes the parts of the state that change every turn so runs
// without an rng are reproducible.
func seedFor(state *game.GameState, salt uint64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}

	put(uint64(uint32(state.Width)) | uint64(uint32(state.Height))<<32)
	put(uint64(uint32(state.Turn)))
	put(salt)
	put(uint64(len(state.Food)))
	for _, s := range state.Snakes {
		if len(s.Body) == 0 {
			continue
		}
		_, _ = h.Write([]byte(s.Id))
		head := s.Head()
		put(uint64(uint32(head.X))<<32 | uint64(uint32(head.Y)))
	}
	return h.Sum64()
}
