package hunt

import "github.com/brensch/hunter/game"

// SelectTarget returns the first snake in board order that is not own for
// this match, or nil. Distance plays no part: board order decides.
// A nil lookup treats every other snake as prey.
func SelectTarget(state *game.GameState, own OwnLookup) *game.Snake {
	for i := range state.Snakes {
		s := &state.Snakes[i]
		if s.Id == state.YouId {
			continue
		}
		if own != nil && own.IsOwn(state.Id, s.Id) {
			continue
		}
		return s
	}
	return nil
}
