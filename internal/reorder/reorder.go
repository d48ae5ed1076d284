// Package reorder computes contiguous card positions for a column.
// All functions are pure: they plan position changes, callers apply them
// inside a transaction. After applying a plan the column's positions are
// exactly 0..n-1 with no duplicates or gaps.
package reorder

import (
	"sort"

	"syncboard/internal/model"

	"github.com/google/uuid"
)

// Change is a single position assignment to apply to a card.
type Change struct {
	ID       uuid.UUID
	Position int
}

// byDisplayOrder sorts cards by current position, with (created_at, id) as
// a stable tie-break so reindexing is deterministic even if positions are
// corrupted with duplicates.
func byDisplayOrder(cards []model.Card) []model.Card {
	sorted := make([]model.Card, len(cards))
	copy(sorted, cards)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Position != sorted[j].Position {
			return sorted[i].Position < sorted[j].Position
		}
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})
	return sorted
}

// Normalize assigns positions 0..n-1 in display order and returns changes
// for the cards whose position actually moves.
func Normalize(cards []model.Card) []Change {
	var changes []Change
	for i, card := range byDisplayOrder(cards) {
		if card.Position != i {
			changes = append(changes, Change{ID: card.ID, Position: i})
		}
	}
	return changes
}

// Clamp limits a requested position to [0, n]. An out-of-range request is
// clamped rather than rejected.
func Clamp(pos, n int) int {
	if pos < 0 {
		return 0
	}
	if pos > n {
		return n
	}
	return pos
}

// Insert plans an insert-at-position move. others holds the target column's
// cards excluding the moved card; the moved card takes the clamped position
// and every other card at or past it shifts up by one. Returns the clamped
// position and the changes for the other cards.
func Insert(others []model.Card, pos int) (int, []Change) {
	clamped := Clamp(pos, len(others))

	var changes []Change
	for i, card := range byDisplayOrder(others) {
		want := i
		if i >= clamped {
			want = i + 1
		}
		if card.Position != want {
			changes = append(changes, Change{ID: card.ID, Position: want})
		}
	}
	return clamped, changes
}
