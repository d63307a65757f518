package damas

import (
	"errors"
	"fmt"
)

var ErrIllegalMove = errors.New("illegal move")

// Move is a single displacement of one piece by the acting side.
type Move struct {
	From Cell `json:"from"`
	To   Cell `json:"to"`
	Side Side `json:"side"`
}

// String renders the move in the history format "r,c:r,c;".
func (that Move) String() string {
	return fmt.Sprintf("%s:%s;", that.From, that.To)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

// forward is the row direction a man of the given side advances in.
func forward(side Side) int {
	if side == White {
		return -1
	}
	return 1
}

// path returns the cells strictly between from and to. Both must be on one diagonal.
func path(from, to Cell) []Cell {
	dRow, dCol := sign(to.Row-from.Row), sign(to.Col-from.Col)

	cells := make([]Cell, 0, abs(to.Row-from.Row))
	for cell := (Cell{Row: from.Row + dRow, Col: from.Col + dCol}); cell != to; {
		cells = append(cells, cell)
		cell = Cell{Row: cell.Row + dRow, Col: cell.Col + dCol}
	}

	return cells
}

// IsLegal reports whether side may play move on board.
func IsLegal(board Board, move Move, side Side) bool {
	if !side.Valid() || !move.From.InBounds() || !move.To.InBounds() {
		return false
	}

	piece := board.At(move.From)
	if !piece.BelongsTo(side) {
		return false
	}

	if board.At(move.To) != Empty {
		return false
	}

	dRow, dCol := move.To.Row-move.From.Row, move.To.Col-move.From.Col
	if dRow == 0 || abs(dRow) != abs(dCol) {
		return false
	}

	between := path(move.From, move.To)

	if !piece.IsKing() {
		if sign(dRow) != forward(side) {
			return false
		}

		switch abs(dRow) {
		case 1:
			return true
		case 2:
			return board.At(between[0]).BelongsTo(side.Opponent())
		default:
			return false
		}
	}

	foes := 0
	for _, cell := range between {
		switch occupant := board.At(cell); {
		case occupant == Empty:
		case occupant.BelongsTo(side):
			return false
		default:
			foes++
		}
	}

	return foes <= 1
}

// Captured returns the cells holding adversary pieces that move would remove.
func Captured(board Board, move Move, side Side) []Cell {
	if !move.From.InBounds() || !move.To.InBounds() {
		return nil
	}

	if abs(move.To.Row-move.From.Row) != abs(move.To.Col-move.From.Col) {
		return nil
	}

	var cells []Cell
	for _, cell := range path(move.From, move.To) {
		if board.At(cell).BelongsTo(side.Opponent()) {
			cells = append(cells, cell)
		}
	}

	return cells
}

// Apply plays a move that IsLegal already accepted and returns the resulting board.
func Apply(board Board, move Move, side Side) Board {
	next := board

	piece := next[move.From.Row][move.From.Col]
	next[move.From.Row][move.From.Col] = Empty

	for _, cell := range Captured(board, move, side) {
		next[cell.Row][cell.Col] = Empty
	}

	if reachesFarRow(piece, move.To) {
		piece = piece.promoted()
	}
	next[move.To.Row][move.To.Col] = piece

	return next
}

func reachesFarRow(piece Piece, to Cell) bool {
	switch piece {
	case WhiteMan:
		return to.Row == 0
	case BlackMan:
		return to.Row == Size-1
	default:
		return false
	}
}

// IsTerminal reports whether at least one side has no pieces left.
func IsTerminal(board Board) bool {
	white, black := board.Count()
	return white == 0 || black == 0
}

// Winner returns the side that still has pieces on a terminal board.
// ok is false while the game goes on and when neither side has pieces left.
func Winner(board Board) (Side, bool) {
	white, black := board.Count()

	switch {
	case white > 0 && black == 0:
		return White, true
	case black > 0 && white == 0:
		return Black, true
	default:
		return "", false
	}
}

// Replay rebuilds a board by applying moves to the starting position.
func Replay(moves []Move) (Board, error) {
	board := NewBoard()

	for i, move := range moves {
		if !IsLegal(board, move, move.Side) {
			return Board{}, fmt.Errorf("%w: move %d %s", ErrIllegalMove, i+1, move)
		}

		board = Apply(board, move, move.Side)
	}

	return board, nil
}
