package damas

import (
	"errors"
	"fmt"
)

// Size is the number of rows and columns of the board.
const Size = 8

var ErrInvalidCell = errors.New("cell is outside the board")

// Piece is the content of a single cell. The numeric values are the wire encoding.
type Piece uint8

const (
	Empty Piece = iota
	WhiteMan
	BlackMan
	WhiteKing
	BlackKing
)

// Side identifies one of the two players' colors.
type Side string

const (
	White Side = "white"
	Black Side = "black"
)

// Opponent returns the other side.
func (that Side) Opponent() Side {
	if that == White {
		return Black
	}
	return White
}

func (that Side) Valid() bool {
	return that == White || that == Black
}

// Side returns the owner of the piece; ok is false for Empty.
func (that Piece) Side() (Side, bool) {
	switch that {
	case WhiteMan, WhiteKing:
		return White, true
	case BlackMan, BlackKing:
		return Black, true
	default:
		return "", false
	}
}

func (that Piece) IsKing() bool {
	return that == WhiteKing || that == BlackKing
}

func (that Piece) BelongsTo(side Side) bool {
	owner, ok := that.Side()
	return ok && owner == side
}

// promoted returns the king of the same side; kings stay kings.
func (that Piece) promoted() Piece {
	switch that {
	case WhiteMan:
		return WhiteKing
	case BlackMan:
		return BlackKing
	default:
		return that
	}
}

// Cell is a (row, col) coordinate, 0-indexed. Row 0 is Black's home edge.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (that Cell) InBounds() bool {
	return that.Row >= 0 && that.Row < Size && that.Col >= 0 && that.Col < Size
}

// IsDark reports whether the cell is one of the playable squares.
func (that Cell) IsDark() bool {
	return (that.Row+that.Col)%2 == 1
}

func (that Cell) String() string {
	return fmt.Sprintf("%d,%d", that.Row, that.Col)
}

// Board is an 8x8 grid. It is a value type: copying a Board copies every cell,
// so a Board obtained from Apply never aliases its source.
type Board [Size][Size]Piece

// NewBoard returns the starting position: Black men on the dark squares of rows 0-2,
// White men on the dark squares of rows 5-7.
func NewBoard() Board {
	var board Board

	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			if !(Cell{Row: row, Col: col}).IsDark() {
				continue
			}

			switch {
			case row < 3:
				board[row][col] = BlackMan
			case row > 4:
				board[row][col] = WhiteMan
			}
		}
	}

	return board
}

// BoardFromGrid validates a wire grid (0..4 per cell, pieces on dark squares only).
func BoardFromGrid(grid [Size][Size]int) (Board, error) {
	var board Board

	for row := range grid {
		for col, value := range grid[row] {
			if value < int(Empty) || value > int(BlackKing) {
				return Board{}, fmt.Errorf("unknown piece %d at %d,%d", value, row, col)
			}

			piece := Piece(value)
			if piece != Empty && !(Cell{Row: row, Col: col}).IsDark() {
				return Board{}, fmt.Errorf("piece on light square %d,%d", row, col)
			}

			board[row][col] = piece
		}
	}

	return board, nil
}

// At returns the piece at cell; out of range cells read as Empty.
func (that Board) At(cell Cell) Piece {
	if !cell.InBounds() {
		return Empty
	}
	return that[cell.Row][cell.Col]
}

// With returns a copy of the board with cell set to piece.
func (that Board) With(cell Cell, piece Piece) (Board, error) {
	if !cell.InBounds() {
		return that, fmt.Errorf("%w: %s", ErrInvalidCell, cell)
	}

	that[cell.Row][cell.Col] = piece

	return that, nil
}

// Count returns how many pieces each side has on the board.
func (that Board) Count() (white, black int) {
	for row := range that {
		for _, piece := range that[row] {
			switch side, ok := piece.Side(); {
			case !ok:
			case side == White:
				white++
			default:
				black++
			}
		}
	}

	return white, black
}

// Grid returns the wire encoding of the board.
func (that Board) Grid() [Size][Size]int {
	var grid [Size][Size]int

	for row := range that {
		for col, piece := range that[row] {
			grid[row][col] = int(piece)
		}
	}

	return grid
}
