package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/rocketscienceinc/damas-backend/internal/damas"
)

const (
	DefaultSize = 512
	MinSize     = 160
	MaxSize     = 1024

	// labelMargin is the band on the top and left edges holding the coordinates.
	labelMargin = 18
	cellUnits   = 100
)

var (
	lightSquare = "#f0d9b5"
	darkSquare  = "#b58863"
	background  = color.RGBA{R: 0x3b, G: 0x2a, B: 0x1e, A: 0xff}
	labelColor  = color.RGBA{R: 0xf0, G: 0xd9, B: 0xb5, A: 0xff}
)

// ClampSize bounds a requested image size; zero selects DefaultSize.
func ClampSize(size int) int {
	switch {
	case size == 0:
		return DefaultSize
	case size < MinSize:
		return MinSize
	case size > MaxSize:
		return MaxSize
	default:
		return size
	}
}

// BoardSVG draws board as an SVG document, one 100x100 unit per cell.
func BoardSVG(board damas.Board) string {
	var builder strings.Builder

	total := cellUnits * damas.Size
	fmt.Fprintf(&builder, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`,
		total, total, total, total)

	for row := 0; row < damas.Size; row++ {
		for col := 0; col < damas.Size; col++ {
			fill := lightSquare
			if (damas.Cell{Row: row, Col: col}).IsDark() {
				fill = darkSquare
			}

			fmt.Fprintf(&builder, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`,
				col*cellUnits, row*cellUnits, cellUnits, cellUnits, fill)
		}
	}

	for row := 0; row < damas.Size; row++ {
		for col := 0; col < damas.Size; col++ {
			piece := board.At(damas.Cell{Row: row, Col: col})
			if piece == damas.Empty {
				continue
			}

			fill, stroke := "#f7f7f7", "#2b2b2b"
			if piece.BelongsTo(damas.Black) {
				fill, stroke = "#1f1f1f", "#dcdcdc"
			}

			cx, cy := col*cellUnits+cellUnits/2, row*cellUnits+cellUnits/2
			fmt.Fprintf(&builder, `<circle cx="%d" cy="%d" r="38" fill="%s" stroke="%s" stroke-width="4"/>`,
				cx, cy, fill, stroke)

			if piece.IsKing() {
				fmt.Fprintf(&builder, `<circle cx="%d" cy="%d" r="17" fill="#d4af37" stroke="%s" stroke-width="3"/>`,
					cx, cy, stroke)
			}
		}
	}

	builder.WriteString(`</svg>`)

	return builder.String()
}

// BoardPNG rasterises board into a PNG of about size pixels with row and column labels.
func BoardPNG(board damas.Board, size int) ([]byte, error) {
	size = ClampSize(size)

	icon, err := oksvg.ReadIconStream(strings.NewReader(BoardSVG(board)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse board svg: %w", err)
	}

	boardSize := size - labelMargin
	icon.SetTarget(labelMargin, labelMargin, float64(boardSize), float64(boardSize))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	drawLabels(img, boardSize)

	var buf bytes.Buffer
	if err = png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}

	return buf.Bytes(), nil
}

func drawLabels(img *image.RGBA, boardSize int) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: face,
	}

	cell := boardSize / damas.Size
	ascent := face.Metrics().Ascent.Ceil()

	for i := 0; i < damas.Size; i++ {
		label := strconv.Itoa(i)
		width := drawer.MeasureString(label).Ceil()

		center := labelMargin + i*cell + cell/2

		drawer.Dot = fixed.P(center-width/2, (labelMargin+ascent)/2)
		drawer.DrawString(label)

		drawer.Dot = fixed.P((labelMargin-width)/2, center+ascent/2)
		drawer.DrawString(label)
	}
}
