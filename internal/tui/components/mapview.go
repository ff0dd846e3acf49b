package components

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"
	"github.com/rendis/leadtap/internal/tui/styles"
)

// MapView plots lead locations as a Braille scatter plot. Zero points are
// leads without coordinates and are not drawn.
type MapView struct {
	width    int
	height   int
	points   []orb.Point
	selected int
	bound    orb.Bound
	empty    bool
}

func NewMapView(width, height int) MapView {
	return MapView{width: width, height: height, selected: -1, empty: true}
}

func (m *MapView) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetPoints replaces the plotted leads and refits the viewport to them.
func (m *MapView) SetPoints(points []orb.Point) {
	m.points = points
	m.fit()
}

func (m *MapView) SetSelected(idx int) {
	m.selected = idx
}

// Bound is the padded area currently shown.
func (m MapView) Bound() orb.Bound {
	return m.bound
}

// Plotted counts the points with coordinates.
func (m MapView) Plotted() int {
	n := 0
	for _, p := range m.points {
		if located(p) {
			n++
		}
	}
	return n
}

func located(p orb.Point) bool {
	return p.Lat() != 0 || p.Lon() != 0
}

func (m *MapView) fit() {
	m.empty = true
	for _, p := range m.points {
		if !located(p) {
			continue
		}
		if m.empty {
			m.bound = p.Bound()
			m.empty = false
			continue
		}
		m.bound = m.bound.Extend(p)
	}
	if m.empty {
		m.bound = orb.Bound{}
		return
	}

	latPad := (m.bound.Max.Lat() - m.bound.Min.Lat()) * 0.05
	lngPad := (m.bound.Max.Lon() - m.bound.Min.Lon()) * 0.05
	if latPad == 0 {
		latPad = 0.01
	}
	if lngPad == 0 {
		lngPad = 0.01
	}
	m.bound = m.bound.Pad(math.Max(latPad, lngPad))
}

// Braille cells are 2x4 dot grids:
//
//	0 3
//	1 4
//	2 5
//	6 7
//
// Unicode: 0x2800 + sum of raised dot bits
var brailleDots = [8]rune{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40, 0x80}

var dotPositions = [8][2]int{
	{0, 0}, {1, 0}, {2, 0}, {0, 1},
	{1, 1}, {2, 1}, {3, 0}, {3, 1},
}

func (m MapView) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	cols, rows := m.width, m.height
	blank := strings.TrimSuffix(strings.Repeat(strings.Repeat(" ", cols)+"\n", rows), "\n")
	if m.empty {
		return blank
	}

	dotW, dotH := cols*2, rows*4
	latRange := m.bound.Max.Lat() - m.bound.Min.Lat()
	lngRange := m.bound.Max.Lon() - m.bound.Min.Lon()
	if latRange == 0 || lngRange == 0 {
		return blank
	}

	// A longitude degree shrinks with latitude; braille dots are roughly
	// square on screen, so scale the width accordingly.
	cosLat := math.Cos(m.bound.Center().Lat() * math.Pi / 180)
	geoAspect := lngRange * cosLat / latRange
	dotAspect := float64(dotW) / float64(dotH)

	effectiveW, effectiveH := dotW, dotH
	offsetX, offsetY := 0, 0
	if geoAspect < dotAspect {
		effectiveW = max(int(float64(dotH)*geoAspect), 4)
		offsetX = (dotW - effectiveW) / 2
	} else {
		effectiveH = max(int(float64(dotW)/geoAspect), 4)
		offsetY = (dotH - effectiveH) / 2
	}

	toDot := func(p orb.Point) (int, int) {
		x := offsetX + int((p.Lon()-m.bound.Min.Lon())/lngRange*float64(effectiveW-1))
		y := offsetY + int((m.bound.Max.Lat()-p.Lat())/latRange*float64(effectiveH-1))
		return x, y
	}

	pointGrid := make([][]bool, dotH)
	for i := range pointGrid {
		pointGrid[i] = make([]bool, dotW)
	}
	selX, selY := -1, -1
	for i, p := range m.points {
		if !located(p) {
			continue
		}
		x, y := toDot(p)
		if x < 0 || x >= dotW || y < 0 || y >= dotH {
			continue
		}
		pointGrid[y][x] = true
		if i == m.selected {
			selX, selY = x/2, y/4
		}
	}

	pointStyle := lipgloss.NewStyle().Foreground(styles.Success)
	selectedStyle := lipgloss.NewStyle().Foreground(styles.Warning).Bold(true)

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			var cell rune = 0x2800
			for dot := 0; dot < 8; dot++ {
				dy := row*4 + dotPositions[dot][0]
				dx := col*2 + dotPositions[dot][1]
				if dy < dotH && dx < dotW && pointGrid[dy][dx] {
					cell |= brailleDots[dot]
				}
			}
			switch {
			case col == selX && row == selY:
				sb.WriteString(selectedStyle.Render("◆"))
			case cell != 0x2800:
				sb.WriteString(pointStyle.Render(string(cell)))
			default:
				sb.WriteRune(' ')
			}
		}
		if row < rows-1 {
			sb.WriteRune('\n')
		}
	}
	return sb.String()
}
