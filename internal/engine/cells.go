package engine

// CellState classifies one target position for rendering.
type CellState int

const (
	CellPending CellState = iota
	CellCurrent
	CellCorrect
	CellIncorrect
)

func (s CellState) String() string {
	switch s {
	case CellCurrent:
		return "current"
	case CellCorrect:
		return "correct"
	case CellIncorrect:
		return "incorrect"
	default:
		return "pending"
	}
}

// Cell is the read-only projection of one target position.
type Cell struct {
	Index int
	Char  byte
	State CellState
	// Extension holds characters inserted before this position. Adapters draw
	// them ahead of Char, in the incorrect style.
	Extension string
}

// Cells projects the current classification over every target position.
func (e *Engine) Cells() []Cell {
	out := make([]Cell, len(e.text))
	ranges := e.skipRanges()
	for i := range e.text {
		c := Cell{Index: i, Char: e.text[i], Extension: string(e.cells[i].extension)}
		switch {
		case i > e.cursor:
			c.State = CellPending
		case i == e.cursor:
			c.State = CellCurrent
		case e.cells[i].mismatch || inRanges(ranges, i):
			c.State = CellIncorrect
		default:
			c.State = CellCorrect
		}
		out[i] = c
	}
	return out
}

func inRanges(ranges [][2]int, i int) bool {
	for _, r := range ranges {
		if i >= r[0] && i <= r[1] {
			return true
		}
	}
	return false
}

// Counts tallies the typed prefix.
func (e *Engine) Counts() Counts {
	var c Counts
	ranges := e.skipRanges()
	for i := 0; i < e.cursor; i++ {
		c.Typed++
		switch {
		case e.cells[i].mismatch:
			c.Mismatches++
		case inRanges(ranges, i):
			c.Skipped++
		default:
			c.Correct++
		}
	}
	for _, cl := range e.cells {
		if len(cl.extension) > 0 {
			c.Extensions++
			c.Inserted += len(cl.extension)
		}
	}
	return c
}
