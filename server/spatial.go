package main

// EntityRef identifies an entity in the grid
type EntityRef struct {
	Kind byte // 'o'=obstacle, 't'=target
	Idx  int  // index into the corresponding flat list
}

// SpatialGrid is a fixed-size grid over a centred x/z area for broad-phase queries
type SpatialGrid struct {
	cellSize   float64
	cols, rows int
	halfX      float64
	halfZ      float64
	cells      [][]EntityRef
}

// NewSpatialGrid covers [-halfX, halfX] x [-halfZ, halfZ]
func NewSpatialGrid(halfX, halfZ, cellSize float64) *SpatialGrid {
	cols := int(2*halfX/cellSize) + 1
	rows := int(2*halfZ/cellSize) + 1
	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		halfX:    halfX,
		halfZ:    halfZ,
		cells:    make([][]EntityRef, cols*rows),
	}
}

// Clear resets all cells (keeps allocated capacity)
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *SpatialGrid) span(x, z, radius float64) (minCX, maxCX, minCZ, maxCZ int) {
	minCX = g.clampCol(int((x - radius + g.halfX) / g.cellSize))
	maxCX = g.clampCol(int((x + radius + g.halfX) / g.cellSize))
	minCZ = g.clampRow(int((z - radius + g.halfZ) / g.cellSize))
	maxCZ = g.clampRow(int((z + radius + g.halfZ) / g.cellSize))
	return
}

func (g *SpatialGrid) clampCol(c int) int {
	if c < 0 {
		return 0
	}
	if c >= g.cols {
		return g.cols - 1
	}
	return c
}

func (g *SpatialGrid) clampRow(r int) int {
	if r < 0 {
		return 0
	}
	if r >= g.rows {
		return g.rows - 1
	}
	return r
}

// Insert adds an entity reference at the given position
func (g *SpatialGrid) Insert(x, z float64, ref EntityRef) {
	g.InsertCircle(x, z, 0, ref)
}

// InsertCircle adds an entity reference to all cells overlapping its bounding box
func (g *SpatialGrid) InsertCircle(x, z, radius float64, ref EntityRef) {
	minCX, maxCX, minCZ, maxCZ := g.span(x, z, radius)
	for cz := minCZ; cz <= maxCZ; cz++ {
		for cx := minCX; cx <= maxCX; cx++ {
			idx := cz*g.cols + cx
			g.cells[idx] = append(g.cells[idx], ref)
		}
	}
}

// QueryBuf appends the refs in cells overlapping the given square to buf.
// An entity spanning several cells appears once.
func (g *SpatialGrid) QueryBuf(x, z, radius float64, buf []EntityRef) []EntityRef {
	minCX, maxCX, minCZ, maxCZ := g.span(x, z, radius)
	start := len(buf)
	for cz := minCZ; cz <= maxCZ; cz++ {
		for cx := minCX; cx <= maxCX; cx++ {
			for _, ref := range g.cells[cz*g.cols+cx] {
				if !containsRef(buf[start:], ref) {
					buf = append(buf, ref)
				}
			}
		}
	}
	return buf
}

// Query returns all entity refs in cells that overlap the given square
func (g *SpatialGrid) Query(x, z, radius float64) []EntityRef {
	return g.QueryBuf(x, z, radius, nil)
}

func containsRef(refs []EntityRef, ref EntityRef) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}
