package sim

import "fmt"

// LocationMatrix is a dense node-by-node count of entities of one mode.
// Entry (i,i) is the number stationed at node i; entry (i,j) with i != j is
// the number currently traversing the i->j edge.
//
// Conservation invariant: Depart and Arrive pair every decrement with an
// equal increment inside the same call, so Total never changes once entities
// are placed.
type LocationMatrix struct {
	n     int
	cells []int
}

// NewLocationMatrix returns a zeroed n-by-n matrix.
func NewLocationMatrix(n int) *LocationMatrix {
	return &LocationMatrix{n: n, cells: make([]int, n*n)}
}

// Size returns the node count n.
func (m *LocationMatrix) Size() int { return m.n }

// At returns the count at cell (i, j).
func (m *LocationMatrix) At(i, j int) int { return m.cells[i*m.n+j] }

// Place stations count entities at a node, growing the matrix total.
// Used only during instance construction and loading.
func (m *LocationMatrix) Place(node, count int) {
	m.cells[node*m.n+node] += count
}

// Depart moves count entities from (origin,origin) onto the
// (origin,destination) edge.
func (m *LocationMatrix) Depart(origin, destination, count int) error {
	return m.move(origin, origin, origin, destination, count)
}

// Arrive moves count entities from the (origin,destination) edge to
// (destination,destination).
func (m *LocationMatrix) Arrive(origin, destination, count int) error {
	return m.move(origin, destination, destination, destination, count)
}

func (m *LocationMatrix) move(fromI, fromJ, toI, toJ, count int) error {
	if count < 0 {
		return fmt.Errorf("move count %d is negative: %w", count, ErrMatrixUnderflow)
	}
	if count == 0 {
		return nil
	}
	src := fromI*m.n + fromJ
	if m.cells[src] < count {
		return fmt.Errorf("moving %d from cell (%d,%d) holding %d: %w",
			count, fromI, fromJ, m.cells[src], ErrMatrixUnderflow)
	}
	m.cells[src] -= count
	m.cells[toI*m.n+toJ] += count
	return nil
}

// Total returns the sum over all cells.
func (m *LocationMatrix) Total() int {
	total := 0
	for _, c := range m.cells {
		total += c
	}
	return total
}

// Rows returns a copy of the matrix as a slice of rows, for snapshots and
// serialization.
func (m *LocationMatrix) Rows() [][]int {
	rows := make([][]int, m.n)
	for i := 0; i < m.n; i++ {
		rows[i] = make([]int, m.n)
		copy(rows[i], m.cells[i*m.n:(i+1)*m.n])
	}
	return rows
}
