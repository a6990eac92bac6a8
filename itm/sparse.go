package itm

// A RowEntry is one element of a constraint row: the column (variable)
// index and the stable value-index shared by the parallel A and P arrays.
type RowEntry struct {
	Column int
	Value  int
}

// A ColEntry is one element of a variable column: the row (constraint)
// index and the same stable value-index as the row view.
type ColEntry struct {
	Row   int
	Value int
}

// A SparseMatrix stores the constraint/variable incidence with both a row
// view (CSR) and a column view (CSC permutation) over a single value-index
// space [0, nnz). Value-indices are assigned once at construction, in
// row-major order, and never reused; parallel arrays such as A and P key
// off them.
type SparseMatrix struct {
	rowPtr []int
	rows   []RowEntry
	colPtr []int
	cols   []ColEntry
	m      int
	n      int
}

// NewSparseMatrix builds the incidence of the given merged constraints
// over n variables.
func NewSparseMatrix(csts []MergedConstraint, n int) *SparseMatrix {
	m := len(csts)
	nnz := 0
	for i := range csts {
		nnz += len(csts[i].Elements)
	}
	ap := &SparseMatrix{
		rowPtr: make([]int, m+1),
		rows:   make([]RowEntry, 0, nnz),
		colPtr: make([]int, n+1),
		cols:   make([]ColEntry, nnz),
		m:      m,
		n:      n,
	}
	id := 0
	for k := range csts {
		ap.rowPtr[k] = id
		for _, elem := range csts[k].Elements {
			if elem.Column < 0 || elem.Column >= n {
				panic("sparse matrix: column out of range")
			}
			ap.rows = append(ap.rows, RowEntry{Column: elem.Column, Value: id})
			ap.colPtr[elem.Column+1]++
			id++
		}
	}
	ap.rowPtr[m] = id
	for j := 0; j < n; j++ {
		ap.colPtr[j+1] += ap.colPtr[j]
	}
	// Columns are filled by scanning rows in order, so each column lists
	// its rows by increasing row index.
	next := make([]int, n)
	copy(next, ap.colPtr[:n])
	for k := 0; k < m; k++ {
		for _, e := range ap.rows[ap.rowPtr[k]:ap.rowPtr[k+1]] {
			ap.cols[next[e.Column]] = ColEntry{Row: k, Value: e.Value}
			next[e.Column]++
		}
	}
	return ap
}

// Row returns the elements of constraint k in stored order.
func (ap *SparseMatrix) Row(k int) []RowEntry {
	return ap.rows[ap.rowPtr[k]:ap.rowPtr[k+1]]
}

// Column returns the constraints containing variable j, ordered by row
// index.
func (ap *SparseMatrix) Column(j int) []ColEntry {
	return ap.cols[ap.colPtr[j]:ap.colPtr[j+1]]
}

// Size returns the number of stored elements.
func (ap *SparseMatrix) Size() int {
	return len(ap.rows)
}

// Rows returns the number of constraints.
func (ap *SparseMatrix) Rows() int {
	return ap.m
}

// Cols returns the number of variables.
func (ap *SparseMatrix) Cols() int {
	return ap.n
}
