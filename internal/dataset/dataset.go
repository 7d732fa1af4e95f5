// Package dataset defines the registered-variable table the engine reads
// from and writes into. Ownership and lifecycle of the table (variable
// registration, resizing) belong to the out-of-scope application-facing
// API (spec section 1); this package only fixes the shape the core
// consumes (spec section 6).
package dataset

// Var is one registered "protected" variable: an application-assigned id,
// its current size in bytes, and the live buffer the engine copies into
// and out of during checkpoint and recover.
type Var struct {
	ID   int
	Size int64
	Ptr  []byte
}

// Table is the ordered sequence D[0..n) of currently registered variables.
// Order matters: a variable's positional index is recorded as VarChunk.Idx
// at write time and used by the reader to find the live buffer again.
type Table []Var

// ByID returns the index of the variable with the given id, or -1.
func (t Table) ByID(id int) int {
	for i, v := range t {
		if v.ID == id {
			return i
		}
	}
	return -1
}

// TotalSize sums every variable's registered size.
func (t Table) TotalSize() int64 {
	var total int64
	for _, v := range t {
		total += v.Size
	}
	return total
}
