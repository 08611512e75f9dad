package ingest

// Status classifies the outcome of one per-item pipeline operation.
type Status int

// Per-item outcomes. Skips are expected (duplicates, empty pages,
// classifier deletes); failures are logged and isolated from siblings.
const (
	StatusOK Status = iota
	StatusSkip
	StatusFail
)

// Result carries one per-item outcome through a stage boundary, replacing
// exception-style control flow with an explicit value.
type Result[T any] struct {
	Status Status
	Value  T
	Reason string
	Err    error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{Status: StatusOK, Value: v}
}

// Skip marks an item intentionally excluded, with a reason for the logs.
func Skip[T any](reason string) Result[T] {
	return Result[T]{Status: StatusSkip, Reason: reason}
}

// Fail marks an item that errored; the error never aborts sibling items.
func Fail[T any](err error) Result[T] {
	return Result[T]{Status: StatusFail, Err: err}
}
