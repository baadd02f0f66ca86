package metadata

// Failure records one failed input within a batch operation
type Failure struct {
	// Input identifies the failed input (type name or item id)
	Input string `json:"input"`

	// Error is the failure message, never empty
	Error string `json:"error"`
}

// ProcessingResult aggregates the outcome of a batch operation.
// len(Success) + len(Failures) always equals the number of inputs
// attempted: inputs with no registered handler count as failures, they
// are never silently dropped.
type ProcessingResult[T any] struct {
	Success          []T       `json:"success"`
	Failures         []Failure `json:"failures"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
}

// Attempted returns the number of inputs the batch attempted
func (r ProcessingResult[T]) Attempted() int {
	return len(r.Success) + len(r.Failures)
}

// AddSuccess appends a successful outcome
func (r *ProcessingResult[T]) AddSuccess(v T) {
	r.Success = append(r.Success, v)
}

// AddFailure appends a failure entry
func (r *ProcessingResult[T]) AddFailure(input, message string) {
	r.Failures = append(r.Failures, Failure{Input: input, Error: message})
}

// Merge folds other into r. Processing times are not summed; the caller
// owns the wall-clock measurement for the combined operation.
func (r *ProcessingResult[T]) Merge(other ProcessingResult[T]) {
	r.Success = append(r.Success, other.Success...)
	r.Failures = append(r.Failures, other.Failures...)
}
