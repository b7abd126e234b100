package e2e

import "context"

// Checker defines the interface for inspector state validation components.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// Result represents the outcome of a checker validation.
type Result struct {
	Checker string // checker name, filled in by the validator
	Passed  bool   // true if validation succeeded
	Message string // descriptive message (error details if Passed=false)
}

// NewResult creates a successful result with an optional message.
func NewResult(message string) Result {
	return Result{Passed: true, Message: message}
}

// NewFailedResult creates a failed result with an error message.
func NewFailedResult(err error) Result {
	return Result{Passed: false, Message: err.Error()}
}

// InspectorValidator composes multiple checkers for comprehensive server
// and app state validation.
type InspectorValidator struct {
	checkers []Checker
}

// RunAll executes all checkers sequentially and returns all results. It
// does not short-circuit on failure, collecting all validation errors for
// comprehensive reporting.
func (v *InspectorValidator) RunAll(ctx context.Context) []Result {
	results := make([]Result, 0, len(v.checkers))
	for _, checker := range v.checkers {
		result := checker.Check(ctx)
		result.Checker = checker.Name()
		results = append(results, result)
	}
	return results
}

// NewInspectorValidator creates a validator with the specified checkers.
func NewInspectorValidator(checkers ...Checker) *InspectorValidator {
	return &InspectorValidator{checkers: checkers}
}
