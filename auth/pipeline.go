package auth

import (
	"context"
	"errors"
)

// CheckFunc evaluates one authorization check. A nil error passes; the
// returned value is made available to later code through Result.
type CheckFunc func(ctx context.Context, s *Session) (any, error)

// Check is a named authorization predicate.
//
// Contract:
//   - Concurrency: Func must be safe for concurrent use; one Check is
//     shared by every request through its scope.
//   - Errors: any non-nil error denies. The error text is kept for server
//     logs only and never shown to clients.
//   - Session may be nil for operations that do not require a token.
type Check struct {
	Name string
	Func CheckFunc
}

// Gate creates a check that only passes or denies.
func Gate(name string, fn func(ctx context.Context, s *Session) error) Check {
	return Check{
		Name: name,
		Func: func(ctx context.Context, s *Session) (any, error) {
			return nil, fn(ctx, s)
		},
	}
}

// Supply creates a check that, when it passes, supplies a value to the
// operation under its name.
func Supply(name string, fn CheckFunc) Check {
	return Check{Name: name, Func: fn}
}

// Result is the outcome of a passing pipeline run.
type Result struct {
	// Passed lists check names in evaluation order.
	Passed []string

	// Values holds values supplied by checks, keyed by check name.
	Values map[string]any
}

// Value returns the value supplied by the named check.
func (r *Result) Value(name string) (any, bool) {
	if r == nil || r.Values == nil {
		return nil, false
	}
	v, ok := r.Values[name]
	return v, ok
}

// Run evaluates checks in order and stops at the first denial.
//
// A denial is returned as *DenialError naming the denying check; checks
// after it are not evaluated. A cancelled context stops evaluation with
// the context error.
func Run(ctx context.Context, s *Session, checks ...Check) (*Result, error) {
	result := &Result{
		Passed: make([]string, 0, len(checks)),
		Values: make(map[string]any),
	}

	for _, c := range checks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.Func == nil {
			return nil, &DenialError{Check: c.Name, Reason: "check has no function"}
		}

		v, err := c.Func(ctx, s)
		if err != nil {
			return nil, denial(c.Name, err)
		}

		result.Passed = append(result.Passed, c.Name)
		if v != nil {
			result.Values[c.Name] = v
		}
	}

	return result, nil
}

func denial(check string, err error) *DenialError {
	var de *DenialError
	if errors.As(err, &de) {
		if de.Check == "" {
			c := *de
			c.Check = check
			return &c
		}
		return de
	}
	return &DenialError{Check: check, Reason: err.Error(), Cause: err}
}

// DenyAll returns a check that always denies.
func DenyAll(name string) Check {
	return Gate(name, func(context.Context, *Session) error {
		return &DenialError{Check: name, Reason: "all requests denied"}
	})
}
