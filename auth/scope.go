package auth

import (
	"context"

	"github.com/jonwraymond/tokenauth/observe"
)

// Guard holds the process-wide checks every operation runs first.
//
// Guards, groups and operations are immutable: each level copies its
// parent's checks, so adding checks to one branch never affects another.
// Evaluation order is process-wide, then each enclosing group from the
// outermost in, then the operation's own checks.
type Guard struct {
	checks     []Check
	middleware *observe.Middleware
}

// NewGuard creates a guard with process-wide checks.
func NewGuard(checks ...Check) *Guard {
	return &Guard{checks: concatChecks(nil, checks)}
}

// Instrument returns a copy of the guard whose operations report the
// authorize stage to mw.
func (g *Guard) Instrument(mw *observe.Middleware) *Guard {
	c := *g
	if mw != nil {
		mw = mw.WithReasonFunc(FailureReason)
	}
	c.middleware = mw
	return &c
}

// Checks returns a copy of the process-wide checks.
func (g *Guard) Checks() []Check {
	return concatChecks(nil, g.checks)
}

// Group creates a group scope below the guard.
func (g *Guard) Group(name string, checks ...Check) *Group {
	return &Group{
		name:       name,
		checks:     concatChecks(g.checks, checks),
		middleware: g.middleware,
	}
}

// Operation creates an operation directly below the guard.
func (g *Guard) Operation(name string, checks ...Check) *Operation {
	return newOperation(name, concatChecks(g.checks, checks), g.middleware)
}

// Group is a set of operations sharing checks, such as a route prefix.
type Group struct {
	name       string
	checks     []Check
	middleware *observe.Middleware
}

// Name returns the group name. Nested groups are joined with "/".
func (gr *Group) Name() string {
	return gr.name
}

// Checks returns the accumulated checks, process-wide first.
func (gr *Group) Checks() []Check {
	return concatChecks(nil, gr.checks)
}

// Group creates a nested group.
func (gr *Group) Group(name string, checks ...Check) *Group {
	return &Group{
		name:       gr.name + "/" + name,
		checks:     concatChecks(gr.checks, checks),
		middleware: gr.middleware,
	}
}

// Operation creates an operation in this group.
func (gr *Group) Operation(name string, checks ...Check) *Operation {
	return newOperation(gr.name+"/"+name, concatChecks(gr.checks, checks), gr.middleware)
}

// Operation is a single protected action with its full check list.
type Operation struct {
	name       string
	checks     []Check
	middleware *observe.Middleware
}

func newOperation(name string, checks []Check, mw *observe.Middleware) *Operation {
	return &Operation{name: name, checks: checks, middleware: mw}
}

// Name returns the qualified operation name.
func (o *Operation) Name() string {
	return o.name
}

// Checks returns a copy of the effective check list in evaluation order.
func (o *Operation) Checks() []Check {
	return concatChecks(nil, o.checks)
}

// Authorize runs the operation's checks against s.
func (o *Operation) Authorize(ctx context.Context, s *Session) (*Result, error) {
	meta := observe.StageMeta{Name: StageAuthorize, Operation: o.name}
	return runStage(ctx, o.middleware, meta, func(ctx context.Context) (*Result, error) {
		return Run(ctx, s, o.checks...)
	})
}

func concatChecks(a, b []Check) []Check {
	out := make([]Check, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
