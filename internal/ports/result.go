package ports

import "errors"

var (
	// ErrNotFound is returned by reads that address a missing record or
	// cache position.
	ErrNotFound = errors.New("not found")
	// ErrSubscriptionClosed is returned by Next after the subscription
	// has been closed or its transport went away.
	ErrSubscriptionClosed = errors.New("subscription closed")
	// ErrBusClosed is returned when publishing or subscribing on a closed bus.
	ErrBusClosed = errors.New("bus closed")
)

// Result is the outcome of a best-effort boundary call. The component
// that produces it logs a failed Result exactly once; callers only
// branch on OK.
type Result struct {
	Op  string
	Err error
}

func (r Result) OK() bool { return r.Err == nil }

// Fields renders the result as log fields.
func (r Result) Fields() []Field {
	return []Field{{Key: "op", Value: r.Op}}
}
