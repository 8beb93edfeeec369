// Package batch runs one control-plane action against many resources at
// once and folds the per-resource outcomes into a single result.
package batch

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// MaxSize is the largest batch accepted.
const MaxSize = 10

var (
	// ErrEmpty is returned by Check for a batch with no names.
	ErrEmpty = errors.New("names must be a non-empty array")
	// ErrTooLarge is returned by Check for a batch above the size limit.
	ErrTooLarge = errors.New("batch size limit exceeded")
)

// Action performs the remote operation for a single resource. The returned
// message is reported on success; a non-nil error marks the outcome failed.
type Action func(ctx context.Context, name string) (string, error)

// Outcome is the result of one action.
type Outcome struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Result holds outcomes in request order.
type Result struct {
	Outcomes  []Outcome
	Succeeded int
	Failed    int
}

// Check validates batch cardinality. It must be called before any action is
// dispatched so that rejected batches cause no remote side effects.
func Check(names []string, max int) error {
	if max <= 0 || max > MaxSize {
		max = MaxSize
	}
	if len(names) == 0 {
		return ErrEmpty
	}
	if len(names) > max {
		return fmt.Errorf("%w: maximum %d per batch operation, got %d", ErrTooLarge, max, len(names))
	}
	return nil
}

// Execute runs action for every name concurrently and waits for all of them.
// A failing or panicking action never affects its siblings; outcomes[i]
// always belongs to names[i]. Duplicate names run independently.
func Execute(ctx context.Context, names []string, action Action) Result {
	outcomes := make([]Outcome, len(names))

	// Plain group, no derived context: siblings keep running when one fails.
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			outcomes[i] = run(ctx, name, action)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Success {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}
	return res
}

func run(ctx context.Context, name string, action Action) (out Outcome) {
	out.Name = name
	defer func() {
		if r := recover(); r != nil {
			out.Success = false
			out.Message = fmt.Sprintf("panic: %v", r)
		}
	}()

	msg, err := action(ctx, name)
	if err != nil {
		out.Message = err.Error()
		return out
	}
	out.Success = true
	out.Message = msg
	return out
}

// Classify maps a batch result to the endpoint status. Only a batch in which
// every item failed is a server error; partial failures are reported with
// 200 and must be read from the per-item outcomes.
func Classify(res Result, requested int) (status int, success bool) {
	if res.Failed == requested {
		return http.StatusInternalServerError, false
	}
	return http.StatusOK, res.Failed == 0
}
