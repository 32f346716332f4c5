package gateway

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Policy decides how concurrent stream requests share the tuner.
type Policy string

const (
	// PolicyIndependent starts a capture per request. With a single tuner
	// the second capture fails to claim the device and that client gets no
	// audio.
	PolicyIndependent Policy = "independent"
	// PolicyExclusive serializes requests; each waits until the running
	// stream ends or its client gives up.
	PolicyExclusive Policy = "exclusive"
	// PolicyRejectIfBusy answers 503 while another stream runs.
	PolicyRejectIfBusy Policy = "reject-if-busy"
)

var errBusy = errors.New("tuner busy")

func (p *Policy) String() string {
	return string(*p)
}

func (p *Policy) Set(s string) error {
	v := Policy(s)
	if err := v.validate(); err != nil {
		return err
	}
	*p = v
	return nil
}

func (p Policy) validate() error {
	switch p {
	case PolicyIndependent, PolicyExclusive, PolicyRejectIfBusy:
		return nil
	}
	return fmt.Errorf("unknown policy %q", string(p))
}

// admission hands out the right to start a session under a Policy.
type admission struct {
	policy Policy
	sem    *semaphore.Weighted
}

func newAdmission(p Policy) *admission {
	return &admission{
		policy: p,
		sem:    semaphore.NewWeighted(1),
	}
}

// acquire returns a release func, errBusy, or the context error if the
// caller went away while waiting.
func (a *admission) acquire(ctx context.Context) (func(), error) {
	release := func() { a.sem.Release(1) }

	switch a.policy {
	case PolicyExclusive:
		if err := a.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		return release, nil
	case PolicyRejectIfBusy:
		if !a.sem.TryAcquire(1) {
			return nil, errBusy
		}
		return release, nil
	default:
		return func() {}, nil
	}
}
