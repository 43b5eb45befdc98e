package quota

import (
	"context"
	"sync"

	"github.com/gunho/artifact/pkg/errors"
)

// MemoryGate is an in-process Gate for tests and single-instance
// deployments. A single mutex guards all subscriptions, which keeps the
// check-and-increment atomic without per-user locking.
type MemoryGate struct {
	mu       sync.Mutex
	subs     map[string]*Subscription
	defaults *Subscription
}

// NewMemoryGate creates an empty in-memory gate.
func NewMemoryGate() *MemoryGate {
	return &MemoryGate{subs: make(map[string]*Subscription)}
}

// AutoProvision makes the gate create a subscription from the template for
// any unknown user on first contact. Meant for single-instance and CLI
// deployments without a subscription backend.
func (g *MemoryGate) AutoProvision(template Subscription) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.defaults = &template
}

// Put installs or replaces a subscription. Nil maps are initialized so
// callers can construct subscriptions with only the fields they care about.
func (g *MemoryGate) Put(sub Subscription) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if sub.Limits == nil {
		sub.Limits = make(map[Kind]int)
	}
	if sub.Usage == nil {
		sub.Usage = make(map[Kind]int)
	}
	g.subs[sub.UserID] = &sub
}

// Reserve consumes one unit of kind for the user.
func (g *MemoryGate) Reserve(ctx context.Context, userID string, kind Kind) error {
	if err := validateReserve(userID, kind); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	sub, ok := g.subs[userID]
	if !ok {
		if g.defaults == nil {
			return errors.New(errors.ErrCodeSubscriptionMissing, "no subscription for user %s", userID)
		}
		sub = g.provisionLocked(userID)
	}
	if sub.Status != StatusActive {
		return errors.New(errors.ErrCodeSubscriptionInactive, "subscription for user %s is %s", userID, sub.Status)
	}
	if sub.Usage[kind]+1 > sub.Limits[kind] {
		return errors.New(errors.ErrCodeQuotaExceeded, "%s quota exceeded for user %s (%d/%d)",
			kind, userID, sub.Usage[kind], sub.Limits[kind])
	}
	sub.Usage[kind]++
	return nil
}

// Release returns one unit of kind for the user. Usage floors at zero.
func (g *MemoryGate) Release(ctx context.Context, userID string, kind Kind) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	sub, ok := g.subs[userID]
	if !ok {
		return nil
	}
	if sub.Usage[kind] > 0 {
		sub.Usage[kind]--
	}
	return nil
}

// Lookup returns a copy of the user's subscription.
func (g *MemoryGate) Lookup(ctx context.Context, userID string) (Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sub, ok := g.subs[userID]
	if !ok {
		if g.defaults == nil {
			return Subscription{}, errors.New(errors.ErrCodeSubscriptionMissing, "no subscription for user %s", userID)
		}
		sub = g.provisionLocked(userID)
	}

	out := *sub
	out.Limits = make(map[Kind]int, len(sub.Limits))
	out.Usage = make(map[Kind]int, len(sub.Usage))
	for k, v := range sub.Limits {
		out.Limits[k] = v
	}
	for k, v := range sub.Usage {
		out.Usage[k] = v
	}
	return out, nil
}

// provisionLocked creates a subscription from the template. Caller holds
// the mutex.
func (g *MemoryGate) provisionLocked(userID string) *Subscription {
	sub := *g.defaults
	sub.UserID = userID
	sub.Limits = make(map[Kind]int, len(g.defaults.Limits))
	for k, v := range g.defaults.Limits {
		sub.Limits[k] = v
	}
	sub.Usage = make(map[Kind]int)
	g.subs[userID] = &sub
	return &sub
}

// Ensure MemoryGate implements Gate.
var _ Gate = (*MemoryGate)(nil)
