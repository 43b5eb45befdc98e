// Package quota enforces per-user subscription limits on metered
// resources. Generation requests reserve a unit before any work happens;
// failed generations release the unit again.
package quota

import (
	"context"

	"github.com/gunho/artifact/pkg/errors"
)

// Kind identifies a metered resource.
type Kind string

const (
	KindProject  Kind = "project"
	KindArtifact Kind = "artifact"
	KindDownload Kind = "download"
)

// Kinds lists all metered resource kinds.
func Kinds() []Kind {
	return []Kind{KindProject, KindArtifact, KindDownload}
}

// Valid reports whether k names a known resource kind.
func (k Kind) Valid() bool {
	switch k {
	case KindProject, KindArtifact, KindDownload:
		return true
	}
	return false
}

// Status is a subscription lifecycle state. Only ACTIVE subscriptions may
// consume quota.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusPaused   Status = "PAUSED"
	StatusCanceled Status = "CANCELED"
	StatusExpired  Status = "EXPIRED"
)

// Subscription is one user's plan state: the lifecycle status plus the
// limit and current usage per resource kind.
type Subscription struct {
	UserID string       `json:"userId" bson:"_id"`
	Plan   string       `json:"plan" bson:"plan"`
	Status Status       `json:"status" bson:"status"`
	Limits map[Kind]int `json:"limits" bson:"limits"`
	Usage  map[Kind]int `json:"usage" bson:"usage"`
}

// Remaining returns how many units of kind the subscription has left.
// Never negative.
func (s Subscription) Remaining(kind Kind) int {
	left := s.Limits[kind] - s.Usage[kind]
	if left < 0 {
		return 0
	}
	return left
}

// Gate is the admission check the pipeline consults before doing work.
//
// Reserve must be atomic with respect to concurrent calls for the same
// user: two racing reservations on a subscription with one unit left must
// not both succeed.
type Gate interface {
	// Reserve consumes one unit of kind for the user. It fails with
	// SUBSCRIPTION_MISSING when the user has no subscription,
	// SUBSCRIPTION_INACTIVE when the status is not ACTIVE, and
	// QUOTA_EXCEEDED when usage would pass the limit.
	Reserve(ctx context.Context, userID string, kind Kind) error

	// Release returns one unit of kind for the user. Usage never drops
	// below zero. Releasing for an unknown user is not an error.
	Release(ctx context.Context, userID string, kind Kind) error

	// Lookup returns the user's subscription for reporting.
	Lookup(ctx context.Context, userID string) (Subscription, error)
}

func validateReserve(userID string, kind Kind) error {
	if userID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "empty user id")
	}
	if !kind.Valid() {
		return errors.New(errors.ErrCodeInvalidInput, "unknown resource kind %q", kind)
	}
	return nil
}
