// Package relationship implements the connect/disconnect protocol shared by
// follows (user to user) and likes (user to podcast).
package relationship

import (
	"context"
	"errors"
	"strings"

	"podium/internal/models"
	"podium/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Error codes for rejected toggles.
const (
	CodeInvalidAction     = "INVALID_ACTION"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeSelfReference     = "SELF_REFERENCE"
	CodeTargetNotFound    = "TARGET_NOT_FOUND"
)

// Rejections. Compare with errors.Is.
var (
	ErrInvalidAction     = &models.AppError{Code: CodeInvalidAction, Message: "Invalid action."}
	ErrInvalidTransition = &models.AppError{Code: CodeInvalidTransition, Message: "Cannot do that."}
	ErrSelfReference     = &models.AppError{Code: CodeSelfReference, Message: "You cannot follow yourself."}
	ErrUserNotFound      = &models.AppError{Code: CodeTargetNotFound, Message: "User does not exist."}
	ErrPodcastNotFound   = &models.AppError{Code: CodeTargetNotFound, Message: "Podcast does not exist."}
)

// Kind names the relationship a Toggle manages.
type Kind string

const (
	KindFollow Kind = "follow"
	KindLike   Kind = "like"
)

// Action is the requested transition.
type Action string

const (
	Connect    Action = "connect"
	Disconnect Action = "disconnect"
)

// Result reports the edge state after a successful toggle.
type Result struct {
	Kind      Kind   `json:"kind"`
	Action    Action `json:"action"`
	TargetID  string `json:"target_id"`
	Connected bool   `json:"connected"`
	// Count is followers of the target for follows, likes of the podcast for likes.
	Count int64 `json:"count"`
}

// EdgeStore is the persistence a Toggle needs. Create and Remove must be single
// statements that report whether a row changed, so the state check and the
// write cannot interleave with a concurrent toggle of the same pair.
type EdgeStore interface {
	// ResolveTarget maps a client-supplied reference to a target id.
	// found is false when no such target exists.
	ResolveTarget(ctx context.Context, ref string) (id string, found bool, err error)
	// Create inserts the edge unless it exists; created is false when it already did.
	Create(ctx context.Context, actorID, targetID string) (created bool, err error)
	// Remove deletes the edge; removed is false when there was none.
	Remove(ctx context.Context, actorID, targetID string) (removed bool, err error)
	// Count returns the derived count for targetID.
	Count(ctx context.Context, targetID string) (int64, error)
}

// Toggle applies connect/disconnect requests to one kind of edge.
type Toggle struct {
	kind      Kind
	store     EdgeStore
	allowSelf bool
	notFound  *models.AppError
	aliases   map[string]Action
}

// NewFollowToggle returns the user-to-user toggle. Self edges are rejected.
func NewFollowToggle(store EdgeStore) *Toggle {
	return &Toggle{
		kind:     KindFollow,
		store:    store,
		notFound: ErrUserNotFound,
		aliases: map[string]Action{
			"connect": Connect, "disconnect": Disconnect,
			"follow": Connect, "unfollow": Disconnect,
		},
	}
}

// NewLikeToggle returns the user-to-podcast toggle.
func NewLikeToggle(store EdgeStore) *Toggle {
	return &Toggle{
		kind:      KindLike,
		store:     store,
		allowSelf: true,
		notFound:  ErrPodcastNotFound,
		aliases: map[string]Action{
			"connect": Connect, "disconnect": Disconnect,
			"like": Connect, "unlike": Disconnect,
		},
	}
}

// Kind returns the relationship kind this toggle manages.
func (t *Toggle) Kind() Kind { return t.kind }

// ParseAction maps a wire action word to an Action.
func (t *Toggle) ParseAction(word string) (Action, bool) {
	a, ok := t.aliases[strings.ToLower(strings.TrimSpace(word))]
	return a, ok
}

// Apply performs action for actorID against the target named by targetRef.
//
// Checks run in a fixed order: the action word, then self reference (follows
// only), then target existence, then the transition itself.
func (t *Toggle) Apply(ctx context.Context, actorID, targetRef, action string) (result Result, err error) {
	act, ok := t.ParseAction(action)
	actionLabel := string(act)
	if !ok {
		actionLabel = "invalid"
	}

	span, ctx := observability.NewSpan(ctx, "relationship.toggle",
		attribute.String("relationship.kind", string(t.kind)),
		attribute.String("relationship.action", actionLabel),
	)
	defer func() {
		span.SetError(err)
		span.End()
		observability.RelationshipTransitions.WithLabelValues(string(t.kind), actionLabel, outcomeLabel(err)).Inc()
	}()

	if !ok {
		return Result{}, ErrInvalidAction
	}

	if !t.allowSelf && targetRef == actorID {
		return Result{}, ErrSelfReference
	}

	targetID, found, err := t.store.ResolveTarget(ctx, targetRef)
	if err != nil {
		return Result{}, err
	}
	if !t.allowSelf && found && targetID == actorID {
		return Result{}, ErrSelfReference
	}
	if !found {
		return Result{}, t.notFound
	}

	var changed bool
	switch act {
	case Connect:
		changed, err = t.store.Create(ctx, actorID, targetID)
	case Disconnect:
		changed, err = t.store.Remove(ctx, actorID, targetID)
	}
	if err != nil {
		return Result{}, err
	}
	if !changed {
		return Result{}, ErrInvalidTransition
	}

	count, err := t.store.Count(ctx, targetID)
	if err != nil {
		return Result{}, err
	}

	span.AddAttributes(attribute.Int64("relationship.count", count))
	return Result{
		Kind:      t.kind,
		Action:    act,
		TargetID:  targetID,
		Connected: act == Connect,
		Count:     count,
	}, nil
}

// Rejected reports whether err is one of the expected, user-facing toggle rejections.
func Rejected(err error) bool {
	return outcomeLabel(err) != "error" && err != nil
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return "error"
	}
	switch appErr.Code {
	case CodeInvalidAction, CodeInvalidTransition, CodeSelfReference, CodeTargetNotFound:
		return strings.ToLower(appErr.Code)
	default:
		return "error"
	}
}
