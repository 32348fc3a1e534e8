package request

import "fmt"

// Action is a status-changing operation.
type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionVoid    Action = "void"
)

type transition struct {
	from      []Status // nil means any status except the target
	to        Status
	adminOnly bool
}

var transitions = map[Action]transition{
	ActionSubmit:  {from: []Status{StatusDraft}, to: StatusInReview},
	ActionApprove: {from: []Status{StatusInReview}, to: StatusApproved, adminOnly: true},
	ActionReject:  {from: []Status{StatusInReview}, to: StatusRejected, adminOnly: true},
	ActionVoid:    {to: StatusVoided, adminOnly: true},
}

// Next returns the status reached by applying action from status as role.
// Permission is checked before the source status.
func Next(role Role, from Status, action Action) (Status, error) {
	t, ok := transitions[action]
	if !ok {
		return "", fmt.Errorf("unknown action %q: %w", action, ErrInvalidTransition)
	}
	if t.adminOnly && role != RoleAdmin {
		return "", fmt.Errorf("%s requires %s: %w", action, RoleAdmin, ErrForbidden)
	}

	allowed := from != t.to
	if t.from != nil {
		allowed = false
		for _, s := range t.from {
			if s == from {
				allowed = true
				break
			}
		}
	}
	if !allowed {
		return "", &TransitionError{Action: action, From: from}
	}
	return t.to, nil
}

// CanEditData reports whether role may change the deal data and payments
// of a request in status.
func CanEditData(role Role, status Status) bool {
	switch role {
	case RoleAdmin:
		return status != StatusVoided
	case RoleSeller:
		return status == StatusDraft || status == StatusInReview
	default:
		return false
	}
}

// CanEditCoverage reports whether role may override the coverage percent.
func CanEditCoverage(role Role, status Status) bool {
	return role == RoleAdmin && status != StatusVoided
}

// CanView reports whether actor may read r. Sellers only see their own.
func CanView(actor Actor, r Request) bool {
	if actor.Role == RoleSeller {
		return r.SellerID == actor.ID
	}
	return actor.Role.Valid()
}
