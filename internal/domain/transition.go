package domain

import (
	"errors"
	"fmt"
)

type Action string

const (
	ActionConfirm           Action = "confirm"
	ActionReject            Action = "reject"
	ActionCancelByRequester Action = "cancel_by_requester"
	ActionCancelByProvider  Action = "cancel_by_provider"
	ActionMarkAttended      Action = "mark_attended"
	ActionMarkNoShow        Action = "mark_no_show"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotPermitted      = errors.New("actor not permitted")
)

type party int

const (
	partyRequester party = iota
	partyProvider
)

type rule struct {
	by   party
	from []Status
	to   Status
}

var transitions = map[Action]rule{
	ActionConfirm:           {by: partyProvider, from: []Status{StatusPending}, to: StatusConfirmed},
	ActionReject:            {by: partyProvider, from: []Status{StatusPending}, to: StatusRejected},
	ActionCancelByRequester: {by: partyRequester, from: []Status{StatusPending, StatusConfirmed}, to: StatusCancelledByRequester},
	ActionCancelByProvider:  {by: partyProvider, from: []Status{StatusPending, StatusConfirmed}, to: StatusCancelledByProvider},
	ActionMarkAttended:      {by: partyProvider, from: []Status{StatusConfirmed}, to: StatusAttended},
	ActionMarkNoShow:        {by: partyProvider, from: []Status{StatusConfirmed}, to: StatusNoShow},
}

// CancelActionFor picks the cancel action matching the actor's side of the booking.
func CancelActionFor(role Role) (Action, bool) {
	switch role {
	case RoleRequester:
		return ActionCancelByRequester, true
	case RoleProvider:
		return ActionCancelByProvider, true
	}
	return "", false
}

// Next returns the status action moves b into when performed by actor. It never mutates b.
// The actor is checked before the current status.
func Next(b Booking, actor Actor, action Action) (Status, error) {
	r, ok := transitions[action]
	if !ok {
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}

	switch r.by {
	case partyProvider:
		if actor.Role != RoleProvider || actor.ID == "" || actor.ID != b.ProviderID {
			return "", fmt.Errorf("%w: only the assigned provider may %s", ErrNotPermitted, action)
		}
	case partyRequester:
		if actor.Role != RoleRequester || actor.ID == "" || actor.ID != b.RequesterID {
			return "", fmt.Errorf("%w: only the requester may %s", ErrNotPermitted, action)
		}
	}

	for _, from := range r.from {
		if b.Status == from {
			return r.to, nil
		}
	}
	return "", fmt.Errorf("%w: cannot %s a %s booking", ErrInvalidTransition, action, b.Status)
}
