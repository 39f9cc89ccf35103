// Package session holds the per-identity conversation that bridges URL
// resolution and the user's type and quality choices.
package session

import (
	"errors"
	"fmt"
)

// State is the position of a conversation in the dialogue.
type State int

const (
	AwaitingType State = iota
	AwaitingQuality
	Delivering
)

func (s State) String() string {
	switch s {
	case AwaitingType:
		return "awaiting-type"
	case AwaitingQuality:
		return "awaiting-quality"
	case Delivering:
		return "delivering"
	default:
		return "unknown"
	}
}

// Event is a user choice.
type Event int

const (
	ChooseAudio Event = iota
	ChooseVideo
	ChooseQuality
)

func (e Event) String() string {
	switch e {
	case ChooseAudio:
		return "choose-audio"
	case ChooseVideo:
		return "choose-video"
	case ChooseQuality:
		return "choose-quality"
	default:
		return "unknown"
	}
}

// Action is what the caller must do after a transition.
type Action int

const (
	DeliverAudio Action = iota
	DeliverVideo
	ShowQualities
)

// Transition is the result of applying an Event.
type Transition struct {
	Next   State
	Action Action
}

// Terminal reports whether the transition starts delivery, after which the
// session is removed.
func (t Transition) Terminal() bool {
	return t.Next == Delivering
}

var (
	ErrExpired = errors.New("session expired")
	ErrBusy    = errors.New("delivery already in progress")
)

type guard func(hasVariants bool) bool

func always(bool) bool            { return true }
func withVariants(v bool) bool    { return v }
func withoutVariants(v bool) bool { return !v }

type rule struct {
	from State
	on   Event
	when guard
	then Transition
}

// table is the complete transition table; anything not listed is rejected.
var table = []rule{
	{AwaitingType, ChooseAudio, always, Transition{Next: Delivering, Action: DeliverAudio}},
	{AwaitingType, ChooseVideo, withoutVariants, Transition{Next: Delivering, Action: DeliverVideo}},
	{AwaitingType, ChooseVideo, withVariants, Transition{Next: AwaitingQuality, Action: ShowQualities}},
	{AwaitingQuality, ChooseQuality, always, Transition{Next: Delivering, Action: DeliverVideo}},
}

// Step applies ev to a conversation in state from.
func Step(from State, ev Event, hasVariants bool) (Transition, error) {
	if from == Delivering {
		return Transition{}, ErrBusy
	}
	for _, r := range table {
		if r.from == from && r.on == ev && r.when(hasVariants) {
			return r.then, nil
		}
	}
	return Transition{}, fmt.Errorf("no transition for %s in state %s", ev, from)
}
