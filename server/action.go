package main

import (
	"fmt"
	"strings"
)

// Action is one discrete thing an agent can do
type Action int

const (
	ActionNone Action = iota
	ActionMoveForward
	ActionMoveBackward
	ActionMoveLeft
	ActionMoveRight
	ActionJump
	ActionCrouch
	ActionWait
	ActionAttack
	ActionDefend
	ActionDodge
	ActionUppercut
	ActionHook
	ActionBodyShot
	ActionApproach
	ActionBackstep
	ActionSidestep
	actionCount
)

var actionLabels = [actionCount]string{
	ActionNone:         "none",
	ActionMoveForward:  "move_forward",
	ActionMoveBackward: "move_backward",
	ActionMoveLeft:     "move_left",
	ActionMoveRight:    "move_right",
	ActionJump:         "jump",
	ActionCrouch:       "crouch",
	ActionWait:         "wait",
	ActionAttack:       "attack",
	ActionDefend:       "defend",
	ActionDodge:        "dodge",
	ActionUppercut:     "uppercut",
	ActionHook:         "hook",
	ActionBodyShot:     "body_shot",
	ActionApproach:     "approach",
	ActionBackstep:     "backstep",
	ActionSidestep:     "sidestep",
}

func (a Action) String() string {
	if a < 0 || a >= actionCount {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionLabels[a]
}

// MarshalText lets actions travel as labels in JSON and msgpack
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	parsed, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// UnknownActionError is returned for labels outside the action set
type UnknownActionError struct {
	Label string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action %q", e.Label)
}

// ParseAction maps an exact label (case-insensitive) to its Action
func ParseAction(label string) (Action, error) {
	l := strings.ToLower(strings.TrimSpace(label))
	for a := ActionMoveForward; a < actionCount; a++ {
		if actionLabels[a] == l {
			return a, nil
		}
	}
	return ActionNone, &UnknownActionError{Label: label}
}

// IsMovement reports the four planar moves of the sandbox character
func (a Action) IsMovement() bool {
	switch a {
	case ActionMoveForward, ActionMoveBackward, ActionMoveLeft, ActionMoveRight:
		return true
	}
	return false
}

// IsStrike reports actions that try to land a blow
func (a Action) IsStrike() bool {
	switch a {
	case ActionAttack, ActionUppercut, ActionHook, ActionBodyShot:
		return true
	}
	return false
}

// IsSpecial reports the cooldown-gated strikes
func (a Action) IsSpecial() bool {
	switch a {
	case ActionUppercut, ActionHook, ActionBodyShot:
		return true
	}
	return false
}

// Vocabulary is an ordered action set. The order is the match priority used when
// reading free text.
type Vocabulary []Action

var (
	SandboxVocabulary = Vocabulary{
		ActionMoveForward, ActionMoveBackward, ActionMoveLeft, ActionMoveRight,
		ActionJump, ActionCrouch, ActionWait,
	}
	CombatVocabulary = Vocabulary{ActionAttack, ActionDefend, ActionDodge}
)

// Contains reports whether a is in the vocabulary
func (v Vocabulary) Contains(a Action) bool {
	for _, x := range v {
		if x == a {
			return true
		}
	}
	return false
}

// Random picks a uniformly random member
func (v Vocabulary) Random(rng RNG) Action {
	if len(v) == 0 {
		return ActionWait
	}
	return v[rng.Intn(len(v))]
}

// Labels returns the labels in priority order, for prompts
func (v Vocabulary) Labels() []string {
	out := make([]string, len(v))
	for i, a := range v {
		out[i] = a.String()
	}
	return out
}

// ParseOracleReply extracts an action from free text. The first vocabulary
// entry whose label occurs anywhere in the text, ignoring case, wins.
func ParseOracleReply(text string, vocab Vocabulary) (Action, bool) {
	lower := strings.ToLower(text)
	for _, a := range vocab {
		if strings.Contains(lower, a.String()) {
			return a, true
		}
	}
	return ActionNone, false
}
