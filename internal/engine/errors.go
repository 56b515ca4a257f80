package engine

import "fmt"

// Kind is the short machine-readable tag of a rejected player command.
type Kind string

const (
	KindWrongUser      Kind = "wrong user"
	KindWrongAction    Kind = "wrong action"
	KindWrongAmount    Kind = "wrong amount"
	KindMissingCard    Kind = "missing card"
	KindWrongPhase     Kind = "wrong phase"
	KindUnknownCommand Kind = "unknown command"
	KindFalseStart     Kind = "game false start"
)

// CommandError rejects a single player command. It never leaves the session
// in a partially applied state.
type CommandError struct {
	Kind Kind
	Msg  string
}

func (e *CommandError) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Msg
}

// Is matches any CommandError of the same kind, so errors.Is works against the
// sentinels below.
func (e *CommandError) Is(target error) bool {
	t, ok := target.(*CommandError)
	return ok && t.Kind == e.Kind
}

var ErrWrongUser = &CommandError{Kind: KindWrongUser}
var ErrWrongAction = &CommandError{Kind: KindWrongAction}
var ErrWrongAmount = &CommandError{Kind: KindWrongAmount}
var ErrMissingCard = &CommandError{Kind: KindMissingCard}
var ErrWrongPhase = &CommandError{Kind: KindWrongPhase}
var ErrUnknownCommand = &CommandError{Kind: KindUnknownCommand}
var ErrFalseStart = &CommandError{Kind: KindFalseStart}

// Errorf builds a CommandError of the given kind.
func Errorf(kind Kind, format string, args ...any) *CommandError {
	return &CommandError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
