package configstore

import (
	"errors"
	"fmt"
)

// Kind classifies configuration errors.
type Kind int

const (
	KindDuplicatePriority Kind = iota + 1
	KindDuplicateSource
	KindEmptySourceList
	KindUnknownSource
	KindMissingKey
	KindInvalidKey
	KindInvalidValue
)

var (
	// ErrDuplicatePriority is returned when two sources share a priority.
	ErrDuplicatePriority = errors.New("duplicate source priority")
	// ErrDuplicateSource is returned when two sources share a name.
	ErrDuplicateSource = errors.New("duplicate source name")
	// ErrEmptySourceList is returned when a store requiring sources gets none.
	ErrEmptySourceList = errors.New("no configuration sources registered")
	// ErrUnknownSource is returned when a reload targets an unregistered source.
	ErrUnknownSource = errors.New("unknown configuration source")
	// ErrMissingKey is returned when a required key is not defined by any source.
	ErrMissingKey = errors.New("configuration key not found")
	// ErrInvalidKey is returned for empty keys or keys with empty segments.
	ErrInvalidKey = errors.New("invalid configuration key")
	// ErrInvalidValue is returned when a value cannot be converted to the requested type.
	ErrInvalidValue = errors.New("invalid configuration value")
)

var kindSentinels = map[Kind]error{
	KindDuplicatePriority: ErrDuplicatePriority,
	KindDuplicateSource:   ErrDuplicateSource,
	KindEmptySourceList:   ErrEmptySourceList,
	KindUnknownSource:     ErrUnknownSource,
	KindMissingKey:        ErrMissingKey,
	KindInvalidKey:        ErrInvalidKey,
	KindInvalidValue:      ErrInvalidValue,
}

// Error describes a failed store operation. It matches the sentinel of its
// Kind with errors.Is and unwraps to the underlying cause, if any.
type Error struct {
	Kind   Kind
	Key    string
	Source string
	Err    error
}

func (e *Error) Error() string {
	msg := "configuration error"
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		msg = sentinel.Error()
	}
	switch {
	case e.Key != "" && e.Source != "":
		msg = fmt.Sprintf("%s: key %q in source %q", msg, e.Key, e.Source)
	case e.Key != "":
		msg = fmt.Sprintf("%s: key %q", msg, e.Key)
	case e.Source != "":
		msg = fmt.Sprintf("%s: source %q", msg, e.Source)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

func missingKey(key string) error {
	return &Error{Kind: KindMissingKey, Key: key}
}

func conflictWith(owner string, priority int) error {
	return fmt.Errorf("priority %d already used by source %q", priority, owner)
}
