package backend

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration       = errors.New("invalid feed configuration")
	ErrFeedIndexOutOfRange = errors.New("feed index out of range")
)

// ConfigurationError reports a feed list that breaks the startup invariants: at least one feed, and every feed has a
// name and a url. Index is -1 when the problem is with the list as a whole.
type ConfigurationError struct {
	Index int
	Field string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%v: %s", ErrConfiguration, e.Msg)
	}
	if e.Field == "" {
		return fmt.Sprintf("%v: feed %d %s", ErrConfiguration, e.Index, e.Msg)
	}
	return fmt.Sprintf("%v: feed %d %s %s", ErrConfiguration, e.Index, e.Field, e.Msg)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%v: %d not in [0, %d)", ErrFeedIndexOutOfRange, e.Index, e.Len)
}

func (e *IndexError) Is(target error) bool {
	return target == ErrFeedIndexOutOfRange
}

// FetchError is returned when a feed could not be retrieved or parsed.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
