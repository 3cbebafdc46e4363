package commands

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"
)

// TaskRef is a parsed task reference: either a 1-based position in the
// current task view, or a backend task ID.
type TaskRef struct {
	Index int    // 1-based, 0 when the reference is an ID
	ID    string // backend ID, empty when the reference is positional
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses a task reference from args. An all-digits argument is
// a position in the displayed task list; anything else is taken as a task ID.
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}
	ref := args[0]

	if isAllDigits(ref) {
		n, err := strconv.Atoi(ref)
		if err != nil || n < 1 {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", ref)
		}
		return TaskRef{Index: n}, nil
	}
	return TaskRef{ID: ref}, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
