package uri

import "fmt"

// SyntaxError reports a malformed RESTCONF request target. It carries the
// byte offset of the failure and a human description of what was expected,
// matching spec §4.1's "position and expected-token string" contract.
type SyntaxError struct {
	Input    string
	Position int
	Expected string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("restconf: invalid path at byte %d (expected %s): %q", e.Position, e.Expected, e.Input)
}

func syntaxErr(input string, pos int, expected string) error {
	return &SyntaxError{Input: input, Position: pos, Expected: expected}
}
