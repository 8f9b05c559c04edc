package recipe

import "fmt"

// ParseError reports a recipe that could not be turned into a Descriptor.
// The run skips the recipe and continues.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("recipe %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
