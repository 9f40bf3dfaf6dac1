package shader

import "fmt"

// ExtractionError reports a shader source that could not be turned into a cleaned
// source and parameter list. The file path is empty when the source did not come from disk.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("shader extraction failed: %v", e.Err)
	}
	return fmt.Sprintf("shader extraction failed for %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
