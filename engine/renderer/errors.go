package renderer

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNoPipeline is returned by per-frame operations when no pipeline has been made current yet.
var ErrNoPipeline = errors.New("no current pipeline")

// PipelineError reports a pipeline that could not be built or a frame that could not be rendered.
// A build failure never replaces the current pipeline.
type PipelineError struct {
	Key string
	Err error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Key, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
