package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrCommandQueueFull is returned by Submit when the command buffer has no free slot.
var ErrCommandQueueFull = errors.New("command queue full")

// ChannelError reports that the watcher's event channel was severed. It is fatal: the loop
// stops and Run returns it.
type ChannelError struct {
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("watcher channel: %v", e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}
