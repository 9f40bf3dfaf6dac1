package engine

import "fmt"

// CommandType identifies an operator command.
type CommandType int

const (
	// CommandLoad extracts, builds and swaps in the shader at Command.Path.
	CommandLoad CommandType = iota
	// CommandReload repeats CommandLoad for the active path.
	CommandReload
	// CommandWatch subscribes to changes of Command.Path.
	CommandWatch
	// CommandUnwatch clears the change subscription.
	CommandUnwatch
	// CommandSetTargetFramerate sets the pacer target to Command.Framerate.
	CommandSetTargetFramerate
	// CommandRestart resets the frame counter, simulated time and mouse wheel.
	CommandRestart
	// CommandExit stops the loop at the next iteration boundary.
	CommandExit
)

func (t CommandType) String() string {
	switch t {
	case CommandLoad:
		return "load"
	case CommandReload:
		return "reload"
	case CommandWatch:
		return "watch"
	case CommandUnwatch:
		return "unwatch"
	case CommandSetTargetFramerate:
		return "set_target_framerate"
	case CommandRestart:
		return "restart"
	case CommandExit:
		return "exit"
	default:
		return fmt.Sprintf("CommandType(%d)", int(t))
	}
}

// Command is a request applied by the engine at the next iteration boundary.
type Command struct {
	Type CommandType

	// Path is the shader file for CommandLoad and CommandWatch.
	Path string

	// Framerate is the target for CommandSetTargetFramerate.
	Framerate float64
}

// LoadCommand loads the shader at path, replacing the current one only if it builds.
//
// Parameters:
//   - path: the WGSL file
//
// Returns:
//   - Command: the load command
func LoadCommand(path string) Command {
	return Command{Type: CommandLoad, Path: path}
}

// ReloadCommand reloads the file that was last loaded, keeping live parameter values.
func ReloadCommand() Command {
	return Command{Type: CommandReload}
}

// WatchCommand starts watching path and reloads on every debounced change. It replaces any earlier watch.
func WatchCommand(path string) Command {
	return Command{Type: CommandWatch, Path: path}
}

// UnwatchCommand stops watching.
func UnwatchCommand() Command {
	return Command{Type: CommandUnwatch}
}

// SetTargetFramerateCommand changes the pacer target.
//
// Parameters:
//   - fps: frames per second; values outside the pacer bounds are rejected and logged
//
// Returns:
//   - Command: the framerate command
func SetTargetFramerateCommand(fps float64) Command {
	return Command{Type: CommandSetTargetFramerate, Framerate: fps}
}

// RestartCommand resets simulated time, the frame counter and the accumulated mouse wheel.
func RestartCommand() Command {
	return Command{Type: CommandRestart}
}

// ExitCommand makes Run return nil once the pending commands are applied.
func ExitCommand() Command {
	return Command{Type: CommandExit}
}
