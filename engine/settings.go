package engine

// Settings are the operator-tunable engine settings.
type Settings struct {
	// TargetFramerate is the pacer target in frames per second.
	TargetFramerate float64

	// MouseWheelStep scales each scroll delta added to the mouse_wheel global.
	MouseWheelStep float32
}

// DefaultSettings returns 30 fps and a mouse wheel step of 0.1.
func DefaultSettings() Settings {
	return Settings{
		TargetFramerate: 30,
		MouseWheelStep:  0.1,
	}
}
