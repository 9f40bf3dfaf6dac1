package shader

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ShaderType identifies which pipeline stage a shader provides.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type. The engine supplies its own full-screen
	// triangle vertex stage.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, the stage authored by the user.
	ShaderTypeFragment
)

// String returns the WGSL attribute name of the stage.
func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// shader is the implementation of the Shader interface.
// It holds the pre-processed source and everything extracted from it.
type shader struct {
	key        string
	path       string
	source     string
	shaderType ShaderType
	entryPoint string
	parameters Parameters
}

// Shader defines the interface for a loaded and pre-processed WGSL shader. It exposes the
// cleaned source handed to the driver, its entry point, and the declared parameters.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for labels and logging.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Path returns the file the shader was read from, empty for in-memory sources.
	//
	// Returns:
	//   - string: the source file path
	Path() string

	// Source retrieves the pre-processed WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code with all annotations replaced
	Source() string

	// EntryPoint returns the entry point name for this shader's stage.
	//
	// Returns:
	//   - string: the entry point name (e.g. "fs_main")
	EntryPoint() string

	// ShaderType returns the stage this shader provides.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex or ShaderTypeFragment
	ShaderType() ShaderType

	// Parameters returns a copy of the parameters declared by the shader, in declaration order.
	//
	// Returns:
	//   - Parameters: the declared parameters with their values set to the declared defaults
	Parameters() Parameters
}

var _ Shader = &shader{}

// NewShader pre-processes in-memory WGSL source into a Shader.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage the source provides
//   - source: the raw WGSL source code
//
// Returns:
//   - Shader: the pre-processed shader
//   - error: an *ExtractionError if an annotation is invalid or no entry point is found
func NewShader(key string, shaderType ShaderType, source string) (Shader, error) {
	s := &shader{
		key:        key,
		shaderType: shaderType,
	}
	if err := s.parseSource(source); err != nil {
		return nil, &ExtractionError{Err: err}
	}
	return s, nil
}

// LoadShader reads a fragment shader from disk and pre-processes it. The shader key is the
// cleaned path.
//
// Parameters:
//   - path: the WGSL file to read
//
// Returns:
//   - Shader: the pre-processed shader
//   - error: an *ExtractionError if the file cannot be read or its annotations are invalid
func LoadShader(path string) (Shader, error) {
	clean := filepath.Clean(path)
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, &ExtractionError{Path: clean, Err: errors.Wrap(err, "failed to read shader source")}
	}
	s := &shader{
		key:        clean,
		path:       clean,
		shaderType: ShaderTypeFragment,
	}
	if err := s.parseSource(string(data)); err != nil {
		return nil, &ExtractionError{Path: clean, Err: err}
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Path() string {
	return s.path
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) Parameters() Parameters {
	return s.parameters.Clone()
}

// parseSource runs the pre-processor over the raw source and records the cleaned source,
// declared parameters and entry point. Nothing is stored unless every step succeeds.
func (s *shader) parseSource(raw string) error {
	pp := NewPreProcessor()
	source, err := pp.Process(raw)
	if err != nil {
		return err
	}
	entryPoint := parseEntryPoint(source, s.shaderType)
	if entryPoint == "" {
		return fmt.Errorf("no @%s entry point found", s.shaderType)
	}
	s.source = source
	s.parameters = pp.Parameters()
	s.entryPoint = entryPoint
	return nil
}
