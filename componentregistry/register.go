// Package componentregistry registers the filestreams components.
package componentregistry

import (
	"errors"

	"github.com/c360/filestreams/component"
	pkgerrors "github.com/c360/filestreams/errors"
	filesource "github.com/c360/filestreams/input/file"
	filesink "github.com/c360/filestreams/output/file"
)

// Register registers every filestreams component with the provided registry:
//
//   - file-source (input): polls a directory and publishes messages
//   - file-sink (output): writes messages to files
func Register(registry *component.Registry) error {
	if registry == nil {
		return pkgerrors.WrapFatal(
			errors.New("registry cannot be nil"),
			"ComponentRegistry", "Register", "registry validation")
	}

	if err := filesource.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "file source component registration")
	}

	if err := filesink.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "file sink component registration")
	}

	return nil
}
