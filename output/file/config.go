package file

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/c360/filestreams/component"
	"github.com/c360/filestreams/errors"
)

// WriteMode decides what happens when the target file already exists
type WriteMode string

const (
	// ModeReplace atomically replaces the target
	ModeReplace WriteMode = "replace"
	// ModeAppend appends to the target in place
	ModeAppend WriteMode = "append"
	// ModeFail refuses to touch an existing target
	ModeFail WriteMode = "fail"
	// ModeIgnore silently skips an existing target
	ModeIgnore WriteMode = "ignore"
)

// DefaultName is the filename used when neither name nor name_expression is set
const DefaultName = "file-sink"

// DefaultDirectory is used when neither directory nor directory_expression is set
func DefaultDirectory() string {
	return filepath.Join(os.TempDir(), "file-sink")
}

// DefaultLineSeparator is the platform line terminator appended in text mode
func DefaultLineSeparator() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}

// Config holds configuration for the file sink component
type Config struct {
	Directory           string `json:"directory,omitempty"            schema:"type:string,description:Static target directory,category:basic"`
	DirectoryExpression string `json:"directory_expression,omitempty" schema:"type:string,description:Expression computing the target directory,category:basic"`
	Name                string `json:"name,omitempty"                 schema:"type:string,description:Static target filename,category:basic"`
	NameExpression      string `json:"name_expression,omitempty"      schema:"type:string,description:Expression computing the target filename,category:basic"`
	Suffix              string `json:"suffix,omitempty"               schema:"type:string,description:Filename suffix appended unless already present,category:basic"`

	Binary        bool      `json:"binary"                   schema:"type:bool,description:Write payload bytes verbatim,category:basic,default:false"`
	Mode          WriteMode `json:"mode"                     schema:"type:enum,description:Behaviour for existing targets,category:basic,enum:replace|append|fail|ignore,default:replace"`
	LineSeparator string    `json:"line_separator,omitempty" schema:"type:string,description:Terminator appended in text mode (platform default when empty),category:advanced"`

	Workers   int `json:"workers"    schema:"type:int,description:Concurrent writers (0 writes on the delivering goroutine),category:advanced,min:0,default:0"`
	QueueSize int `json:"queue_size" schema:"type:int,description:Pending messages per sink when workers > 0,category:advanced,min:1,default:1000"`

	Ports *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`
}

// DefaultConfig returns the defaults for the file sink
func DefaultConfig() Config {
	return Config{
		Mode:      ModeReplace,
		QueueSize: 1000,
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "input",
					Type:        "nats",
					Subject:     "file.sink",
					Required:    true,
					Interface:   "message.Message",
					Description: "Messages to write to files",
				},
			},
		},
	}
}

// Validate checks the configuration for errors. Expressions are compiled by
// NewResolver, not here.
func (c *Config) Validate() error {
	if c.Directory != "" && c.DirectoryExpression != "" {
		return errors.WrapInvalid(fmt.Errorf("directory and directory_expression are mutually exclusive"),
			"Config", "Validate", "directory check")
	}
	if c.Name != "" && c.NameExpression != "" {
		return errors.WrapInvalid(fmt.Errorf("name and name_expression are mutually exclusive"),
			"Config", "Validate", "name check")
	}
	if strings.ContainsAny(c.Name, `/\`) {
		return errors.WrapInvalid(fmt.Errorf("name %q contains a path separator", c.Name),
			"Config", "Validate", "name check")
	}
	if strings.ContainsAny(c.Suffix, `/\`) {
		return errors.WrapInvalid(fmt.Errorf("suffix %q contains a path separator", c.Suffix),
			"Config", "Validate", "suffix check")
	}

	switch c.Mode {
	case ModeReplace, ModeAppend, ModeFail, ModeIgnore:
	default:
		return errors.WrapInvalid(fmt.Errorf("unknown mode %q", c.Mode), "Config", "Validate", "mode check")
	}

	if c.Workers < 0 {
		return errors.WrapInvalid(fmt.Errorf("workers cannot be negative"), "Config", "Validate", "workers check")
	}
	if c.Workers > 0 && c.QueueSize <= 0 {
		return errors.WrapInvalid(fmt.Errorf("queue_size must be positive"), "Config", "Validate", "queue check")
	}

	if c.Ports != nil {
		for _, in := range c.Ports.Inputs {
			if in.Subject == "" {
				return errors.WrapInvalid(fmt.Errorf("input port %q has no subject", in.Name),
					"Config", "Validate", "port check")
			}
		}
	}
	return nil
}

func (c *Config) lineSeparator() string {
	if c.LineSeparator != "" {
		return c.LineSeparator
	}
	return DefaultLineSeparator()
}
