package file

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/c360/filestreams/bus"
	"github.com/c360/filestreams/component"
	"github.com/c360/filestreams/errors"
	"github.com/c360/filestreams/message"
)

// Mode selects how a discovered file becomes messages
type Mode string

// Consumer modes
const (
	ModeRef      Mode = "ref"
	ModeContents Mode = "contents"
	ModeLines    Mode = "lines"
)

// Seen-store backends
const (
	SeenStoreMemory = "memory"
	SeenStoreKV     = "kv"
)

// Trigger time units
const (
	UnitMilliseconds = "milliseconds"
	UnitSeconds      = "seconds"
	UnitMinutes      = "minutes"
)

// DefaultMaxLineBytes is the longest line accepted in lines mode
const DefaultMaxLineBytes = 1024 * 1024

// Config holds configuration for the file source component
type Config struct {
	Directory          string   `json:"directory"                    schema:"type:string,description:Directory to poll for new files,category:basic,required"`
	FilenamePattern    string   `json:"filename_pattern,omitempty"   schema:"type:string,description:Glob matched against the file base name,category:basic"`
	FilenameRegex      string   `json:"filename_regex,omitempty"     schema:"type:string,description:Regular expression matching the whole base name,category:basic"`
	Recursive          bool     `json:"recursive"                    schema:"type:bool,description:Descend into subdirectories,category:advanced,default:false"`
	IgnoreHidden       bool     `json:"ignore_hidden"                schema:"type:bool,description:Skip entries starting with a dot,category:advanced,default:true"`
	InProgressSuffixes []string `json:"in_progress_suffixes"         schema:"type:array,description:Suffixes of files still being written,category:advanced,default:.tmp"`

	Consumer ConsumerConfig `json:"consumer" schema:"type:object,description:How files become messages,category:basic"`
	Trigger  TriggerConfig  `json:"trigger"  schema:"type:object,description:Poll cadence,category:basic"`

	Watch                bool    `json:"watch"                   schema:"type:bool,description:Wake the poll loop on filesystem events,category:advanced,default:false"`
	RetryFailed          bool    `json:"retry_failed"            schema:"type:bool,description:Retry files that failed to split on the next cycle,category:advanced,default:true"`
	MaxMessagesPerSecond float64 `json:"max_messages_per_second" schema:"type:float,description:Emission rate limit (0 disables),category:advanced,min:0,default:0"`

	SeenStore SeenStoreConfig `json:"seen_store" schema:"type:object,description:Where emitted files are remembered,category:advanced"`

	Ports *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`
}

// ConsumerConfig controls splitting
type ConsumerConfig struct {
	Mode           Mode   `json:"mode"`
	WithMarkers    bool   `json:"with_markers"`
	ContentsAsText bool   `json:"contents_as_text"`
	ContentType    string `json:"content_type,omitempty"`
	MaxLineBytes   int    `json:"max_line_bytes"`
}

// TriggerConfig controls the poll cadence
type TriggerConfig struct {
	FixedDelay   int    `json:"fixed_delay"`
	TimeUnit     string `json:"time_unit"`
	InitialDelay int    `json:"initial_delay"`
}

// SeenStoreConfig selects the seen-set backend
type SeenStoreConfig struct {
	Type   string `json:"type"`
	Bucket string `json:"bucket,omitempty"`
}

// DefaultConfig returns the defaults for the file source
func DefaultConfig() Config {
	return Config{
		IgnoreHidden:       true,
		InProgressSuffixes: []string{".tmp"},
		Consumer: ConsumerConfig{
			Mode:         ModeContents,
			MaxLineBytes: DefaultMaxLineBytes,
		},
		Trigger: TriggerConfig{
			FixedDelay: 1,
			TimeUnit:   UnitSeconds,
		},
		RetryFailed: true,
		SeenStore:   SeenStoreConfig{Type: SeenStoreMemory},
		Ports: &component.PortConfig{
			Outputs: []component.PortDefinition{
				{
					Name:        "output",
					Type:        component.PortTypeNATS,
					Subject:     "file.source",
					Interface:   "message.Message",
					Required:    true,
					Description: "Subject receiving messages built from discovered files",
				},
			},
		},
	}
}

// Validate implements component.Validatable
func (c *Config) Validate() error {
	if c.Directory == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "directory")
	}
	if c.FilenamePattern != "" && c.FilenameRegex != "" {
		return errors.WrapInvalid(
			fmt.Errorf("filename_pattern and filename_regex are mutually exclusive"),
			"Config", "Validate", "filter validation")
	}
	if _, err := NewFilter(c.FilenamePattern, c.FilenameRegex); err != nil {
		return errors.Wrap(err, "Config", "Validate", "filter validation")
	}

	switch c.Consumer.Mode {
	case ModeRef, ModeContents, ModeLines:
	default:
		return errors.WrapInvalid(fmt.Errorf("unknown consumer mode %q", c.Consumer.Mode),
			"Config", "Validate", "consumer mode")
	}
	if c.Consumer.MaxLineBytes < 0 {
		return errors.WrapInvalid(fmt.Errorf("max_line_bytes must not be negative"),
			"Config", "Validate", "consumer max_line_bytes")
	}

	if c.Trigger.FixedDelay <= 0 {
		return errors.WrapInvalid(fmt.Errorf("fixed_delay must be positive, got %d", c.Trigger.FixedDelay),
			"Config", "Validate", "trigger fixed_delay")
	}
	if c.Trigger.InitialDelay < 0 {
		return errors.WrapInvalid(fmt.Errorf("initial_delay must not be negative"),
			"Config", "Validate", "trigger initial_delay")
	}
	if _, err := unitDuration(c.Trigger.TimeUnit); err != nil {
		return errors.WrapInvalid(err, "Config", "Validate", "trigger time_unit")
	}

	if c.MaxMessagesPerSecond < 0 {
		return errors.WrapInvalid(fmt.Errorf("max_messages_per_second must not be negative"),
			"Config", "Validate", "rate limit")
	}

	switch c.SeenStore.Type {
	case "", SeenStoreMemory:
	case SeenStoreKV:
		if c.SeenStore.Bucket == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Validate", "seen_store bucket")
		}
	default:
		return errors.WrapInvalid(fmt.Errorf("unknown seen_store type %q", c.SeenStore.Type),
			"Config", "Validate", "seen_store type")
	}

	if c.Ports != nil {
		for _, out := range c.Ports.Outputs {
			if !bus.ValidSubject(out.Subject) {
				return errors.WrapInvalid(fmt.Errorf("invalid output subject %q", out.Subject),
					"Config", "Validate", "output subject")
			}
		}
	}

	return nil
}

// Delay returns the wait between the end of one cycle and the next
func (t TriggerConfig) Delay() time.Duration {
	unit, _ := unitDuration(t.TimeUnit)
	return time.Duration(t.FixedDelay) * unit
}

// Initial returns the wait before the first cycle
func (t TriggerConfig) Initial() time.Duration {
	unit, _ := unitDuration(t.TimeUnit)
	return time.Duration(t.InitialDelay) * unit
}

func unitDuration(unit string) (time.Duration, error) {
	switch strings.ToLower(unit) {
	case UnitMilliseconds:
		return time.Millisecond, nil
	case "", UnitSeconds:
		return time.Second, nil
	case UnitMinutes:
		return time.Minute, nil
	}
	return 0, fmt.Errorf("unknown time unit %q", unit)
}

// textOutput reports whether ref mode should deliver the bare path
func (c ConsumerConfig) textOutput() bool {
	return strings.HasPrefix(strings.ToLower(c.ContentType), message.ContentTypeText)
}

// compileRegex anchors expr so it must match a whole name
func compileRegex(expr string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + expr + `)$`)
}
