package file

import (
	"bufio"
	"os"
	"strconv"

	"github.com/c360/filestreams/errors"
	"github.com/c360/filestreams/message"
)

// Splitter turns a discovered file into the messages for one consumer mode
type Splitter struct {
	cfg    ConsumerConfig
	source string
}

// NewSplitter creates a splitter. source is recorded on every message.
func NewSplitter(cfg ConsumerConfig, source string) *Splitter {
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = DefaultMaxLineBytes
	}
	return &Splitter{cfg: cfg, source: source}
}

// Build reads f and returns every message for it. Nothing is returned on
// error, so a failed file never produces a partial sequence.
func (s *Splitter) Build(f DiscoveredFile) ([]*message.Message, error) {
	switch s.cfg.Mode {
	case ModeRef:
		return s.buildRef(f)
	case ModeLines:
		return s.buildLines(f)
	default:
		return s.buildContents(f)
	}
}

func (s *Splitter) options(f DiscoveredFile, extra ...message.Option) []message.Option {
	opts := []message.Option{
		message.WithHeader(message.HeaderFilename, f.Name),
		message.WithHeader(message.HeaderRelativePath, f.RelativePath),
		message.WithHeader(message.HeaderOriginalFile, f.Path),
	}
	if s.source != "" {
		opts = append(opts, message.WithSource(s.source))
	}
	return append(opts, extra...)
}

func (s *Splitter) buildRef(f DiscoveredFile) ([]*message.Message, error) {
	if s.cfg.textOutput() {
		msg := message.NewText(f.Path, s.options(f, message.WithHeader(message.HeaderContentType, s.cfg.ContentType))...)
		return []*message.Message{msg}, nil
	}

	var extra []message.Option
	if s.cfg.ContentType != "" {
		extra = append(extra, message.WithHeader(message.HeaderContentType, s.cfg.ContentType))
	}
	msg, err := message.NewReference(message.FileReference{
		Path:    f.Path,
		Name:    f.Name,
		Size:    f.Size,
		ModTime: f.ModTime,
	}, s.options(f, extra...)...)
	if err != nil {
		return nil, &errors.SplitError{Path: f.Path, Err: err}
	}
	return []*message.Message{msg}, nil
}

func (s *Splitter) buildContents(f DiscoveredFile) ([]*message.Message, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, &errors.SplitError{Path: f.Path, Err: err}
	}
	if s.cfg.ContentsAsText {
		return []*message.Message{message.NewText(string(data), s.options(f)...)}, nil
	}
	return []*message.Message{message.NewBytes(data, s.options(f)...)}, nil
}

func (s *Splitter) buildLines(f DiscoveredFile) ([]*message.Message, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, &errors.SplitError{Path: f.Path, Err: err}
	}
	defer file.Close()

	var msgs []*message.Message
	if s.cfg.WithMarkers {
		start, err := message.NewMarker(message.StartMarker(f.Path), s.options(f)...)
		if err != nil {
			return nil, &errors.SplitError{Path: f.Path, Err: err}
		}
		msgs = append(msgs, start)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, min(64*1024, s.cfg.MaxLineBytes)), s.cfg.MaxLineBytes)

	lines := 0
	for scanner.Scan() {
		lines++
		msgs = append(msgs, message.NewText(scanner.Text(),
			s.options(f, message.WithHeader(message.HeaderLineNumber, strconv.Itoa(lines)))...))
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			err = errors.ErrLineTooLong
		}
		return nil, &errors.SplitError{Path: f.Path, Err: err}
	}

	if s.cfg.WithMarkers {
		end, err := message.NewMarker(message.EndMarker(f.Path, lines), s.options(f)...)
		if err != nil {
			return nil, &errors.SplitError{Path: f.Path, Err: err}
		}
		msgs = append(msgs, end)
	}
	return msgs, nil
}
