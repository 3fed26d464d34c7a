package message

import (
	"encoding/json"
	"fmt"
	"time"
)

// FileReference describes a discovered file without carrying its contents.
type FileReference struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// Mark is the position of a FileMarker within a file's line sequence.
type Mark string

const (
	MarkStart Mark = "START"
	MarkEnd   Mark = "END"
)

// FileMarker brackets the line messages emitted for one file. LineCount is
// only meaningful on END markers and is omitted from START markers on the wire.
type FileMarker struct {
	Mark      Mark   `json:"mark"`
	FilePath  string `json:"filePath"`
	LineCount int    `json:"lineCount"`
}

// StartMarker returns the marker emitted before the first line of path.
func StartMarker(path string) FileMarker {
	return FileMarker{Mark: MarkStart, FilePath: path}
}

// EndMarker returns the marker emitted after the last line of path.
func EndMarker(path string, lineCount int) FileMarker {
	return FileMarker{Mark: MarkEnd, FilePath: path, LineCount: lineCount}
}

// MarshalJSON implements json.Marshaler.
func (m FileMarker) MarshalJSON() ([]byte, error) {
	if m.Mark != MarkStart && m.Mark != MarkEnd {
		return nil, fmt.Errorf("invalid marker %q", m.Mark)
	}
	if m.Mark == MarkStart {
		return json.Marshal(struct {
			Mark     Mark   `json:"mark"`
			FilePath string `json:"filePath"`
		}{m.Mark, m.FilePath})
	}
	type plain FileMarker
	return json.Marshal(plain(m))
}
