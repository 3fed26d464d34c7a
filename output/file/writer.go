package file

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/c360/filestreams/errors"
	"github.com/c360/filestreams/message"
)

const lockStripes = 64

// Writer materializes messages as files. Writes to the same path are
// serialized; writes to different paths may run concurrently.
type Writer struct {
	mode      WriteMode
	binary    bool
	separator []byte
	locks     [lockStripes]sync.Mutex
}

// NewWriter creates a writer. separator is appended to every payload unless
// binary is set.
func NewWriter(mode WriteMode, binary bool, separator string) *Writer {
	if mode == "" {
		mode = ModeReplace
	}
	return &Writer{mode: mode, binary: binary, separator: []byte(separator)}
}

// Write writes msg to t and returns the number of bytes written. In ignore
// mode an existing target is left alone and 0 is returned. Failures are
// WriteErrors naming the target path.
func (w *Writer) Write(t Target, msg *message.Message) (int64, error) {
	path := t.Path()
	data := msg.Payload()
	if !w.binary {
		data = append(append(make([]byte, 0, len(data)+len(w.separator)), data...), w.separator...)
	}

	lock := &w.locks[xxhash.Sum64String(path)%lockStripes]
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return 0, &errors.WriteError{Path: path, Err: err}
	}

	switch w.mode {
	case ModeAppend:
		return w.appendTo(path, data)
	case ModeIgnore:
		if _, err := os.Lstat(path); err == nil {
			return 0, nil
		}
		n, err := w.publish(path, data, false)
		if errors.Is(err, errors.ErrTargetExists) {
			return 0, nil
		}
		return n, err
	case ModeFail:
		return w.publish(path, data, false)
	default:
		return w.publish(path, data, true)
	}
}

func (w *Writer) appendTo(path string, data []byte) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return 0, &errors.WriteError{Path: path, Err: err}
	}
	n, err := f.Write(data)
	if err != nil {
		_ = f.Close()
		return int64(n), &errors.WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return int64(n), &errors.WriteError{Path: path, Err: err}
	}
	return int64(n), nil
}

// publish writes data to a hidden temp file next to path, syncs it and
// moves it into place. With replace unset the final step is a hard link,
// which fails if path exists.
func (w *Writer) publish(path string, data []byte, replace bool) (int64, error) {
	dir, name := filepath.Split(path)
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return 0, &errors.WriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpName, 0o644)
	}
	if err != nil {
		return 0, &errors.WriteError{Path: path, Err: err}
	}

	if replace {
		if err := os.Rename(tmpName, path); err != nil {
			return 0, &errors.WriteError{Path: path, Err: err}
		}
		return int64(n), nil
	}

	if err := os.Link(tmpName, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			err = errors.ErrTargetExists
		}
		return 0, &errors.WriteError{Path: path, Err: err}
	}
	return int64(n), nil
}
