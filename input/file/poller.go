package file

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/c360/filestreams/errors"
)

// DiscoveredFile is a file found by a poll cycle
type DiscoveredFile struct {
	Path         string // absolute
	RelativePath string // relative to the watched root, slash separated
	Name         string
	Size         int64
	ModTime      time.Time
}

// Poller lists a watched directory and reports files not emitted before
type Poller struct {
	root         string
	filter       Filter
	recursive    bool
	ignoreHidden bool
	suffixes     []string
	seen         SeenStore
	logger       *slog.Logger
}

// NewPoller creates a poller for cfg.Directory. A nil seen store gets an
// in-memory one.
func NewPoller(cfg Config, seen SeenStore, logger *slog.Logger) (*Poller, error) {
	root, err := filepath.Abs(cfg.Directory)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Poller", "NewPoller", "resolve directory")
	}
	filter, err := NewFilter(cfg.FilenamePattern, cfg.FilenameRegex)
	if err != nil {
		return nil, err
	}
	if seen == nil {
		seen = NewMemorySeenStore()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		root:         root,
		filter:       filter,
		recursive:    cfg.Recursive,
		ignoreHidden: cfg.IgnoreHidden,
		suffixes:     cfg.InProgressSuffixes,
		seen:         seen,
		logger:       logger,
	}, nil
}

// Root returns the absolute watched directory
func (p *Poller) Root() string { return p.root }

// Poll lists the directory and returns eligible files that have not been
// marked seen, sorted by path. Seen entries whose file is gone are
// forgotten. An unreadable root returns a DiscoveryError.
func (p *Poller) Poll(ctx context.Context) ([]DiscoveredFile, error) {
	listed, err := p.list()
	if err != nil {
		return nil, err
	}

	present := make(map[string]struct{}, len(listed))
	var fresh []DiscoveredFile
	for _, f := range listed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		present[f.Path] = struct{}{}

		seen, err := p.seen.Contains(ctx, f.Path)
		if err != nil {
			return nil, &errors.DiscoveryError{Directory: p.root, Err: err}
		}
		if !seen {
			fresh = append(fresh, f)
		}
	}

	if err := p.seen.Retain(ctx, present); err != nil {
		p.logger.Warn("Failed to prune seen files", "directory", p.root, "error", err)
	}

	sort.Slice(fresh, func(i, j int) bool { return fresh[i].Path < fresh[j].Path })
	return fresh, nil
}

// MarkSeen records f as emitted
func (p *Poller) MarkSeen(ctx context.Context, f DiscoveredFile) error {
	return p.seen.Add(ctx, f.Path)
}

func (p *Poller) list() ([]DiscoveredFile, error) {
	if !p.recursive {
		entries, err := os.ReadDir(p.root)
		if err != nil {
			return nil, &errors.DiscoveryError{Directory: p.root, Err: err}
		}
		files := make([]DiscoveredFile, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if f, ok := p.accept(filepath.Join(p.root, entry.Name()), entry); ok {
				files = append(files, f)
			}
		}
		return files, nil
	}

	var files []DiscoveredFile
	err := filepath.WalkDir(p.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == p.root {
				return err
			}
			p.logger.Warn("Skipping unreadable entry", "path", path, "error", err)
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			if path != p.root && p.ignoreHidden && hidden(entry.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if f, ok := p.accept(path, entry); ok {
			files = append(files, f)
		}
		return nil
	})
	if err != nil {
		return nil, &errors.DiscoveryError{Directory: p.root, Err: err}
	}
	return files, nil
}

func (p *Poller) accept(path string, entry fs.DirEntry) (DiscoveredFile, bool) {
	name := entry.Name()
	if p.ignoreHidden && hidden(name) {
		return DiscoveredFile{}, false
	}
	for _, suffix := range p.suffixes {
		if suffix != "" && strings.HasSuffix(name, suffix) {
			return DiscoveredFile{}, false
		}
	}
	if !p.filter.Match(name) {
		return DiscoveredFile{}, false
	}

	var info fs.FileInfo
	var err error
	if entry.Type()&fs.ModeSymlink != 0 {
		info, err = os.Stat(path)
	} else {
		info, err = entry.Info()
	}
	if err != nil {
		// Removed between listing and stat, or unreadable
		p.logger.Warn("Skipping file", "path", path, "error", err)
		return DiscoveredFile{}, false
	}
	if !info.Mode().IsRegular() {
		return DiscoveredFile{}, false
	}

	rel, err := filepath.Rel(p.root, path)
	if err != nil {
		rel = name
	}

	return DiscoveredFile{
		Path:         path,
		RelativePath: filepath.ToSlash(rel),
		Name:         name,
		Size:         info.Size(),
		ModTime:      info.ModTime(),
	}, true
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
