package file

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/c360/filestreams/errors"
)

// Filter decides which base names are eligible. The zero value accepts
// everything.
type Filter struct {
	glob  string
	regex *regexp.Regexp
}

// NewFilter builds a filter from at most one of a glob and a regular
// expression. The regular expression must match the whole name.
func NewFilter(glob, regex string) (Filter, error) {
	if glob != "" && regex != "" {
		return Filter{}, errors.WrapInvalid(
			fmt.Errorf("glob %q and regex %q are mutually exclusive", glob, regex),
			"Filter", "NewFilter", "filter selection")
	}
	if glob != "" {
		if _, err := filepath.Match(glob, ""); err != nil {
			return Filter{}, errors.WrapInvalid(err, "Filter", "NewFilter", "glob compile")
		}
		return Filter{glob: glob}, nil
	}
	if regex != "" {
		re, err := compileRegex(regex)
		if err != nil {
			return Filter{}, errors.WrapInvalid(err, "Filter", "NewFilter", "regex compile")
		}
		return Filter{regex: re}, nil
	}
	return Filter{}, nil
}

// Match reports whether name passes the filter
func (f Filter) Match(name string) bool {
	switch {
	case f.glob != "":
		ok, _ := filepath.Match(f.glob, name)
		return ok
	case f.regex != nil:
		return f.regex.MatchString(name)
	}
	return true
}

// String describes the filter for logs
func (f Filter) String() string {
	switch {
	case f.glob != "":
		return "glob:" + f.glob
	case f.regex != nil:
		return "regex:" + f.regex.String()
	}
	return "none"
}
