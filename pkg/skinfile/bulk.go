package skinfile

import (
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/multierr"

	"github.com/Faultbox/weights-editor/pkg/names"
)

// PathFor returns the file path ExportAll uses for an object.
func PathFor(dir, object string) string {
	return filepath.Join(dir, names.ShortName(object)+Ext)
}

// ExportAll saves every file into dir, named after its object. It keeps
// going past failures and returns them combined.
func ExportAll(dir string, files []*File) error {
	var errs error
	for _, f := range files {
		path := PathFor(dir, f.Object)
		if err := Save(path, f); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("exporting %s: %w", f.Object, err))
		}
	}
	return errs
}

// ImportAll loads every skin file in dir. Files that fail to load or are
// older than MinFormatVersion are skipped and reported in the combined error.
func ImportAll(dir string) ([]*File, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+Ext))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var files []*File
	var errs error
	for _, path := range paths {
		f, err := Load(path)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if f.Version < MinFormatVersion {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s has version %v", ErrUnsupportedVersion, path, f.Version))
			continue
		}
		files = append(files, f)
	}
	return files, errs
}
