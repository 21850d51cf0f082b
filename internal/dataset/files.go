package dataset

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/ironsheep/suptools/internal/imaging"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ListFiles returns the paths of the regular files in dir, sorted. With recurse
// it descends into sub-directories, otherwise only direct children are listed.
// Directories themselves are never returned.
func ListFiles(dir string, recurse bool) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list files in %q", dir)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("failed to list files in %q: not a directory", dir)
	}

	var files []string
	if !recurse {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list files in %q", dir)
		}
		for _, entry := range entries {
			if entry.Type().IsRegular() {
				files = append(files, filepath.Join(dir, entry.Name()))
			}
		}
		return files, nil // ReadDir already sorts by name.
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list files in %q", dir)
	}
	sort.Strings(files)
	return files, nil
}

// ListImageFiles is ListFiles keeping only files with a known image extension.
func ListImageFiles(dir string, recurse bool) ([]string, error) {
	files, err := ListFiles(dir, recurse)
	if err != nil {
		return nil, err
	}
	images := files[:0]
	for _, f := range files {
		if imaging.IsImageFile(f) {
			images = append(images, f)
		}
	}
	if skipped := len(files) - len(images); skipped > 0 {
		klog.V(1).Infof("ListImageFiles(%q): skipped %d non-image files", dir, skipped)
	}
	return images, nil
}

// ClassNames returns the sorted names of the sub-directories of dir. For a
// dataset organized as dir/<class>/<image>, these are the class names.
func ClassNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read class names from %q", dir)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// ExpandPaths converts a mix of file paths, directories and glob patterns into
// a sorted list of unique files. Directories are expanded recursively to their
// image files; glob matches that are directories are expanded the same way.
func ExpandPaths(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(path string) {
		path = filepath.Clean(path)
		if _, found := seen[path]; !found {
			seen[path] = struct{}{}
			files = append(files, path)
		}
	}

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid path pattern %q", pattern)
		}
		if len(matches) == 0 {
			return nil, errors.Errorf("path %q matches no files", pattern)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to expand %q", pattern)
			}
			if !info.IsDir() {
				add(match)
				continue
			}
			dirFiles, err := ListImageFiles(match, true)
			if err != nil {
				return nil, err
			}
			for _, f := range dirFiles {
				add(f)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
