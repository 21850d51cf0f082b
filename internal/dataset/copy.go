package dataset

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Names of the sub-directories written by CopySplit.
const (
	TrainDir = "train"
	ValidDir = "valid"
)

// ClassCounts maps a class name (parent directory name) to a number of files.
type ClassCounts map[string]int

// CountByClass counts files per parent directory name.
func CountByClass(files []string) ClassCounts {
	counts := make(ClassCounts)
	for _, f := range files {
		counts[filepath.Base(filepath.Dir(f))]++
	}
	return counts
}

// Classes returns the class names in counts, sorted.
func (c ClassCounts) Classes() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CopyOptions configures CopySplit.
type CopyOptions struct {
	// Workers is the maximum number of files copied in parallel. Defaults to DefaultWorkers.
	Workers int

	// Progress, if not nil, receives a progress bar.
	Progress io.Writer
}

// SplitSummary describes the files written by CopySplit.
type SplitSummary struct {
	Train, Valid ClassCounts
	Bytes        uint64
}

// CopySplit materializes a train/validation split on disk: each file is copied
// to destDir/train/<class>/<name> or destDir/valid/<class>/<name>, where <class>
// is the name of its parent directory, so the result can be read back with
// ClassNames and ReadImageDataset. Existing files are overwritten.
//
// Two different files mapping to the same destination (e.g. a/cats/1.jpg and
// b/cats/1.jpg) are an error, reported before anything is copied.
func CopySplit(ctx context.Context, train, valid []string, destDir string, opts CopyOptions) (*SplitSummary, error) {
	copies, err := splitDestinations(train, valid, destDir)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	progress := opts.Progress
	if progress == nil {
		progress = io.Discard
	}
	bar := progressbar.NewOptions(len(copies),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("copying"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
	)

	var written atomic.Uint64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, c := range copies {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := copyFile(c.src, c.dst)
			if err != nil {
				return err
			}
			written.Add(uint64(n))
			return bar.Add(1)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.WithMessagef(err, "failed to copy split into %q", destDir)
	}
	_ = bar.Finish()

	summary := &SplitSummary{
		Train: CountByClass(train),
		Valid: CountByClass(valid),
		Bytes: written.Load(),
	}
	klog.V(1).Infof("CopySplit: %d train and %d valid files written to %q", len(train), len(valid), destDir)
	return summary, nil
}

type fileCopy struct {
	src, dst string
}

// splitDestinations returns the copies CopySplit makes. A file listed twice is
// copied once.
func splitDestinations(train, valid []string, destDir string) ([]fileCopy, error) {
	sources := make(map[string]string, len(train)+len(valid))
	copies := make([]fileCopy, 0, len(train)+len(valid))
	for _, subset := range []struct {
		dir   string
		files []string
	}{{TrainDir, train}, {ValidDir, valid}} {
		for _, src := range subset.files {
			src = filepath.Clean(src)
			dst := filepath.Join(destDir, subset.dir, filepath.Base(filepath.Dir(src)), filepath.Base(src))
			if prev, found := sources[dst]; found {
				if prev == src {
					continue
				}
				return nil, errors.Errorf("%q and %q would both be copied to %q", prev, src, dst)
			}
			sources[dst] = src
			copies = append(copies, fileCopy{src: src, dst: dst})
		}
	}
	return copies, nil
}

// copyFile copies src to dst, creating the parent directories of dst.
func copyFile(src, dst string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, errors.Wrapf(err, "failed to create directory for %q", dst)
	}
	in, err := os.Open(src)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open %q", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to create %q", dst)
	}
	n, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, errors.Wrapf(err, "failed to copy %q to %q", src, dst)
	}
	return n, nil
}
