package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/ironsheep/suptools/internal/dataset"
	"github.com/ironsheep/suptools/internal/plots"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

func runSplit(args []string) error {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	dir := fs.String("dir", "", "Dataset directory, with one sub-directory per class. Default: data_dir of the configuration")
	validPct := fs.Float64("valid-pct", -1, "Fraction of the images held out for validation. Default: valid_pct of the configuration")
	seed := fs.Int64("seed", 0, "Random seed. Default: seed of the configuration, or random")
	dest := fs.String("copy", "", "If set, copy the split to <copy>/train/<class> and <copy>/valid/<class>")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *dir != "" {
		cfg.DataDir = *dir
	}
	if *validPct >= 0 {
		cfg.ValidPct = *validPct
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	files, err := dataset.ListImageFiles(cfg.DataDir, true)
	if err != nil {
		return err
	}
	train, valid, err := dataset.TrainValidSplit(files, cfg.ValidPct, rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		return err
	}
	fmt.Println(splitTable(dataset.CountByClass(train), dataset.CountByClass(valid)))

	if *dest == "" {
		return nil
	}
	summary, err := dataset.CopySplit(context.Background(), train, valid, *dest,
		dataset.CopyOptions{Workers: cfg.Workers, Progress: os.Stderr})
	if err != nil {
		return err
	}
	fmt.Printf("\nCopied %s to %s\n", humanize.Bytes(summary.Bytes), *dest)
	return nil
}

// splitTable renders the number of train and valid images per class.
func splitTable(train, valid dataset.ClassCounts) string {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	numberStyle := cellStyle.Align(lipgloss.Right)
	headerStyle := lipgloss.NewStyle().Padding(0, 1).Bold(true).Reverse(true)
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return headerStyle
			case col > 0:
				return numberStyle
			default:
				return cellStyle
			}
		}).
		Headers("Class", "Train", "Valid", "Total")

	classes := make(dataset.ClassCounts)
	for class := range train {
		classes[class]++
	}
	for class := range valid {
		classes[class]++
	}
	var totalTrain, totalValid int
	for _, class := range classes.Classes() {
		t, v := train[class], valid[class]
		totalTrain += t
		totalValid += v
		table.Row(class, strconv.Itoa(t), strconv.Itoa(v), strconv.Itoa(t+v))
	}
	table.Row("all", strconv.Itoa(totalTrain), strconv.Itoa(totalValid), strconv.Itoa(totalTrain+totalValid))
	return table.String()
}

func runPreview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	modeName := fs.String("mode", "train", "Dataset mode: train, valid, test or predict")
	imgSize := fs.Int("img-size", 0, "Side of the images in pixels. Default: img_size of the configuration")
	seed := fs.Int64("seed", 0, "Random seed. Default: seed of the configuration, or random")
	output := fs.String("o", "batch.png", "Output PNG file")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	mode, err := dataset.ParseMode(*modeName)
	if err != nil {
		return err
	}
	if *imgSize > 0 {
		cfg.ImageSize = *imgSize
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	paths := fs.Args()
	if len(paths) == 0 {
		paths = []string{cfg.DataDir}
	} else if len(paths) == 1 && len(cfg.ClassNames) == 0 {
		if info, err := os.Stat(paths[0]); err == nil && info.IsDir() {
			cfg.DataDir = paths[0]
		}
	}

	dsCfg, err := cfg.DatasetConfig(mode)
	if err != nil {
		return err
	}
	ds, err := dataset.ReadImageDataset(paths, dsCfg)
	if err != nil {
		return err
	}
	if pds, ok := ds.(*dataset.PrefetchDataset); ok {
		defer pds.Done()
	}

	return writeFile(*output, func(w io.Writer) error {
		return plots.ShowBatch(ds, dsCfg.ClassNames, w)
	})
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	output := fs.String("o", "history.png", "Output PNG file")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("usage: suptools history [-o output.png] history.json")
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return errors.Wrap(err, "failed to open history")
	}
	defer f.Close()
	history, err := plots.LoadHistory(f)
	if err != nil {
		return err
	}
	return writeFile(*output, func(w io.Writer) error {
		return plots.PlotHistory(history, w)
	})
}

// writeFile creates path and writes it with write.
func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "failed to write %q", path)
	}
	klog.Infof("wrote %s", path)
	return nil
}
