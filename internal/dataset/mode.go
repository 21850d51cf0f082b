package dataset

import (
	"fmt"
	"strings"

	"github.com/ironsheep/suptools/internal/imaging"
	"github.com/pkg/errors"
)

// Mode selects how a dataset processes its images.
type Mode int

const (
	ModeTrain Mode = iota
	ModeValid
	ModeTest
	ModePredict
)

var modeNames = []string{"train", "valid", "test", "predict"}

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode converts a mode name (case-insensitive) to a Mode.
func ParseMode(name string) (Mode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	return 0, errors.Errorf("unknown dataset mode %q, valid values are %v", name, modeNames)
}

// Shuffles reports whether datasets in this mode are shuffled.
func (m Mode) Shuffles() bool { return m == ModeTrain }

// Caches reports whether datasets in this mode cache decoded images.
func (m Mode) Caches() bool { return m != ModePredict }

// Augments holds the augmentation chains of a dataset: Train is used in
// ModeTrain, Valid in every other mode.
type Augments struct {
	Train []imaging.Augmentation
	Valid []imaging.Augmentation
}

// DefaultAugments returns random crop, horizontal flip, brightness and contrast
// for training, and a central crop for everything else.
func DefaultAugments() *Augments {
	return &Augments{
		Train: []imaging.Augmentation{
			imaging.RandomCrop(imaging.DefaultCropPercent),
			imaging.RandomFlip(true, false),
			imaging.RandomBrightness(imaging.DefaultMaxBrightnessDelta),
			imaging.RandomContrast(imaging.DefaultContrastLower, imaging.DefaultContrastUpper),
		},
		Valid: []imaging.Augmentation{imaging.CentralCrop()},
	}
}

// For returns the augmentation chain used in mode. A nil Augments means no augmentation.
func (a *Augments) For(mode Mode) []imaging.Augmentation {
	if a == nil {
		return nil
	}
	if mode == ModeTrain {
		return a.Train
	}
	return a.Valid
}
