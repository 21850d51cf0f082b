package dataset

import (
	"math/rand"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// DefaultValidPct is the default fraction of files held out for validation.
const DefaultValidPct = 0.2

// TrainValidSplit randomly partitions files into a training and a validation set.
//
// The files are sorted before shuffling, so for a given rng seed the result
// does not depend on the input order. The training set gets the first
// int((1-validPct)*len(files)) shuffled files and the validation set the rest.
// A nil rng is seeded from the clock. The input slice is not modified.
func TrainValidSplit(files []string, validPct float64, rng *rand.Rand) (train, valid []string, err error) {
	if validPct < 0 || validPct > 1 {
		return nil, nil, errors.Errorf("validation fraction must be in [0, 1], got %g", validPct)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	shuffled := make([]string, len(files))
	copy(shuffled, files)
	sort.Strings(shuffled)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	cut := int((1 - validPct) * float64(len(shuffled)))
	return shuffled[:cut:cut], shuffled[cut:], nil
}
