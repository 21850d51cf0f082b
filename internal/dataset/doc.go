// Package dataset builds image classification datasets out of files on disk.
//
// Images are expected to be organized with one sub-directory per class:
//
//	data/
//	  cats/001.jpg
//	  cats/002.jpg
//	  dogs/001.jpg
//
// The label of an image is derived from the name of its parent directory, so
// the same file list can be split, copied and read back without any extra
// metadata.
//
// ReadImageDataset returns a github.com/gomlx/gomlx train.Dataset that yields
// batches of float32 image tensors shaped [batch, size, size, 3] together with
// one-hot label tensors shaped [batch, numClasses]. How images are cached,
// shuffled and augmented depends on the Mode:
//
//	Mode      cache  shuffle  augmentations
//	train     yes    yes      Augments.Train
//	valid     yes    no       Augments.Valid
//	test      yes    no       Augments.Valid
//	predict   no     no       Augments.Valid
package dataset
