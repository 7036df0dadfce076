// Package framestore persists rendered frame streams.
//
// A frame store is a headerless file of N frames of W bytes each: frame i
// occupies bytes [i·W, (i+1)·W). The width is not recorded in the file and
// must be supplied when reading, normally from the device registry that
// produced it. A file whose size is not a multiple of W is corrupt.
//
// CreateStaged builds a replacement store beside the live one and swaps it
// in on Commit, so readers never see a partly written store.
package framestore
