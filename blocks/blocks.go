// Package blocks provides the synthetic blocks used to drive blocks under
// test, and a small catalog of numeric blocks.
//
// Importing the package registers every block with kblock.DefaultRegistry.
package blocks

import (
	_ "embed"

	"github.com/birdayz/kflow/kblock"
)

// Logical paths of the registered blocks.
const (
	FeederSourcePath  = "/blocks/feeder_source"
	CollectorSinkPath = "/blocks/collector_sink"

	OnesPath         = "/numeric/ones"
	ZerosPath        = "/numeric/zeros"
	FullPath         = "/numeric/full"
	NegativePath     = "/numeric/negative"
	SquarePath       = "/numeric/square"
	CumSumPath       = "/numeric/cumsum"
	ScalePath        = "/numeric/scale"
	DecimatePath     = "/numeric/decimate"
	AddPath          = "/numeric/add"
	MultiplyPath     = "/numeric/multiply"
	SplitComplexPath = "/numeric/split_complex"
)

// CatalogYAML is the test matrix of the numeric blocks.
//
//go:embed catalog.yaml
var CatalogYAML []byte

var factories = map[string]kblock.Factory{
	FeederSourcePath:  NewFeederSource,
	CollectorSinkPath: NewCollectorSink,
	OnesPath:          NewOnes,
	ZerosPath:         NewZeros,
	FullPath:          NewFull,
	NegativePath:      NewNegative,
	SquarePath:        NewSquare,
	CumSumPath:        NewCumSum,
	ScalePath:         NewScale,
	DecimatePath:      NewDecimate,
	AddPath:           NewAdd,
	MultiplyPath:      NewMultiply,
	SplitComplexPath:  NewSplitComplex,
}

// Register adds every block of this package to r.
func Register(r *kblock.Registry) error {
	for path, f := range factories {
		if err := r.Register(path, f); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	if err := Register(kblock.DefaultRegistry); err != nil {
		panic(err)
	}
}
