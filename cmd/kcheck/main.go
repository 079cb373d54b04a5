// Command kcheck runs every block of the built-in catalog through the
// harness, or the blocks of the matrix files given as arguments, and exits
// with status 1 if any case failed.
package main

import (
	"os"

	"github.com/birdayz/kflow/blocks"
	"github.com/birdayz/kflow/kcheck"
	"github.com/birdayz/kflow/pkg/log"
)

func main() {
	zl := log.New()
	logger := log.Slog(zl)

	matrices := []kcheck.Matrix{}
	if len(os.Args) > 1 {
		for _, path := range os.Args[1:] {
			m, err := kcheck.LoadMatrix(path)
			if err != nil {
				zl.Fatal().Err(err).Str("path", path).Msg("Failed to load matrix")
			}
			matrices = append(matrices, m)
		}
	} else {
		m, err := kcheck.ParseMatrix(blocks.CatalogYAML)
		if err != nil {
			zl.Fatal().Err(err).Msg("Failed to parse catalog")
		}
		matrices = append(matrices, m)
	}

	h := kcheck.New(kcheck.WithLog(logger))
	report := &kcheck.Report{}
	for _, m := range matrices {
		report.Results = append(report.Results, h.RunMatrix(m).Results...)
	}

	if _, err := report.WriteTo(os.Stdout); err != nil {
		zl.Error().Err(err).Msg("Failed to write report")
	}
	if report.Failed() > 0 {
		os.Exit(1)
	}
}
