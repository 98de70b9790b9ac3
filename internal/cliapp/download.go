package cliapp

import (
	"context"

	"pault.ag/go/blobstore"

	"github.com/aptprep/aptprep/internal/config"
	"github.com/aptprep/aptprep/internal/fetch"
	"github.com/aptprep/aptprep/pkg/download"
	"github.com/aptprep/aptprep/pkg/lockfile"
)

// DownloadOptions collects what Download needs beyond the lockfile and
// config: where the content-addressed cache lives, and whether to
// render a progress bar.
type DownloadOptions struct {
	OutputDir    string
	StoreDir     string
	ShowProgress bool
}

// Download fetches every entry of lf, verifying each against its locked
// checksum, landing artifacts at <output>/<filename> (spec §4.7).
func Download(ctx context.Context, cfg *config.Config, lf *lockfile.Lockfile, opts DownloadOptions) ([]download.Result, error) {
	f := fetch.New(fetch.Config{
		MaxConcurrentPerHost: cfg.Network.MaxPerHost(),
		MaxConcurrentTotal:   cfg.Network.MaxTotal(),
		Timeout:              cfg.Network.PerRequestTimeout(),
	})

	store, err := blobstore.NewStore(opts.StoreDir)
	if err != nil {
		return nil, err
	}

	return download.Download(ctx, f, store, lf, download.Options{
		OutputDir:          opts.OutputDir,
		Sources:            coordinatesOf(cfg),
		MaxConcurrentTotal: cfg.Network.MaxTotal(),
		ShowProgress:       opts.ShowProgress,
	})
}
