package fetch

import (
	"context"
	"io/fs"

	"go.uber.org/zap"

	"buildcost/internal/logging"
)

// FSFetcher reads pricing documents from a file system such as
// os.DirFS(dataDir) or the embedded default data set
type FSFetcher struct {
	fsys   fs.FS
	logger *zap.Logger
}

// NewFSFetcher creates a fetcher over fsys
func NewFSFetcher(fsys fs.FS, logger *zap.Logger) *FSFetcher {
	return &FSFetcher{
		fsys:   fsys,
		logger: logging.Component(logger, "fetch"),
	}
}

// FetchCatalog implements pricing.Fetcher
func (f *FSFetcher) FetchCatalog(ctx context.Context) ([]byte, error) {
	return f.read(ctx, CatalogPath)
}

// FetchFactors implements pricing.Fetcher
func (f *FSFetcher) FetchFactors(ctx context.Context, region string) ([]byte, error) {
	name, err := RegionPath(region)
	if err != nil {
		return nil, err
	}
	return f.read(ctx, name)
}

func (f *FSFetcher) read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(f.fsys, name)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("read pricing document", zap.String("path", name), zap.Int("bytes", len(data)))
	return data, nil
}
