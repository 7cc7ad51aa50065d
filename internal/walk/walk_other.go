//go:build !linux

package walk

import (
	"context"

	"github.com/ringcp/ringcp/internal/config"
	"github.com/ringcp/ringcp/internal/fsops"
)

type Entry struct {
	SrcPath       string
	DstPath       string
	Meta          fsops.Metadata
	SymlinkTarget string
	Finalize      bool
}

type VisitFunc func(ctx context.Context, e Entry) error

type Walker struct{}

func New(opts config.Options) *Walker { return &Walker{} }

func (w *Walker) Walk(ctx context.Context, srcRoot, dstRoot string, visit VisitFunc) error {
	return fsops.ErrUnsupportedPlatform
}
