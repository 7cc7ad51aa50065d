//go:build !linux

package copier

import (
	"context"

	"github.com/ringcp/ringcp/internal/config"
	"github.com/ringcp/ringcp/internal/fsops"
	"github.com/ringcp/ringcp/internal/hardlink"
)

type Copier struct{}

func New(worker any, tracker *hardlink.Tracker, opts config.Options) *Copier { return &Copier{} }

func (c *Copier) Copy(ctx context.Context, it Item) (Outcome, error) {
	return Outcome{}, fsops.ErrUnsupportedPlatform
}

func (c *Copier) FinalizeDirectory(it Item) error {
	return fsops.ErrUnsupportedPlatform
}
