//go:build !linux

package session

import (
	"context"

	"github.com/ringcp/ringcp/internal/config"
	"github.com/ringcp/ringcp/internal/fsops"
)

type Session struct{ stats *Stats }

func New(opts config.Options) (*Session, error) {
	return nil, fsops.ErrUnsupportedPlatform
}

func (s *Session) Close() error { return nil }

func (s *Session) Run(ctx context.Context, srcRoot, dstRoot string) error {
	return fsops.ErrUnsupportedPlatform
}

func (s *Session) Summary() string { return "" }

func (s *Session) ID() string { return "" }
