// Package copier implements the File Copy State Machine (§4.6, C6):
// stat, plan, open/create, preallocate, advise, transfer, post-copy
// advise, metadata, close — for every Path Entry kind the traversal
// driver hands it, not just regular files.
package copier

import (
	"github.com/ringcp/ringcp/internal/config"
	"github.com/ringcp/ringcp/internal/fsops"
	"github.com/ringcp/ringcp/internal/hardlink"
)

// Item is one Path Entry handed to the copier by the traversal driver
// (§3/§4.7), already stat'd.
type Item struct {
	SrcPath       string
	DstPath       string
	Meta          fsops.Metadata
	SymlinkTarget string // populated by the walker for fsops.Symlink kinds
	HardlinkKey   hardlink.Key
}

// Outcome reports what a single Item's copy actually did, for the
// session's Stats accumulation (the supplemented session Summary).
type Outcome struct {
	Strategy    Strategy // zero value for non-regular kinds
	BytesCopied int64
	Hardlinked  bool
	Skipped     bool // dry-run: nothing was written
}

// Strategy is the transfer technique chosen for a regular file (§4.6
// Plan Strategy).
type Strategy int

const (
	// StrategyReflink attempts a copy-on-write clone; on Unsupported it
	// falls through to the next candidate in the same call, so it is
	// never a terminal failure on its own.
	StrategyReflink Strategy = iota
	StrategyRangeCopy
	StrategyBuffered
)

func (s Strategy) String() string {
	switch s {
	case StrategyReflink:
		return "reflink"
	case StrategyRangeCopy:
		return "range-copy"
	default:
		return "buffered"
	}
}

// PlanStrategy chooses the transfer technique for a regular file (§4.6
// step 2): an explicit --copy-method pins one strategy; Auto prefers
// reflink when src and dst share a device (cheapest, metadata-only),
// then falls back toward buffered as device locality and configured
// method narrow the options.
func PlanStrategy(srcDev, dstDev uint64, method config.CopyMethod) []Strategy {
	sameDevice := srcDev == dstDev

	switch method {
	case config.Reflink:
		return []Strategy{StrategyReflink, StrategyBuffered}
	case config.RangeCopy:
		return []Strategy{StrategyRangeCopy, StrategyBuffered}
	case config.Buffered:
		return []Strategy{StrategyBuffered}
	default: // config.Auto
		if sameDevice {
			return []Strategy{StrategyReflink, StrategyRangeCopy, StrategyBuffered}
		}
		return []Strategy{StrategyRangeCopy, StrategyBuffered}
	}
}
