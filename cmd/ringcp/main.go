// Command ringcp copies a file tree using Linux io_uring, preserving
// as much of the source tree's identity (hard links, symlinks, xattrs,
// ownership, timestamps) as the selected flags request.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ringcp/ringcp/internal/config"
	"github.com/ringcp/ringcp/internal/rlog"
	"github.com/ringcp/ringcp/internal/session"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := config.Default()
	var archive bool

	cmd := &cobra.Command{
		Use:   "ringcp SOURCE DESTINATION",
		Short: "Copy a file tree using io_uring",
		Long: `ringcp copies a source directory tree onto a destination tree using
Linux's io_uring async submission interface for its data-path I/O, with
kernel-assisted fast paths (reflink, copy_file_range) chosen per file
and an adaptive in-flight scheduler that backs off under pressure.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if archive {
				opts.Archive()
			}
			return runCopy(cmd.Context(), args[0], args[1], opts)
		},
	}

	bindFlags(cmd, &opts, &archive)
	return cmd
}

func bindFlags(cmd *cobra.Command, opts *config.Options, archive *bool) {
	f := cmd.Flags()
	f.BoolVarP(archive, "archive", "a", false, "recursive, preserving symlinks, permissions, times, owner, group, devices")
	f.BoolVarP(&opts.Recursive, "recursive", "r", false, "copy directories recursively")
	f.BoolVarP(&opts.Symlinks, "symlinks", "l", false, "preserve symlinks instead of following them")
	f.BoolVar(&opts.HardLinks, "hard-links", false, "preserve hard-link relationships within the source tree")
	f.BoolVarP(&opts.Permissions, "perms", "p", false, "preserve file permission bits")
	f.BoolVar(&opts.Owner, "owner", false, "preserve file owner (requires appropriate privilege)")
	f.BoolVar(&opts.Group, "group", false, "preserve file group")
	f.BoolVarP(&opts.Times, "times", "t", false, "preserve modification times")
	f.BoolVar(&opts.ATimes, "atimes", false, "preserve access times in addition to modification times")
	f.BoolVar(&opts.CTimes, "crtimes", false, "preserve birth/creation times where the filesystem supports them")
	f.BoolVarP(&opts.Xattrs, "xattrs", "X", false, "preserve extended attributes")
	f.BoolVar(&opts.ACLs, "acls", false, "preserve POSIX ACLs (stored as xattrs; implies --xattrs and --perms)")
	f.BoolVar(&opts.Devices, "devices", false, "recreate device nodes instead of skipping them")
	f.BoolVar(&opts.OneFileSystem, "one-file-system", false, "don't cross filesystem boundaries")
	f.BoolVarP(&opts.DryRun, "dry-run", "n", false, "show what would be copied without copying")
	f.BoolVar(&opts.NoAdaptiveConcurrency, "no-adaptive-concurrency", false, "disable the in-flight scheduler's back-pressure response")
	f.BoolVar(&opts.Overwrite, "overwrite", true, "overwrite existing destination entries")
	f.BoolVar(&opts.Checksum, "checksum", false, "verify file contents after copying")
	f.StringArrayVar(&opts.Filters, "filter", nil, "glob pattern to exclude (prefix with ! to re-include)")
	f.IntVar(&opts.QueueDepth, "queue-depth", opts.QueueDepth, "io_uring submission queue depth per worker (1024-65536)")
	f.IntVar(&opts.MaxFilesInFlight, "max-in-flight", opts.MaxFilesInFlight, "maximum concurrently in-flight files (1-10000)")
	f.IntVar(&opts.CPUCount, "workers", 0, "number of ring workers (0 = online CPU count)")
	f.IntVar(&opts.BufferSizeKB, "buffer-size-kb", 0, "buffered transfer chunk size in KiB (0 = 1024)")
	f.StringVar(&copyMethodFlag, "copy-method", "auto", "transfer strategy: auto, reflink, range-copy, buffered")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress normal per-file output")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "show debug-level detail")
}

var copyMethodFlag = "auto"

func runCopy(ctx context.Context, src, dst string, opts config.Options) error {
	opts.CopyMethod = config.ParseCopyMethod(copyMethodFlag)

	switch {
	case opts.Quiet:
		rlog.SetLevel(rlog.Quiet)
	case opts.Verbose:
		rlog.SetLevel(rlog.Debug)
	default:
		rlog.SetLevel(rlog.Normal)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := session.New(opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			rlog.Warnf(nil, "error shutting down async SQ runtime: %v", cerr)
		}
	}()

	runErr := s.Run(ctx, src, dst)
	if !opts.Quiet {
		fmt.Fprint(os.Stdout, s.Summary())
	}
	return runErr
}
