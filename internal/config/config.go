// Package config holds the option set the core recognizes (§6) and the
// archive-mode expansion. Options are populated by the thin CLI
// collaborator (cmd/ringcp) via pflag and handed to the core as a plain
// struct, the way rclone's fs/config/configstruct decodes a configmap
// into a backend's Options struct.
package config

import "runtime"

// CopyMethod selects the file-copy strategy (§4.6 Plan Strategy / §6 copy-method).
type CopyMethod int

const (
	// Auto lets the state machine choose reflink, range-copy, or buffered.
	Auto CopyMethod = iota
	Reflink
	RangeCopy
	Buffered
)

func ParseCopyMethod(s string) CopyMethod {
	switch s {
	case "reflink":
		return Reflink
	case "range-copy":
		return RangeCopy
	case "buffered":
		return Buffered
	default:
		return Auto
	}
}

// Options is the full configuration set of §6, plus the supplemented
// --filter and --checksum knobs from SPEC_FULL.md.
type Options struct {
	// Traversal / preservation classes (§6 table, §4.8).
	Recursive     bool
	Symlinks      bool
	HardLinks     bool
	Permissions   bool
	Owner         bool
	Group         bool
	Times         bool
	ATimes        bool
	CTimes        bool // "crtimes" in the spec table; named CTimes to avoid clashing with config.Times
	Xattrs        bool
	ACLs          bool
	Devices       bool
	OneFileSystem bool

	DryRun bool

	// Concurrency / I/O tuning (§6).
	QueueDepth       int // 1024-65536, default 4096
	MaxFilesInFlight int // 1-10000
	CPUCount         int // 0 = auto
	BufferSizeKB     int // 0 = auto
	CopyMethod       CopyMethod

	NoAdaptiveConcurrency bool

	// Overwrite policy for existing destination files (§4.6 step 4).
	Overwrite bool

	// Supplemented (SPEC_FULL.md): path filters and post-copy verification.
	Filters  []string
	Checksum bool

	// Output verbosity (§7 user-visible behavior).
	Quiet   bool
	Verbose bool
}

// Default returns the option set with every default value from §6 applied.
func Default() Options {
	return Options{
		QueueDepth:       4096,
		MaxFilesInFlight: 128,
		CPUCount:         0,
		BufferSizeKB:     0,
		CopyMethod:       Auto,
		Overwrite:        true,
	}
}

// Archive applies the "archive" shorthand from §6: recursive + symlinks +
// permissions + times + group + owner + devices.
func (o *Options) Archive() {
	o.Recursive = true
	o.Symlinks = true
	o.Permissions = true
	o.Times = true
	o.Group = true
	o.Owner = true
	o.Devices = true
}

// ResolvedCPUCount returns the worker count to use: CPUCount if set,
// otherwise the number of online CPUs, matching §5's "default:
// online-CPU count; configurable".
func (o *Options) ResolvedCPUCount() int {
	if o.CPUCount > 0 {
		return o.CPUCount
	}
	return runtime.NumCPU()
}

// ResolvedBufferSize returns the buffered-path chunk size in bytes.
func (o *Options) ResolvedBufferSize() int {
	if o.BufferSizeKB > 0 {
		return o.BufferSizeKB * 1024
	}
	return 1024 * 1024 // 1 MiB default chunk
}

// Clamp keeps QueueDepth and MaxFilesInFlight within the bounds of §6.
func (o *Options) Clamp() {
	if o.QueueDepth < 1024 {
		o.QueueDepth = 1024
	}
	if o.QueueDepth > 65536 {
		o.QueueDepth = 65536
	}
	if o.MaxFilesInFlight < 1 {
		o.MaxFilesInFlight = 1
	}
	if o.MaxFilesInFlight > 10000 {
		o.MaxFilesInFlight = 10000
	}
}
