// Package metadata implements the Metadata Policy of §4.8 (C8):
// translating the preservation-class flags of §6 (--xattrs, --perms,
// --owner, --group, --times, --atimes) into a concrete application
// plan, and collecting the source entry's extended attributes ready
// to hand to fsops.ApplyMetadata.
//
// The ordering itself (xattrs, then mode, then ownership, then times)
// lives in fsops.ApplyMetadata next to the syscalls it depends on;
// this package only decides WHICH categories apply for a given Options
// and entry kind, the same separation backend/local keeps between
// metadata.go's field-by-field writeMetadataToFile and local.go's
// policy flags (NoSetModTime, opt.Metadata, opt.Enc).
package metadata

import (
	"github.com/ringcp/ringcp/internal/config"
	"github.com/ringcp/ringcp/internal/fsops"
)

// ResolvePolicy builds the Policy that applies to an entry of the
// given kind. Symlinks never get a mode change (no portable lchmod),
// matching fsops.chmodPath's own skip. --acls implies both --xattrs
// and --perms: POSIX ACLs are stored as xattrs under the hood (§4.8/
// §6), and an ACL without the owning mode bits it was computed against
// is not a meaningful preservation of the original permission set.
func ResolvePolicy(opts config.Options, kind fsops.Kind) fsops.Policy {
	return fsops.Policy{
		Xattrs:    opts.Xattrs || opts.ACLs,
		Mode:      (opts.Permissions || opts.ACLs) && kind != fsops.Symlink,
		Ownership: opts.Owner || opts.Group,
		Times:     opts.Times,
		CTimes:    opts.CTimes,
	}
}

// CollectXattrs reads every extended attribute off src, tolerating a
// platform or filesystem that doesn't support them (nil, nil).
func CollectXattrs(src string, followSymlinks bool) (map[string][]byte, error) {
	keys, err := fsops.ListXattrs(src, followSymlinks)
	if err != nil || len(keys) == 0 {
		return nil, nil
	}
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		v, err := fsops.GetXattr(src, k, followSymlinks)
		if err != nil {
			continue
		}
		out[k] = v
	}
	return out, nil
}

// Apply resolves the policy for kind and, if anything is enabled,
// applies it to dst using meta (already stat'd from src) and src's
// live xattr set.
func Apply(src, dst string, meta fsops.Metadata, opts config.Options, kind fsops.Kind) error {
	followSymlinks := kind != fsops.Symlink
	policy := ResolvePolicy(opts, kind)
	if !policy.Xattrs && !policy.Mode && !policy.Ownership && !policy.Times && !policy.CTimes {
		return nil
	}
	var xattrs map[string][]byte
	if policy.Xattrs {
		xattrs, _ = CollectXattrs(src, followSymlinks)
	}
	if !opts.ATimes {
		meta.ATime = meta.MTime
	}
	return fsops.ApplyMetadata(dst, meta, xattrs, policy, followSymlinks)
}
