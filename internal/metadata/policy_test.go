package metadata

import (
	"testing"

	"github.com/ringcp/ringcp/internal/config"
	"github.com/ringcp/ringcp/internal/fsops"
	"github.com/stretchr/testify/require"
)

func TestResolvePolicyHonorsEachFlagIndependently(t *testing.T) {
	opts := config.Default()
	opts.Xattrs = true
	p := ResolvePolicy(opts, fsops.Regular)
	require.True(t, p.Xattrs)
	require.False(t, p.Mode)
	require.False(t, p.Ownership)
	require.False(t, p.Times)
}

func TestResolvePolicyNeverSetsModeOnSymlinks(t *testing.T) {
	opts := config.Default()
	opts.Permissions = true
	require.True(t, ResolvePolicy(opts, fsops.Regular).Mode)
	require.False(t, ResolvePolicy(opts, fsops.Symlink).Mode)
}

func TestResolvePolicyOwnershipFromEitherOwnerOrGroup(t *testing.T) {
	opts := config.Default()
	opts.Owner = true
	require.True(t, ResolvePolicy(opts, fsops.Regular).Ownership)

	opts = config.Default()
	opts.Group = true
	require.True(t, ResolvePolicy(opts, fsops.Regular).Ownership)
}

func TestResolvePolicyACLsImplyXattrsAndMode(t *testing.T) {
	opts := config.Default()
	opts.ACLs = true
	p := ResolvePolicy(opts, fsops.Regular)
	require.True(t, p.Xattrs)
	require.True(t, p.Mode)

	require.False(t, ResolvePolicy(opts, fsops.Symlink).Mode, "ACLs still never set mode on symlinks")
}

func TestResolvePolicyCTimesFollowsCrtimesFlag(t *testing.T) {
	opts := config.Default()
	require.False(t, ResolvePolicy(opts, fsops.Regular).CTimes)

	opts.CTimes = true
	require.True(t, ResolvePolicy(opts, fsops.Regular).CTimes)
}

func TestApplyIsNoopWhenPolicyEntirelyDisabled(t *testing.T) {
	opts := config.Default()
	err := Apply("/nonexistent/src", "/nonexistent/dst", fsops.Metadata{}, opts, fsops.Regular)
	require.NoError(t, err)
}
