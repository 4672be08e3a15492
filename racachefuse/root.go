package racachefuse

import (
	"os"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/grailbio/racache"
)

// maxReadAhead substitutes for the literal
// github.com/grailbio/base/file/internal/kernel.MaxReadAhead constant: the
// largest read-ahead request size the kernel's own FUSE client will issue.
// It has nothing to do with this package's own read-ahead window (racache.Config.window);
// the two operate at different layers and are configured independently.
const maxReadAhead = 128 * 1024

// NewRoot creates the FUSE root inode for a mount rooted at localDir, with
// regular-file reads served through cache.
func NewRoot(localDir string, cache *racache.Cache) (fs.InodeEmbedder, error) {
	info, err := os.Lstat(localDir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "racachefuse.NewRoot", Path: localDir, Err: os.ErrInvalid}
	}
	return &dirInode{path: localDir, cache: cache}, nil
}

// ConfigureMountOptions sets fields required for this package's inodes to
// behave correctly, the way fsnodefuse.ConfigureRequiredMountOptions does.
func ConfigureMountOptions(opts *fuse.MountOptions) {
	opts.MaxReadAhead = maxReadAhead
}
