//go:build !unix

package walk

import "os"

// statDevIno has no portable equivalent outside unix; symlink cycle
// detection degrades to "never detected as a repeat" on these platforms,
// which only matters when FollowSymlinks is set.
func statDevIno(_ os.FileInfo) (devIno, bool) { return devIno{}, false }

func statPathDevIno(_ string) (devIno, bool) { return devIno{}, false }
