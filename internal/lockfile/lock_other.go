//go:build !unix && !windows

package lockfile

import "os"

// No advisory locking here; runs are not serialized.
func flockExclusive(*os.File) error { return nil }

func flockUnlock(*os.File) error { return nil }
