//go:build !unix

package audit

import "os"

// Only the in-process mutex serialises writers on platforms without flock.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) {}
