//go:build !unix

package tracker

import "io/fs"

// fileID has no stable identity primitive on this platform; the tracker
// falls back to the size/modtime rotation heuristic.
func fileID(info fs.FileInfo) (FileID, bool) {
	return FileID{}, false
}
