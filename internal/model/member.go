package model

// MemberTree is the first-level listing of one unpacked archive.
// It only lives while its archive is being extracted; the staging
// directory it points to is removed afterwards.
type MemberTree struct {
	// Root is the staging directory the archive was unpacked into.
	Root string

	// Dirs are the names of subdirectories directly under Root.
	// Nested directories are listed but never descended into.
	Dirs []string

	// Files are the names of regular files directly under Root.
	Files []string
}
