package domain

import "path/filepath"

const (
	// StallDirName is the name of the per-user state directory.
	StallDirName = ".stall"

	// ReceiptsDirName is the name of the install receipt directory.
	ReceiptsDirName = "receipts"

	// CacheDirName is the name of the cache directory.
	CacheDirName = "cache"

	// NixHubDirName is the name of the NixHub cache directory.
	NixHubDirName = "nixhub"

	// DownloadsDirName is the default artifact directory under the home directory.
	DownloadsDirName = "Downloads"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// ExecPerm is the permission for fetched installers that must be executable (rwxr-x---).
	ExecPerm = 0o750
)

// DefaultStallPath returns the state directory under home.
func DefaultStallPath(home string) string {
	return filepath.Join(home, StallDirName)
}

// DefaultReceiptsPath returns the receipt store directory under home.
// It joins .stall and receipts.
func DefaultReceiptsPath(home string) string {
	return filepath.Join(home, StallDirName, ReceiptsDirName)
}

// DefaultNixHubCachePath returns the NixHub cache directory under home.
// It joins .stall, cache, and nixhub.
func DefaultNixHubCachePath(home string) string {
	return filepath.Join(home, StallDirName, CacheDirName, NixHubDirName)
}

// DefaultDownloadPath returns the artifact directory under home.
func DefaultDownloadPath(home string) string {
	return filepath.Join(home, DownloadsDirName)
}
