package common

// Permission modes used when lakecat creates files and directories. The
// config tree may hold credentials, so it stays owner-only; CSV reports are
// world-readable artifacts.
const (
	FilePermissionSecure = 0600
	FilePermissionNormal = 0644

	DirPermissionSecure = 0700
	DirPermissionNormal = 0755
)
