// Package git provides the few git queries jiro needs to locate a project.
package git

// RepoOperations defines read-only queries about a repository.
type RepoOperations interface {
	// TopLevel returns the absolute path of the working tree root.
	TopLevel() (string, error)
	// RemoteURL returns the configured URL of the named remote.
	// Returns "" with a nil error if the remote is not configured.
	RemoteURL(remote string) (string, error)
}
