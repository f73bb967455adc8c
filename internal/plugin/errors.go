package plugin

import "fmt"

// RepositoryNotFoundError is returned for any operation against a
// repository URL the Manager has never seen (neither discovered from the
// remote index nor added as a custom_repositories entry).
type RepositoryNotFoundError struct {
	URL string
}

func (e *RepositoryNotFoundError) Error() string {
	return fmt.Sprintf("plugin repository %q is not known", e.URL)
}

// IndexFetchError wraps a failure to retrieve or parse a remote plugin
// index document from one source URL. RefreshIndex collects one of these
// per failing source rather than aborting the whole refresh, since a
// secondary source failing should not block picking up the primary's
// contributions.
type IndexFetchError struct {
	SourceURL string
	Err       error
}

func (e *IndexFetchError) Error() string {
	return fmt.Sprintf("plugin index: fetch %q: %v", e.SourceURL, e.Err)
}

func (e *IndexFetchError) Unwrap() error { return e.Err }

// InstallError wraps a failure to clone or prepare a plugin repository.
type InstallError struct {
	URL string
	Err error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("plugin install %q: %v", e.URL, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }
