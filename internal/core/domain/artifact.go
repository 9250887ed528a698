package domain

import "sync"

// Artifact is an ephemeral file owned by exactly one job. Release deletes it
// at most once no matter how many exit paths call it.
type Artifact struct {
	Role string
	Path string

	once   sync.Once
	remove func(path string) error
	err    error
}

// NewArtifact wraps path with the function used to delete it.
func NewArtifact(role, path string, remove func(path string) error) *Artifact {
	return &Artifact{Role: role, Path: path, remove: remove}
}

// Release deletes the artifact. Later calls return the result of the first.
func (a *Artifact) Release() error {
	a.once.Do(func() {
		if a.remove != nil {
			a.err = a.remove(a.Path)
		}
	})
	return a.err
}
