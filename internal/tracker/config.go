package tracker

import "errors"

// Options configures one run of the Engine.
type Options struct {
	// ProjectKey is the source project (e.g. "PROJ").
	ProjectKey string

	// ProjectID is the target project identifier or numeric ID.
	ProjectID string

	// Incremental pre-seeds the identity map from the target and skips
	// issues that were migrated before.
	Incremental bool

	// DryRun performs every read but replaces writes with recorded no-ops.
	DryRun bool

	// DefaultActor is the target login writes are attributed to when the
	// source author has no mapping. Empty means the API key's owner.
	DefaultActor string
}

// Validate checks that the required options are set.
func (o Options) Validate() error {
	var errs []error
	if o.ProjectKey == "" {
		errs = append(errs, errors.New("source project key not configured"))
	}
	if o.ProjectID == "" {
		errs = append(errs, errors.New("target project not configured"))
	}
	return errors.Join(errs...)
}
