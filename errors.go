package morph

import "errors"

// joinErrors is errors.Join with the degenerate empty/nil cases collapsed,
// matching the aggregation pattern used throughout this package's validate
// methods: collect independent failures into a slice, then join once at the
// end instead of returning on the first one.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
