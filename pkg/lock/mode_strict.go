//go:build nvs_strict_lock

package lock

// DefaultMode is selected with the nvs_strict_lock build tag.
const DefaultMode = Strict
