package validation

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoLockfile is returned when neither lockfile form was supplied
	ErrNoLockfile = errors.New("Provide lockfile_json or lockfile_yaml")

	// ErrNoImages is returned when the lock lists no container images
	ErrNoImages = errors.New("Lockfile must list containers/images")
)

// LockfileError wraps a lockfile that could not be parsed
type LockfileError struct {
	Err error
}

func (e *LockfileError) Error() string {
	return fmt.Sprintf("Invalid YAML: %v", e.Err)
}

func (e *LockfileError) Unwrap() error {
	return e.Err
}

// ParseLockfile returns the lock document. The JSON form wins when both are given.
func ParseLockfile(lockJSON map[string]interface{}, lockYAML string) (map[string]interface{}, error) {
	if len(lockJSON) > 0 {
		return lockJSON, nil
	}
	if lockYAML == "" {
		return nil, ErrNoLockfile
	}

	var doc interface{}
	if err := yaml.Unmarshal([]byte(lockYAML), &doc); err != nil {
		return nil, &LockfileError{Err: err}
	}

	lock, ok := doc.(map[string]interface{})
	if !ok {
		return nil, &LockfileError{Err: fmt.Errorf("lockfile must be a mapping, got %T", doc)}
	}

	return lock, nil
}

// CountImages returns the number of entries under "containers", or "images" when
// "containers" is absent or empty
func CountImages(lock map[string]interface{}) int {
	for _, key := range []string{"containers", "images"} {
		if list, ok := lock[key].([]interface{}); ok && len(list) > 0 {
			return len(list)
		}
	}
	return 0
}

// ValidateLockfile parses the lock and requires at least one image
func ValidateLockfile(lockJSON map[string]interface{}, lockYAML string) (map[string]interface{}, int, error) {
	lock, err := ParseLockfile(lockJSON, lockYAML)
	if err != nil {
		return nil, 0, err
	}

	images := CountImages(lock)
	if images == 0 {
		return nil, 0, ErrNoImages
	}

	return lock, images, nil
}
