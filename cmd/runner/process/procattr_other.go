//go:build !unix

package process

import "os/exec"

// Process groups are not available; cancellation kills the direct child only.
func configureProcessGroup(cmd *exec.Cmd) {}
