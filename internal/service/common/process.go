//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-ps"
)

// ProcessLister returns the processes currently running on the host.
type ProcessLister func() ([]ps.Process, error)

// OtherInstances returns the process IDs running the same executable as the
// current process, excluding the current process and its parent.
func OtherInstances(list ProcessLister) ([]int, error) {
	if list == nil {
		list = ps.Processes
	}

	executable, err := os.Executable()
	if err != nil {
		return nil, err
	}

	processList, err := list()
	if err != nil {
		return nil, err
	}

	var (
		name   = filepath.Base(executable)
		self   = os.Getpid()
		parent = os.Getppid()
		found  []int
	)

	for _, process := range processList {
		if process.Pid() == self || process.Pid() == parent {
			continue
		}

		if !strings.EqualFold(process.Executable(), name) {
			continue
		}

		found = append(found, process.Pid())
	}

	return found, nil
}
