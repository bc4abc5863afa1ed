package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned when another daemon with the same executable is alive.
var ErrAlreadyRunning = errors.New("another gatekeeper instance is running")

// checkSingleInstance fails when a process other than this one runs the
// executable named name.
func checkSingleInstance(name string) error {
	processList, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	return findOther(processList, os.Getpid(), name)
}

// findOther reports the first process in list, other than self, running name.
func findOther(list []ps.Process, self int, name string) error {
	for _, process := range list {
		if process.Pid() == self {
			continue
		}

		if process.Executable() == name {
			return fmt.Errorf("%w: pid %d", ErrAlreadyRunning, process.Pid())
		}
	}

	return nil
}

// executableName returns the base name of the running binary without extension.
func executableName() string {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}

	return strings.TrimSuffix(filepath.Base(exe), filepath.Ext(exe))
}

// instanceID derives a stable ID from the host name and the mDNS instance,
// so clients recognize the same gate across restarts.
func instanceID(instance string) uuid.UUID {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}

	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(instance+"."+host))
}
