// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package fsutil holds the file system helpers used by the command-line tools.
package fsutil

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileExists returns whether the file exists, or an error if the file system failed.
func FileExists(filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, errors.Wrapf(err, "failed to stat %q", filePath)
}

// ExpandHome replaces a leading "~" or "~user" in filePath by the corresponding home directory.
// Other paths are returned unchanged.
func ExpandHome(filePath string) (string, error) {
	if !strings.HasPrefix(filePath, "~") {
		return filePath, nil
	}
	userName, rest, _ := strings.Cut(filePath[1:], "/")
	var usr *user.User
	var err error
	if userName == "" {
		usr, err = user.Current()
	} else {
		usr, err = user.Lookup(userName)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to find the home directory for path %q", filePath)
	}
	return filepath.Join(usr.HomeDir, rest), nil
}

// ResolveOutput expands the home directory of an output path and makes sure its directory exists.
// An empty path is returned as is.
func ResolveOutput(filePath string) (string, error) {
	if filePath == "" {
		return "", nil
	}
	filePath, err := ExpandHome(filePath)
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create directory for %q", filePath)
	}
	return filePath, nil
}
