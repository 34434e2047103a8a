// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fsutil

import (
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandHome(t *testing.T) {
	usr, err := user.Current()
	if err != nil {
		t.Skipf("no current user: %v", err)
	}
	assert.Equal(t, "/tmp/x", must.M1(ExpandHome("/tmp/x")))
	assert.Equal(t, filepath.Join(usr.HomeDir, "a/b.txt"), must.M1(ExpandHome("~/a/b.txt")))
	assert.Equal(t, usr.HomeDir, must.M1(ExpandHome("~")))
	_, err = ExpandHome("~no-such-user-dagqr/x")
	assert.Error(t, err)
}

func TestResolveOutput(t *testing.T) {
	dir := t.TempDir()
	filePath := must.M1(ResolveOutput(filepath.Join(dir, "sub", "out.txt")))
	require.NoError(t, os.WriteFile(filePath, []byte("1\n"), 0o644))
	assert.True(t, must.M1(FileExists(filePath)))
	assert.False(t, must.M1(FileExists(filepath.Join(dir, "missing"))))
	assert.Equal(t, "", must.M1(ResolveOutput("")))
}
