// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/op/go-logging.v1"
)

func TestBackendFile(t *testing.T) {
	require := require.New(t)

	f := filepath.Join(t.TempDir(), "cds.log")
	b, err := New(f, "info", false)
	require.NoError(err)

	l := b.GetLogger("discovery")
	l.Info("hello")
	l.Debug("suppressed")
	require.True(b.IsEnabledFor(logging.INFO, "discovery"))
	require.False(b.IsEnabledFor(logging.DEBUG, "discovery"))

	b.GetGoLogger("emulator/http", "warning").Printf("from net/http")

	require.NoError(b.Rotate())
	l.Info("after rotate")

	raw, err := os.ReadFile(f)
	require.NoError(err)
	require.Contains(string(raw), "discovery: hello")
	require.Contains(string(raw), "emulator/http: from net/http")
	require.Contains(string(raw), "after rotate")
	require.NotContains(string(raw), "suppressed")
}

func TestBackendInvalidLevel(t *testing.T) {
	require := require.New(t)

	_, err := New("", "LOUD", false)
	require.Error(err)

	b, err := New("", "ERROR", true)
	require.NoError(err)
	require.Panics(func() { b.GetGoLogger("x", "LOUD") })
}

func TestBackendModuleLevels(t *testing.T) {
	require := require.New(t)

	f := filepath.Join(t.TempDir(), "cds.log")
	b, err := New(f, "NOTICE", false)
	require.NoError(err)

	require.Error(b.SetModuleLevels(map[string]string{"discovery": "DEBUG", "transport": "LOUD"}))
	require.Empty(b.Modules())

	require.NoError(b.SetModuleLevels(map[string]string{"discovery": "debug"}))
	require.Equal([]string{"discovery"}, b.Modules())
	require.True(b.IsEnabledFor(logging.DEBUG, "discovery"))
	require.False(b.IsEnabledFor(logging.INFO, "transport"))

	require.NoError(b.Rotate())
	require.True(b.IsEnabledFor(logging.DEBUG, "discovery"))
	require.Equal(logging.NOTICE, b.GetLevel("transport"))

	b.GetLogger("discovery").Debug("batch 1/1")
	raw, err := os.ReadFile(f)
	require.NoError(err)
	require.Contains(string(raw), "discovery: batch 1/1")
}
