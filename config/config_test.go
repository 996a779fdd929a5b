/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"devt.de/krotik/common/logutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	dir := t.TempDir()
	testconf := filepath.Join(dir, "testconfig.json")

	Config = nil

	require.NoError(t, os.WriteFile(testconf, []byte(`{
    "MaxBufferSize": 5,
    "LogLevel": "Debug"
}`), 0644))

	require.NoError(t, LoadConfigFile(testconf))

	assert.Equal(t, int64(5), Int(MaxBufferSize))
	assert.Equal(t, "Debug", Str(LogLevel))
	assert.Equal(t, int64(8388608), Int(MaxBlockSize))
	assert.Equal(t, "bolt", Str(ConnectorType))
	assert.True(t, Bool(EnableMetrics))

	// A missing config file is written with the default values

	newconf := filepath.Join(dir, "newconfig.json")

	require.NoError(t, LoadConfigFile(newconf))
	require.FileExists(t, newconf)

	Config = nil

	require.NoError(t, LoadConfigFile(newconf))
	assert.Equal(t, int64(8388608), Int(MaxBlockSize))
	assert.Equal(t, int64(100), Int(MaxBufferSize))
	assert.Equal(t, "firstavailable", Str(SelectPolicy))

	LoadDefaultConfig()

	assert.Equal(t, "half", Str(SplitPolicy))

	Config[PolicySeed] = "abc"

	assert.Panics(t, func() { Int(PolicySeed) })
	assert.Panics(t, func() { Bool(PolicySeed) })
}

func TestTOMLConfig(t *testing.T) {
	dir := t.TempDir()
	testconf := filepath.Join(dir, "testconfig.toml")

	Config = nil

	require.NoError(t, os.WriteFile(testconf, []byte(`
MaxBufferSize = 7
SplitPolicy = "bfs"
EnableMetrics = false
`), 0644))

	require.NoError(t, LoadConfigFile(testconf))

	assert.Equal(t, int64(7), Int(MaxBufferSize))
	assert.Equal(t, "bfs", Str(SplitPolicy))
	assert.False(t, Bool(EnableMetrics))
	assert.Equal(t, "db", Str(LocationDatastore))

	newconf := filepath.Join(dir, "newconfig.toml")

	require.NoError(t, LoadConfigFile(newconf))

	Config = nil

	require.NoError(t, LoadConfigFile(newconf))
	assert.Equal(t, int64(8388608), Int(MaxBlockSize))
	assert.Equal(t, "Info", Str(LogLevel))

	badconf := filepath.Join(dir, "bad.toml")

	require.NoError(t, os.WriteFile(badconf, []byte(`MaxBufferSize = = 1`), 0644))

	err := LoadConfigFile(badconf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Could not parse config file")
}

func TestLoadEnv(t *testing.T) {
	envfile := filepath.Join(t.TempDir(), ".env")

	require.NoError(t, os.WriteFile(envfile, []byte(
		"PAGEGRAPH_SPLIT_POLICY=random\nPAGEGRAPH_MAX_BUFFER_SIZE=1\n"), 0644))

	t.Setenv("PAGEGRAPH_MAX_BUFFER_SIZE", "42")
	t.Setenv("PAGEGRAPH_CONNECTOR_TYPE", "memory")

	defer os.Unsetenv("PAGEGRAPH_SPLIT_POLICY")

	LoadDefaultConfig()

	require.NoError(t, LoadEnv(envfile))

	// The environment has precedence over the .env file

	assert.Equal(t, int64(42), Int(MaxBufferSize))
	assert.Equal(t, "memory", Str(ConnectorType))
	assert.Equal(t, "random", Str(SplitPolicy))
	assert.Equal(t, "firstavailable", Str(SelectPolicy))

	// A missing .env file is ignored

	Config = nil

	require.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, int64(42), Int(MaxBufferSize))
	assert.Equal(t, int64(8388608), Int(MaxBlockSize))
}

func TestLoadEnvInvalid(t *testing.T) {
	LoadDefaultConfig()

	t.Setenv("PAGEGRAPH_MAX_BUFFER_SIZE", "abc")

	assert.EqualError(t, LoadEnv(""), "Invalid number for config key MaxBufferSize: abc")

	t.Setenv("PAGEGRAPH_MAX_BUFFER_SIZE", "7")
	t.Setenv("PAGEGRAPH_POLICY_SEED", "1.5")

	assert.EqualError(t, LoadEnv(""), "Invalid number for config key PolicySeed: 1.5")

	t.Setenv("PAGEGRAPH_POLICY_SEED", "3")
	t.Setenv("PAGEGRAPH_ENABLE_METRICS", "maybe")

	assert.EqualError(t, LoadEnv(""), "Invalid boolean for config key EnableMetrics: maybe")

	// A failed load leaves the config unchanged

	assert.Equal(t, int64(100), Int(MaxBufferSize))

	t.Setenv("PAGEGRAPH_ENABLE_METRICS", "true")

	require.NoError(t, LoadEnv(""))
	assert.Equal(t, int64(7), Int(MaxBufferSize))
	assert.Equal(t, int64(3), Int(PolicySeed))
	assert.True(t, Bool(EnableMetrics))
}

func TestConfigureLogging(t *testing.T) {
	var buf bytes.Buffer

	defer logutil.ClearLogSinks()

	LoadDefaultConfig()

	Config[LogLevel] = "foo"

	assert.EqualError(t, ConfigureLogging(&buf), "Unknown log level: foo")

	Config[LogLevel] = "Warning"

	require.NoError(t, ConfigureLogging(&buf))

	logutil.GetLogger("pagegraph.test").Info("hidden")
	logutil.GetLogger("pagegraph.test").Warning("shown")

	assert.False(t, strings.Contains(buf.String(), "hidden"))
	assert.Contains(t, buf.String(), "Warning pagegraph.test shown")
}
