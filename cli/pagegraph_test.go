/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"devt.de/krotik/common/logutil"
	"devt.de/krotik/pagegraph"
	"devt.de/krotik/pagegraph/graph/util"
)

func runApp(t *testing.T, args ...string) (string, error) {
	var out, errOut bytes.Buffer

	err := newApp(&out, &errOut).Run(append([]string{"pagegraph"}, args...))

	return out.String(), err
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "pagegraph.toml")

	pagegraph.LockInterval = time.Duration(10) * time.Millisecond

	defer logutil.ClearLogSinks()

	if err := os.WriteFile(cfg, []byte(`
ConnectorType = "bolt"
LocationDatastore = "`+filepath.ToSlash(filepath.Join(dir, "db"))+`"
MaxBlockSize = 256
MaxBufferSize = 3
LogLevel = "Error"
`), 0644); err != nil {
		t.Error(err)
		return
	}

	out, err := runApp(t, "--config", cfg, "--env", "", "demo")
	if err != nil {
		t.Error(err)
		return
	}

	for _, line := range []string{"0 -> [1 2]", "7 -> [4 9]", "9 -> []", "Clustering coefficient:"} {
		if !strings.Contains(out, line) {
			t.Error("Unexpected output:", out)
			return
		}
	}

	if out, err = runApp(t, "--config", cfg, "--env", "", "graphs"); err != nil || out != "1 demo 10\n" {
		t.Error("Unexpected result:", out, err)
		return
	}

	if out, err = runApp(t, "--config", cfg, "--env", "", "stats"); err != nil ||
		!strings.Contains(out, "Graph demo (id: 1, nodes: 10") || !strings.Contains(out, "Buffer:") {
		t.Error("Unexpected result:", out, err)
		return
	}

	if out, err = runApp(t, "--config", cfg, "--env", "", "cc", "--directed", "demo"); err != nil ||
		!strings.HasPrefix(out, "Clustering coefficient:") {
		t.Error("Unexpected result:", out, err)
		return
	}

	if out, err = runApp(t, "--config", cfg, "--env", "", "pagerank", "demo"); err != nil ||
		strings.Count(out, "\n") != 10 || !strings.HasPrefix(out, "0 ") {
		t.Error("Unexpected result:", out, err)
		return
	}

	if _, err = runApp(t, "--config", cfg, "--env", "", "cc"); err == nil ||
		err.Error() != "Expected a graph name" {
		t.Error("Unexpected result:", err)
		return
	}

	if _, err = runApp(t, "--config", cfg, "--env", "", "cc", "foo"); !errors.Is(err, util.ErrNotFound) {
		t.Error("Unexpected result:", err)
		return
	}
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "pagegraph.json")

	defer logutil.ClearLogSinks()

	if err := os.WriteFile(cfg, []byte(`{
    "ConnectorType": "memory",
    "SelectPolicy": "foo"
}`), 0644); err != nil {
		t.Error(err)
		return
	}

	if _, err := runApp(t, "--config", cfg, "--env", "", "graphs"); !errors.Is(err, util.ErrInvalidData) {
		t.Error("Unexpected result:", err)
		return
	}

	if err := os.WriteFile(cfg, []byte(`{
    "LogLevel": "foo"
}`), 0644); err != nil {
		t.Error(err)
		return
	}

	if _, err := runApp(t, "--config", cfg, "--env", "", "graphs"); err == nil ||
		err.Error() != "Unknown log level: foo" {
		t.Error("Unexpected result:", err)
		return
	}
}
