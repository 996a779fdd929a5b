/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package pagegraph

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"devt.de/krotik/common/fileutil"
	"devt.de/krotik/pagegraph/config"
	"devt.de/krotik/pagegraph/graph/util"
	"devt.de/krotik/pagegraph/storage"
	"github.com/prometheus/client_golang/prometheus"
)

const DBDIR = "pgtest"

func TestMain(m *testing.M) {
	flag.Parse()

	LockInterval = time.Duration(10) * time.Millisecond

	// Setup
	if res, _ := fileutil.PathExists(DBDIR); res {
		if err := os.RemoveAll(DBDIR); err != nil {
			fmt.Print("Could not remove test directory:", err.Error())
		}
	}

	// Run the tests
	res := m.Run()

	// Teardown
	if res, _ := fileutil.PathExists(DBDIR); res {
		if err := os.RemoveAll(DBDIR); err != nil {
			fmt.Print("Could not remove test directory:", err.Error())
		}
	}

	os.Exit(res)
}

func TestNewManagerFromConfig(t *testing.T) {
	config.Config = nil

	defer func() {
		config.Config = nil
	}()

	// Default config is a bolt store in the current directory so use memory

	config.LoadDefaultConfig()
	config.Config[config.ConnectorType] = storage.TypeMemory

	s, err := NewManagerFromConfig()
	if err != nil {
		t.Error(err)
		return
	}

	if s.BlockSize() != 8388608 || s.lockfile != nil {
		t.Error("Unexpected store:", s.BlockSize(), s.lockfile)
		return
	}

	g, err := s.CreateGraph("main")
	if err != nil {
		t.Error(err)
		return
	}

	if _, err := g.AddNode(); err != nil || g.NodeCount() != 1 {
		t.Error("Unexpected result:", g, err)
		return
	}

	if err := s.Shutdown(); err != nil {
		t.Error(err)
		return
	}

	// Metrics are exported by default

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Error(err)
		return
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "pagegraph_buffer_resident_subgraphs" {
			found = true
		}
	}

	if !found {
		t.Error("Buffer metrics should be registered")
		return
	}

	// Invalid configurations

	config.Config[config.SelectPolicy] = "foo"

	if _, err := NewManagerFromConfig(); !errors.Is(err, util.ErrInvalidData) {
		t.Error("Unexpected result:", err)
		return
	}

	config.LoadDefaultConfig()
	config.Config[config.SplitPolicy] = "foo"

	if _, err := NewManagerFromConfig(); !errors.Is(err, util.ErrInvalidData) {
		t.Error("Unexpected result:", err)
		return
	}

	config.LoadDefaultConfig()
	config.Config[config.ConnectorType] = "foo"

	if _, err := NewManagerFromConfig(); !errors.Is(err, storage.ErrUnknownType) {
		t.Error("Unexpected result:", err)
		return
	}

	config.LoadDefaultConfig()
	config.Config[config.ConnectorType] = storage.TypeMemory
	config.Config[config.MaxBufferSize] = 1

	if _, err := NewManagerFromConfig(); !errors.Is(err, util.ErrCapacityExceeded) {
		t.Error("Unexpected result:", err)
		return
	}
}

func TestDiskStores(t *testing.T) {

	defer func() {
		config.Config = nil
	}()

	for _, kind := range []string{storage.TypeBolt, storage.TypeSQLite} {
		loc := filepath.Join(DBDIR, kind)

		config.LoadDefaultConfig()
		config.Config[config.ConnectorType] = kind
		config.Config[config.LocationDatastore] = loc
		config.Config[config.MaxBlockSize] = 256
		config.Config[config.MaxBufferSize] = 2
		config.Config[config.SplitPolicy] = "bfs"
		config.Config[config.EnableMetrics] = false

		s, err := NewManagerFromConfig()
		if err != nil {
			t.Error(kind, err)
			return
		}

		if ok, _ := fileutil.PathExists(filepath.Join(loc, LockFileName)); !ok {
			t.Error("Lock file should exist")
			return
		}

		g, _ := s.CreateGraph("g1")

		var last uint64

		for i := 0; i < 20; i++ {
			n, err := g.AddNode()
			if err != nil {
				t.Error(kind, err)
				return
			}

			if i > 0 {
				prev, _ := g.Node(last)

				if _, err := g.AddEdge(prev, n); err != nil {
					t.Error(kind, err)
					return
				}
			}

			last = n.ID()
		}

		if err := s.Shutdown(); err != nil {
			t.Error(kind, err)
			return
		}

		if ok, _ := fileutil.PathExists(filepath.Join(loc, LockFileName)); ok {
			t.Error("Lock file should have been removed")
			return
		}

		// Open the store again

		if s, err = NewManagerFromConfig(); err != nil {
			t.Error(kind, err)
			return
		}

		g, err = s.GraphByName("g1")
		if err != nil || g.NodeCount() != 20 {
			t.Error("Unexpected result:", kind, g, err)
			return
		}

		n, err := g.Node(last)
		if err != nil {
			t.Error(kind, err)
			return
		}

		if ins, err := n.InNeighbors(); err != nil || len(ins) != 1 || ins[0].ID() != last-1 {
			t.Error("Unexpected result:", kind, ins, err)
			return
		}

		if err := s.Shutdown(); err != nil {
			t.Error(kind, err)
			return
		}
	}
}
