/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package pagegraph is a graph store which keeps graphs in fixed size pages of
a key-value store and only holds a bounded number of subgraphs in memory.

This package creates a ready to use store from the configuration in the
config package. The graph API itself is in the graph package.
*/
package pagegraph

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"devt.de/krotik/common/lockutil"
	"devt.de/krotik/common/logutil"
	"devt.de/krotik/pagegraph/algo"
	"devt.de/krotik/pagegraph/buffer"
	"devt.de/krotik/pagegraph/config"
	"devt.de/krotik/pagegraph/graph"
	"devt.de/krotik/pagegraph/page"
	"devt.de/krotik/pagegraph/policy"
	"devt.de/krotik/pagegraph/storage"
	"github.com/prometheus/client_golang/prometheus"
)

/*
VERSION of PageGraph
*/
const VERSION = "1.0.0"

/*
LockFileName is the name of the lock file in the datastore directory
*/
const LockFileName = "pagegraph.lck"

/*
LockInterval is the interval in which the lock file is checked
*/
var LockInterval = time.Duration(2) * time.Second

/*
Store is a graph manager which was created from the configuration.
*/
type Store struct {
	*graph.Manager
	lockfile *lockutil.LockFile // Lock of the datastore directory (nil for memory stores)
}

/*
NewManagerFromConfig creates a new store from the current configuration. The
default configuration is used if no configuration was loaded.
*/
func NewManagerFromConfig() (*Store, error) {

	if config.Config == nil {
		config.LoadDefaultConfig()
	}

	if strings.EqualFold(config.Str(config.LogLevel), "debug") {
		EnableDebugLogging()
	}

	seed := config.Int(config.PolicySeed)

	sel, err := policy.SelectByName(config.Str(config.SelectPolicy), seed)
	if err != nil {
		return nil, err
	}

	split, err := policy.SplitByName(config.Str(config.SplitPolicy), seed)
	if err != nil {
		return nil, err
	}

	if config.Bool(config.EnableMetrics) {
		if err := buffer.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			return nil, err
		}
	}

	kind := strings.ToLower(config.Str(config.ConnectorType))
	loc := config.Str(config.LocationDatastore)

	conn, err := storage.NewConnector(kind, loc)
	if err != nil {
		return nil, err
	}

	var lf *lockutil.LockFile

	if kind != storage.TypeMemory {

		// Make sure no other process uses the same datastore

		lf = lockutil.NewLockFile(filepath.Join(loc, LockFileName), LockInterval)

		if err := lf.Start(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("Could not lock datastore %v: %v", loc, err)
		}
	}

	gm, err := graph.NewManager(conn, int(config.Int(config.MaxBlockSize)),
		int(config.Int(config.MaxBufferSize)), sel, split)

	if err != nil {
		conn.Close()
		if lf != nil {
			lf.Finish()
		}
		return nil, err
	}

	return &Store{gm, lf}, nil
}

/*
Shutdown writes all data, closes the connector and releases the datastore lock.
*/
func (s *Store) Shutdown() error {
	err := s.Manager.Shutdown()

	if s.lockfile != nil {
		if lerr := s.lockfile.Finish(); lerr != nil && err == nil {
			err = lerr
		}
	}

	return err
}

/*
EnableDebugLogging routes the debug messages of all packages to their logutil
loggers.
*/
func EnableDebugLogging() {
	storage.LogDebug = storage.Logger(logutil.GetLogger("pagegraph.storage").Debug)
	page.LogDebug = page.Logger(logutil.GetLogger("pagegraph.page").Debug)
	buffer.LogDebug = buffer.Logger(logutil.GetLogger("pagegraph.buffer").Debug)
	graph.LogDebug = graph.Logger(logutil.GetLogger("pagegraph.graph").Debug)
	policy.LogDebug = policy.Logger(logutil.GetLogger("pagegraph.policy").Debug)
	algo.LogDebug = algo.Logger(logutil.GetLogger("pagegraph.algo").Debug)
}
