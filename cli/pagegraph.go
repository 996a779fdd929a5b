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
PageGraph is a graph store which keeps its graphs in fixed size pages of a
key-value store and only holds a bounded number of subgraphs in memory.

The command line tool opens the store which is described by the config file
and runs a single command on it.
*/
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"devt.de/krotik/pagegraph"
	"devt.de/krotik/pagegraph/algo"
	"devt.de/krotik/pagegraph/config"
	"devt.de/krotik/pagegraph/graph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

const (
	flagConfig     = "config"
	flagEnv        = "env"
	flagDirected   = "directed"
	flagDamping    = "damping"
	flagIterations = "iterations"
)

/*
demoEdges are the edges of the demo graph
*/
var demoEdges = [][2]int{{0, 1}, {0, 2}, {1, 5}, {2, 4}, {2, 5}, {3, 2}, {4, 3},
	{4, 7}, {5, 6}, {5, 7}, {6, 1}, {7, 4}, {8, 7}, {7, 9}}

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

/*
newApp creates the command line application.
*/
func newApp(out io.Writer, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "pagegraph",
		Usage:     "PageGraph paged graph store",
		Version:   pagegraph.VERSION,
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Value:   config.DefaultConfigFile,
				Usage:   "config file (JSON or TOML)",
			},
			&cli.StringFlag{
				Name:  flagEnv,
				Value: ".env",
				Usage: "file with PAGEGRAPH_ environment variables",
			},
		},
		Before: func(c *cli.Context) error {
			if err := config.LoadConfigFile(c.String(flagConfig)); err != nil {
				return err
			}
			if err := config.LoadEnv(c.String(flagEnv)); err != nil {
				return err
			}
			return config.ConfigureLogging(c.App.ErrWriter)
		},
		Commands: []*cli.Command{
			{
				Name:   "demo",
				Usage:  "build a small demo graph and print its adjacency",
				Action: runDemo,
			},
			{
				Name:   "graphs",
				Usage:  "list all graphs",
				Action: runGraphs,
			},
			{
				Name:   "stats",
				Usage:  "print graph sizes and buffer counters",
				Action: runStats,
			},
			{
				Name:      "cc",
				Usage:     "calculate the clustering coefficient of a graph",
				ArgsUsage: "<graph>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  flagDirected,
						Usage: "use outgoing and incoming neighbors",
					},
				},
				Action: runClusteringCoefficient,
			},
			{
				Name:      "pagerank",
				Usage:     "calculate the PageRank of all nodes of a graph",
				ArgsUsage: "<graph>",
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  flagDamping,
						Value: 0.85,
						Usage: "damping factor",
					},
					&cli.IntFlag{
						Name:  flagIterations,
						Value: 100,
						Usage: "maximum number of iterations",
					},
				},
				Action: runPageRank,
			},
		},
	}
}

/*
withStore opens the configured store, runs a given function and shuts the
store down again.
*/
func withStore(f func(s *pagegraph.Store) error) error {
	s, err := pagegraph.NewManagerFromConfig()
	if err != nil {
		return err
	}

	err = f(s)

	if serr := s.Shutdown(); serr != nil && err == nil {
		err = serr
	}

	return err
}

/*
graphArg returns the graph which is named by the first command argument.
*/
func graphArg(c *cli.Context, s *pagegraph.Store) (*graph.Graph, error) {
	if c.NArg() != 1 {
		return nil, fmt.Errorf("Expected a graph name")
	}

	return s.GraphByName(c.Args().First())
}

// Commands
// ========

func runDemo(c *cli.Context) error {
	return withStore(func(s *pagegraph.Store) error {

		// Start with a fresh demo graph

		if g, err := s.GraphByName("demo"); err == nil {
			if err := s.DeleteGraph(g); err != nil {
				return err
			}
		}

		g, err := s.CreateGraph("demo")
		if err != nil {
			return err
		}

		var nodes []graph.Node

		for i := 0; i < 10; i++ {
			n, err := g.AddNode()
			if err != nil {
				return err
			}

			if err := n.SetProperty("name", fmt.Sprint("node", i)); err != nil {
				return err
			}

			nodes = append(nodes, n)
		}

		for _, e := range demoEdges {
			if _, err := g.AddEdge(nodes[e[0]], nodes[e[1]]); err != nil {
				return err
			}
		}

		// Write everything so the adjacency is read back from the connector

		if err := s.Flush(); err != nil {
			return err
		}

		it, err := g.Nodes()
		if err != nil {
			return err
		}

		for it.HasNext() {
			n := it.Next()

			outs, err := n.OutNeighbors()
			if err != nil {
				return err
			}

			ids := make([]uint64, len(outs))
			for i, o := range outs {
				ids[i] = o.ID()
			}

			fmt.Fprintln(c.App.Writer, n.ID(), "->", ids)
		}

		if err := it.Error(); err != nil {
			return err
		}

		cc, err := algo.ClusteringCoefficient(g, false)
		if err != nil {
			return err
		}

		fmt.Fprintln(c.App.Writer, "Clustering coefficient:", cc)

		return nil
	})
}

func runGraphs(c *cli.Context) error {
	return withStore(func(s *pagegraph.Store) error {
		for _, g := range s.Graphs() {
			fmt.Fprintln(c.App.Writer, g.ID(), g.Name(), g.NodeCount())
		}
		return nil
	})
}

func runStats(c *cli.Context) error {
	return withStore(func(s *pagegraph.Store) error {
		fmt.Fprintln(c.App.Writer, "Store:", s.StoreID())

		for _, g := range s.Graphs() {
			fmt.Fprintln(c.App.Writer, g)
		}

		fmt.Fprintln(c.App.Writer, "Buffer:", s.Stats())

		if config.Bool(config.EnableMetrics) {
			return printMetrics(c.App.Writer)
		}

		return nil
	})
}

func runClusteringCoefficient(c *cli.Context) error {
	return withStore(func(s *pagegraph.Store) error {
		g, err := graphArg(c, s)
		if err != nil {
			return err
		}

		cc, err := algo.ClusteringCoefficient(g, c.Bool(flagDirected))
		if err == nil {
			fmt.Fprintln(c.App.Writer, "Clustering coefficient:", cc)
		}

		return err
	})
}

func runPageRank(c *cli.Context) error {
	return withStore(func(s *pagegraph.Store) error {
		g, err := graphArg(c, s)
		if err != nil {
			return err
		}

		ranks, err := algo.PageRank(g, c.Float64(flagDamping), c.Int(flagIterations))
		if err != nil {
			return err
		}

		ids := make([]uint64, 0, len(ranks))
		for nid := range ranks {
			ids = append(ids, nid)
		}

		sort.Slice(ids, func(i, j int) bool {
			return ids[i] < ids[j]
		})

		for _, nid := range ids {
			fmt.Fprintf(c.App.Writer, "%v %.6f\n", nid, ranks[nid])
		}

		return nil
	})
}

/*
printMetrics prints the current values of all PageGraph metrics.
*/
func printMetrics(w io.Writer) error {
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}

	for _, mf := range mfs {
		if !strings.HasPrefix(mf.GetName(), "pagegraph_") {
			continue
		}

		for _, m := range mf.GetMetric() {
			var labels []string

			for _, l := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%v=%v", l.GetName(), l.GetValue()))
			}

			val := m.GetCounter().GetValue()
			if m.GetGauge() != nil {
				val = m.GetGauge().GetValue()
			}

			fmt.Fprintf(w, "%v{%v} %v\n", mf.GetName(), strings.Join(labels, ","), val)
		}
	}

	return nil
}
