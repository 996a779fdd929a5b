/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package buffer

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

/*
Buffer metrics which are shared by all buffer managers of a process. The
metrics are always updated but only exported after RegisterMetrics was called.
*/
var (
	metricBytesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pagegraph_buffer_bytes_read_total",
		Help: "Total number of page bytes read from the connector",
	})

	metricBytesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pagegraph_buffer_bytes_written_total",
		Help: "Total number of page bytes written to the connector",
	})

	metricReadSeconds = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pagegraph_buffer_read_seconds_total",
		Help: "Total time spent reading pages",
	})

	metricWriteSeconds = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pagegraph_buffer_write_seconds_total",
		Help: "Total time spent writing pages",
	})

	metricFetches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pagegraph_buffer_fetches_total",
		Help: "Total number of subgraphs fetched from the connector",
	})

	metricEvictions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pagegraph_buffer_evictions_total",
		Help: "Total number of evicted subgraphs",
	}, []string{"state"})

	metricResident = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pagegraph_buffer_resident_subgraphs",
		Help: "Number of subgraphs which are currently resident",
	})
)

/*
RegisterMetrics registers all buffer metrics with a given registerer. Metrics
which are already registered are skipped.
*/
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{metricBytesRead, metricBytesWritten,
		metricReadSeconds, metricWriteSeconds, metricFetches, metricEvictions,
		metricResident} {

		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError

			if !errors.As(err, &are) {
				return err
			}
		}
	}

	return nil
}
