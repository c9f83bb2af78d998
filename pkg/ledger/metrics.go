// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "starregistry",
		Subsystem: "ledger",
		Name:      "height",
		Help:      "Height of the last block",
	})
	mAppends = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "starregistry",
		Subsystem: "ledger",
		Name:      "appends_total",
		Help:      "Number of blocks appended",
	})
	mAppendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "starregistry",
		Subsystem: "ledger",
		Name:      "append_failures_total",
		Help:      "Number of appends that failed to persist",
	})
	mIntegrityViolations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "starregistry",
		Subsystem: "ledger",
		Name:      "integrity_violations_total",
		Help:      "Number of hash mismatches and broken links found by validation",
	})
)
