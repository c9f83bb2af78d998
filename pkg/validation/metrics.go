// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package validation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mPending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "starregistry",
		Subsystem: "validation",
		Name:      "pending",
		Help:      "Number of tracked validation requests",
	})
	mSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "starregistry",
		Subsystem: "validation",
		Name:      "swept_total",
		Help:      "Number of expired validation requests removed",
	})
	mSignatureChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "starregistry",
		Subsystem: "validation",
		Name:      "signature_checks_total",
		Help:      "Number of signature checks by result",
	}, []string{"result"})
)
