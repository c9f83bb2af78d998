// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package badger

import (
	"fmt"
	"strings"

	"gitlab.com/accumulatenetwork/starregistry/internal/logging"
)

// logger adapts a key-value logger to Badger's printf-style logger.
type logger struct {
	L logging.OptionalLogger
}

func (l logger) format(format string, args ...interface{}) string {
	s := fmt.Sprintf(format, args...)
	return strings.TrimRight(s, "\n")
}

func (l logger) Errorf(format string, args ...interface{}) {
	l.L.Error(l.format(format, args...))
}

func (l logger) Warningf(format string, args ...interface{}) {
	l.L.Info(l.format(format, args...), "warning", true)
}

func (l logger) Infof(format string, args ...interface{}) {
	l.L.Debug(l.format(format, args...))
}

func (l logger) Debugf(format string, args ...interface{}) {
	l.L.Debug(l.format(format, args...))
}
