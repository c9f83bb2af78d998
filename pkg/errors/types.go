// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package errors

import "strconv"

// Status is a request status code.
type Status uint64

const (
	// OK means the request completed successfully.
	OK Status = 200

	// BadRequest means the request was malformed or invalid.
	BadRequest Status = 400

	// Unauthorized means the caller has not proven ownership of the address.
	Unauthorized Status = 401

	// NotFound means a record could not be found.
	NotFound Status = 404

	// Conflict means the request conflicts with existing state.
	Conflict Status = 409

	// Expired means a time-bounded record is no longer active.
	Expired Status = 410

	// BadSignature means a signature could not be verified.
	BadSignature Status = 412

	// InternalError means an internal error occurred.
	InternalError Status = 500

	// UnknownError means an unknown error occurred.
	UnknownError Status = 501

	// EncodingError means something could not be encoded or decoded.
	EncodingError Status = 502

	// StorageFailure means the persistent store could not be opened, read or
	// written.
	StorageFailure Status = 503

	// NotReady means the service has not finished initializing.
	NotReady Status = 504

	// IntegrityViolation means a hash or hash link does not match.
	IntegrityViolation Status = 505
)

var statusNames = map[Status]string{
	OK:                 "ok",
	BadRequest:         "bad request",
	Unauthorized:       "unauthorized",
	NotFound:           "not found",
	Conflict:           "conflict",
	Expired:            "expired",
	BadSignature:       "bad signature",
	InternalError:      "internal error",
	UnknownError:       "unknown error",
	EncodingError:      "encoding error",
	StorageFailure:     "storage failure",
	NotReady:           "not ready",
	IntegrityViolation: "integrity violation",
}

// String returns the name of the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Status:" + strconv.FormatUint(uint64(s), 10)
}

// Error is an error with a status code, an optional cause, and the call sites
// that produced it.
type Error struct {
	Message   string      `json:"message,omitempty"`
	Code      Status      `json:"code,omitempty"`
	Cause     *Error      `json:"cause,omitempty"`
	CallStack []*CallSite `json:"callStack,omitempty"`
}

// CallSite is a location in the source.
type CallSite struct {
	FuncName string `json:"funcName,omitempty"`
	File     string `json:"file,omitempty"`
	Line     int64  `json:"line,omitempty"`
}
