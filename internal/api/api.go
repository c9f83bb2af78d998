// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package api serves the star registry over HTTP.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gitlab.com/accumulatenetwork/starregistry/internal/logging"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
	"gitlab.com/accumulatenetwork/starregistry/pkg/ledger"
	"gitlab.com/accumulatenetwork/starregistry/pkg/validation"
)

// MaxRequestSize is the maximum size of a request body.
const MaxRequestSize = 1 << 20

type Ledger interface {
	Append(body json.RawMessage) (*ledger.Block, error)
	GetBlock(height uint64) (*ledger.Block, error)
	GetBlockHeight() (uint64, error)
	FindByHash(hash string) (*ledger.Block, error)
	FindByAddress(address string) ([]*ledger.Block, error)
	ValidateChain() (bool, []uint64, error)
}

type Registry interface {
	GetOrCreate(address string) validation.Validation
	Find(address string) (validation.Validation, error)
	ValidateSignature(v validation.Validation, signature string) bool
	Pending() int
}

type Options struct {
	Logger   logging.Logger
	Ledger   Ledger
	Registry Registry
}

// Handler routes requests to the ledger and the validation registry.
type Handler struct {
	logger   logging.OptionalLogger
	ledger   Ledger
	registry Registry
	verified *addressSet
	router   *httprouter.Router
}

var _ http.Handler = (*Handler)(nil)

func NewHandler(opts Options) (*Handler, error) {
	if opts.Ledger == nil {
		return nil, errors.BadRequest.With("missing ledger")
	}
	if opts.Registry == nil {
		return nil, errors.BadRequest.With("missing registry")
	}

	h := new(Handler)
	h.logger.Set(opts.Logger, "module", "api")
	h.ledger = opts.Ledger
	h.registry = opts.Registry
	h.verified = newAddressSet()

	r := httprouter.New()
	r.POST("/requestValidation", h.handle(h.requestValidation))
	r.POST("/message-signature/validate", h.handle(h.validateSignature))
	r.POST("/block", h.handle(h.addBlock))
	r.GET("/block/:height", h.handle(h.getBlock))
	r.GET("/stars/:selector", h.handle(h.findStars))
	r.GET("/stars/:selector/:value", h.handle(h.findStars))
	r.GET("/status", h.handle(h.status))
	r.Handler(http.MethodGet, "/metrics", promhttp.Handler())
	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, errors.NotFound.WithFormat("no route for %s", r.URL.Path))
	})
	r.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, errors.BadRequest.WithFormat("method %s not allowed", r.Method))
	})
	h.router = r
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

type handlerFunc func(r *http.Request, params httprouter.Params) (interface{}, error)

func (h *Handler) handle(fn handlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, MaxRequestSize)
		}

		v, err := fn(r, params)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusOK, v)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// StatusCode returns the HTTP status for an error. Client errors keep their
// code, NotReady is 503, and everything else is 500.
func StatusCode(err error) int {
	code := errors.Code(err)
	switch {
	case code == errors.NotReady:
		return http.StatusServiceUnavailable
	case code.IsClientError():
		return int(code)
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	if status >= 500 {
		h.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		h.logger.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	h.writeJSON(w, status, errorResponse{err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.logger.Error("Failed to write response", "error", err)
	}
}

func decodeRequest(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		return errors.BadRequest.WithFormat("decode request: %w", err)
	}
	return nil
}
