// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
	"gitlab.com/accumulatenetwork/starregistry/pkg/star"
	"gitlab.com/accumulatenetwork/starregistry/pkg/validation"
)

type requestValidationRequest struct {
	Address string `json:"address" validate:"required"`
}

func (h *Handler) requestValidation(r *http.Request, _ httprouter.Params) (interface{}, error) {
	var req requestValidationRequest
	err := decodeRequest(r, &req)
	if err != nil {
		return nil, err
	}
	err = star.Validate(&req)
	if err != nil {
		return nil, err
	}

	return h.registry.GetOrCreate(req.Address), nil
}

type validateSignatureRequest struct {
	Address   string `json:"address" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

type signatureStatus struct {
	Address          string `json:"address"`
	RequestTimeStamp int64  `json:"requestTimeStamp"`
	Message          string `json:"message"`
	ValidationWindow int64  `json:"validationWindow"`
	MessageSignature string `json:"messageSignature"`
}

type validateSignatureResponse struct {
	RegisterStar bool            `json:"registerStar"`
	Status       signatureStatus `json:"status"`
}

func newSignatureStatus(v validation.Validation, valid bool) signatureStatus {
	s := signatureStatus{
		Address:          v.Address,
		RequestTimeStamp: v.RequestTimestamp,
		Message:          v.Message,
		ValidationWindow: v.RemainingWindow(),
		MessageSignature: "invalid",
	}
	if valid {
		s.MessageSignature = "valid"
	}
	return s
}

func (h *Handler) validateSignature(r *http.Request, _ httprouter.Params) (interface{}, error) {
	var req validateSignatureRequest
	err := decodeRequest(r, &req)
	if err != nil {
		return nil, err
	}
	err = star.Validate(&req)
	if err != nil {
		return nil, err
	}

	v, err := h.registry.Find(req.Address)
	if err != nil {
		// An unknown address is the client's mistake, not a missing resource
		return nil, errors.BadRequest.WithCauseAndFormat(err, "no active validation request found for %s", req.Address)
	}

	valid := h.registry.ValidateSignature(v, req.Signature)
	if valid {
		h.verified.Add(v.Address)
		h.logger.Info("Address verified", "address", v.Address)
	}
	return validateSignatureResponse{valid, newSignatureStatus(v, valid)}, nil
}

type addBlockRequest struct {
	Address string    `json:"address"`
	Star    star.Star `json:"star"`
}

func (h *Handler) addBlock(r *http.Request, _ httprouter.Params) (interface{}, error) {
	var req addBlockRequest
	err := decodeRequest(r, &req)
	if err != nil {
		return nil, err
	}
	if req.Address == "" {
		return nil, errors.BadRequest.With("address is required")
	}
	if !h.verified.Has(req.Address) {
		return nil, errors.BadRequest.WithFormat("address %s has not been validated", req.Address)
	}

	body, err := star.NewBody(req.Address, req.Star)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, errors.EncodingError.Wrap(err)
	}

	// Each verification registers one star
	if !h.verified.Take(req.Address) {
		return nil, errors.BadRequest.WithFormat("address %s has not been validated", req.Address)
	}

	block, err := h.ledger.Append(raw)
	if err != nil {
		h.verified.Add(req.Address)
		return nil, errors.UnknownError.Wrap(err)
	}

	h.logger.Info("Star registered", "address", req.Address, "height", block.Height, "hash", block.Hash)
	return block, nil
}

func (h *Handler) getBlock(_ *http.Request, params httprouter.Params) (interface{}, error) {
	height, err := strconv.ParseUint(params.ByName("height"), 10, 64)
	if err != nil {
		return nil, errors.BadRequest.WithFormat("invalid height %q", params.ByName("height"))
	}

	block, err := h.ledger.GetBlock(height)
	if err != nil {
		return nil, err
	}
	return star.Decode(block)
}

// findStars serves /stars/address/{address} and /stars/hash/{hash}, as well
// as /stars/address:{address} and /stars/hash:{hash}.
func (h *Handler) findStars(_ *http.Request, params httprouter.Params) (interface{}, error) {
	kind, value := params.ByName("selector"), params.ByName("value")
	if value == "" {
		var ok bool
		kind, value, ok = strings.Cut(kind, ":")
		if !ok {
			return nil, errors.NotFound.WithFormat("unknown star query %q", params.ByName("selector"))
		}
	}
	if value == "" {
		return nil, errors.BadRequest.WithFormat("missing %s", kind)
	}

	switch kind {
	case "address":
		blocks, err := h.ledger.FindByAddress(value)
		if err != nil {
			return nil, err
		}
		return star.DecodeAll(blocks)

	case "hash":
		block, err := h.ledger.FindByHash(value)
		if err != nil {
			return nil, err
		}
		if block.Height == 0 {
			return nil, errors.NotFound.WithFormat("block %s not found", value)
		}
		return star.Decode(block)

	default:
		return nil, errors.NotFound.WithFormat("unknown star query %q", kind)
	}
}

type statusResponse struct {
	Height             uint64   `json:"height"`
	Valid              bool     `json:"valid"`
	Offending          []uint64 `json:"offending,omitempty"`
	PendingValidations int      `json:"pendingValidations"`
}

func (h *Handler) status(_ *http.Request, _ httprouter.Params) (interface{}, error) {
	height, err := h.ledger.GetBlockHeight()
	if err != nil {
		return nil, err
	}
	valid, offending, err := h.ledger.ValidateChain()
	if err != nil {
		return nil, err
	}
	return statusResponse{height, valid, offending, h.registry.Pending()}, nil
}
