// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package signature verifies ownership of an address via a signed message.
package signature

import (
	"bytes"
	"encoding/base64"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
)

// Verifier verifies that a signature of the message was produced by the
// owner of the address. Verify returns an error if the signature or address
// is malformed.
type Verifier interface {
	Verify(message, address, signature string) (bool, error)
}

// MessageMagic is prepended to every signed message.
const MessageMagic = "Bitcoin Signed Message:\n"

// CompactSignatureLength is the length of a decoded signature.
const CompactSignatureLength = 65

// BitcoinMessage verifies legacy Bitcoin signed messages for P2PKH
// addresses. The zero value verifies mainnet addresses.
type BitcoinMessage struct {
	Params *chaincfg.Params
}

var _ Verifier = BitcoinMessage{}

func (v BitcoinMessage) params() *chaincfg.Params {
	if v.Params == nil {
		return &chaincfg.MainNetParams
	}
	return v.Params
}

// Verify recovers the public key from the base64-encoded compact signature
// and checks that it hashes to the address.
func (v BitcoinMessage) Verify(message, address, signature string) (bool, error) {
	params := v.params()
	_, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return false, errors.BadRequest.WithFormat("invalid address: %w", err)
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false, errors.BadSignature.WithFormat("decode signature: %w", err)
	}
	if len(sig) != CompactSignatureLength {
		return false, errors.BadSignature.WithFormat("invalid signature length: want %d, got %d", CompactSignatureLength, len(sig))
	}

	hash, err := MessageHash(message)
	if err != nil {
		return false, err
	}

	key, compressed, err := ecdsa.RecoverCompact(sig, hash)
	if err != nil {
		return false, errors.BadSignature.WithFormat("recover public key: %w", err)
	}

	recovered, err := Address(key, compressed, params)
	if err != nil {
		return false, err
	}
	return recovered == address, nil
}

// MessageHash returns the double SHA-256 digest of the magic-prefixed
// message.
func MessageHash(message string) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := wire.WriteVarString(buf, 0, MessageMagic)
	if err != nil {
		return nil, errors.EncodingError.Wrap(err)
	}
	err = wire.WriteVarString(buf, 0, message)
	if err != nil {
		return nil, errors.EncodingError.Wrap(err)
	}
	return chainhash.DoubleHashB(buf.Bytes()), nil
}

// Address returns the P2PKH address of the key.
func Address(key *btcec.PublicKey, compressed bool, params *chaincfg.Params) (string, error) {
	var b []byte
	if compressed {
		b = key.SerializeCompressed()
	} else {
		b = key.SerializeUncompressed()
	}

	addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(b), params)
	if err != nil {
		return "", errors.EncodingError.WithFormat("encode address: %w", err)
	}
	return addr.EncodeAddress(), nil
}

// Sign signs the message, returning a base64-encoded compact signature.
func Sign(key *btcec.PrivateKey, message string, compressed bool) (string, error) {
	hash, err := MessageHash(message)
	if err != nil {
		return "", err
	}
	sig := ecdsa.SignCompact(key, hash, compressed)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// SignWIF signs the message with a WIF-encoded private key, returning the
// signature and the address of the key.
func SignWIF(wif, message string) (signature, address string, err error) {
	w, err := btcutil.DecodeWIF(wif)
	if err != nil {
		return "", "", errors.BadRequest.WithFormat("decode WIF: %w", err)
	}

	params := &chaincfg.MainNetParams
	for _, p := range []*chaincfg.Params{&chaincfg.MainNetParams, &chaincfg.TestNet3Params, &chaincfg.RegressionNetParams, &chaincfg.SimNetParams} {
		if w.IsForNet(p) {
			params = p
			break
		}
	}

	address, err = Address(w.PrivKey.PubKey(), w.CompressPubKey, params)
	if err != nil {
		return "", "", err
	}
	signature, err = Sign(w.PrivKey, message, w.CompressPubKey)
	if err != nil {
		return "", "", err
	}
	return signature, address, nil
}
