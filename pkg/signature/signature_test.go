// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package signature_test

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
	. "gitlab.com/accumulatenetwork/starregistry/pkg/signature"
)

func testKey(seed string) *btcec.PrivateKey {
	h := sha256.Sum256([]byte(seed))
	key, _ := btcec.PrivKeyFromBytes(h[:])
	return key
}

func TestVerify(t *testing.T) {
	const message = "1Addr:1532330740:starRegistry"
	key := testKey("API registry test")

	for _, compressed := range []bool{true, false} {
		address, err := Address(key.PubKey(), compressed, &chaincfg.MainNetParams)
		require.NoError(t, err)

		sig, err := Sign(key, message, compressed)
		require.NoError(t, err)

		ok, err := BitcoinMessage{}.Verify(message, address, sig)
		require.NoError(t, err)
		require.True(t, ok, "compressed=%v", compressed)

		ok, err = BitcoinMessage{}.Verify(message+"x", address, sig)
		require.NoError(t, err)
		require.False(t, ok)
	}
}

func TestVerifyWrongAddress(t *testing.T) {
	const message = "hello"
	key := testKey("one")
	other, err := Address(testKey("two").PubKey(), true, &chaincfg.MainNetParams)
	require.NoError(t, err)

	sig, err := Sign(key, message, true)
	require.NoError(t, err)

	ok, err := BitcoinMessage{}.Verify(message, other, sig)
	require.NoError(t, err)
	require.False(t, ok)

	// The compression flag is part of the address
	uncompressed, err := Address(key.PubKey(), false, &chaincfg.MainNetParams)
	require.NoError(t, err)
	ok, err = BitcoinMessage{}.Verify(message, uncompressed, sig)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyMalformed(t *testing.T) {
	address, err := Address(testKey("one").PubKey(), true, &chaincfg.MainNetParams)
	require.NoError(t, err)

	_, err = BitcoinMessage{}.Verify("m", address, "not base64!")
	require.ErrorIs(t, err, errors.BadSignature)

	_, err = BitcoinMessage{}.Verify("m", address, base64.StdEncoding.EncodeToString(make([]byte, 64)))
	require.ErrorIs(t, err, errors.BadSignature)

	// Invalid header byte
	_, err = BitcoinMessage{}.Verify("m", address, base64.StdEncoding.EncodeToString(make([]byte, 65)))
	require.ErrorIs(t, err, errors.BadSignature)

	sig, err := Sign(testKey("one"), "m", true)
	require.NoError(t, err)
	_, err = BitcoinMessage{}.Verify("m", "not an address", sig)
	require.ErrorIs(t, err, errors.BadRequest)
}

func TestTestnet(t *testing.T) {
	key := testKey("testnet")
	address, err := Address(key.PubKey(), true, &chaincfg.TestNet3Params)
	require.NoError(t, err)

	sig, err := Sign(key, "m", true)
	require.NoError(t, err)

	ok, err := BitcoinMessage{Params: &chaincfg.TestNet3Params}.Verify("m", address, sig)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSignWIF(t *testing.T) {
	key := testKey("wif")
	wif, err := btcutil.NewWIF(key, &chaincfg.MainNetParams, true)
	require.NoError(t, err)

	sig, address, err := SignWIF(wif.String(), "challenge")
	require.NoError(t, err)

	want, err := Address(key.PubKey(), true, &chaincfg.MainNetParams)
	require.NoError(t, err)
	require.Equal(t, want, address)

	ok, err := BitcoinMessage{}.Verify("challenge", address, sig)
	require.NoError(t, err)
	require.True(t, ok)

	_, _, err = SignWIF("garbage", "challenge")
	require.ErrorIs(t, err, errors.BadRequest)
}
