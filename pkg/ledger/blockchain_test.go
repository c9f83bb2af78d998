// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package ledger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/starregistry/internal/logging"
	"gitlab.com/accumulatenetwork/starregistry/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/starregistry/pkg/database/keyvalue/memory"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
)

func open(t *testing.T, store keyvalue.Store, opts ...Option) *Blockchain {
	t.Helper()
	opts = append([]Option{WithLogger(logging.NewTestLogger(t))}, opts...)
	b, err := Open(context.Background(), store, opts...)
	require.NoError(t, err)
	return b
}

func appendBodies(t *testing.T, b *Blockchain, bodies ...string) {
	t.Helper()
	for _, body := range bodies {
		_, err := b.Append(json.RawMessage(body))
		require.NoError(t, err)
	}
}

func TestGenesis(t *testing.T) {
	b := open(t, memory.New())

	height, err := b.GetBlockHeight()
	require.NoError(t, err)
	require.Zero(t, height)

	genesis, err := b.GetBlock(0)
	require.NoError(t, err)
	require.True(t, genesis.IsGenesis())
	require.Empty(t, genesis.PreviousBlockHash)
	require.JSONEq(t, `"First block in the chain - Genesis block"`, string(genesis.Body))

	ok, offending, err := b.ValidateChain()
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, offending)
}

func TestAppend(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Unix(1700000000, 0))
	b := open(t, memory.New(), WithClock(clk))

	clk.Add(time.Minute)
	block, err := b.Append(json.RawMessage(`{"address": "A"}`))
	require.NoError(t, err)
	require.Equal(t, uint64(1), block.Height)
	require.Equal(t, int64(1700000060), block.Time)
	require.Equal(t, `{"address":"A"}`, string(block.Body))

	genesis, err := b.GetBlock(0)
	require.NoError(t, err)
	require.Equal(t, genesis.Hash, block.PreviousBlockHash)

	hash, err := block.ComputeHash()
	require.NoError(t, err)
	require.Equal(t, hash, block.Hash)

	appendBodies(t, b, `"B"`, `"C"`)
	height, err := b.GetBlockHeight()
	require.NoError(t, err)
	require.Equal(t, uint64(3), height)

	ok, offending, err := b.ValidateChain()
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, offending)
}

func TestAppendInvalidBody(t *testing.T) {
	b := open(t, memory.New())
	_, err := b.Append(json.RawMessage(`{"address":`))
	require.ErrorIs(t, err, errors.BadRequest)

	height, err := b.GetBlockHeight()
	require.NoError(t, err)
	require.Zero(t, height)
}

func TestCorruptedBody(t *testing.T) {
	b := open(t, memory.New())
	appendBodies(t, b, `"A"`, `"B"`, `"C"`)

	// Changing the body invalidates the block's own hash, but the stored hash
	// is untouched so the link from block 3 still holds
	b.chain[2].Body = json.RawMessage(`"tampered"`)

	valid, err := b.ValidateBlock(2)
	require.NoError(t, err)
	require.False(t, valid)

	ok, offending, err := b.ValidateChain()
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, []uint64{2}, offending)
}

func TestCorruptedLastBody(t *testing.T) {
	b := open(t, memory.New())
	appendBodies(t, b, `"A"`, `"B"`, `"C"`)
	b.chain[3].Body = json.RawMessage(`"tampered"`)

	ok, offending, err := b.ValidateChain()
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, []uint64{3}, offending)
}

func TestRehashedBlock(t *testing.T) {
	b := open(t, memory.New())
	appendBodies(t, b, `"A"`, `"B"`, `"C"`)

	// Rehashing a tampered block makes it self-consistent but breaks the link
	// to its successor
	var err error
	b.chain[2].Body = json.RawMessage(`"tampered"`)
	b.chain[2].Hash, err = b.chain[2].ComputeHash()
	require.NoError(t, err)

	ok, offending, err := b.ValidateChain()
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, []uint64{2}, offending)
}

func TestCorruptedHash(t *testing.T) {
	b := open(t, memory.New())
	appendBodies(t, b, `"A"`, `"B"`, `"C"`)

	// A bad hash field fails both checks
	b.chain[1].Hash = "bad"

	ok, offending, err := b.ValidateChain()
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, []uint64{1, 1}, offending)
}

func TestDefensiveCopy(t *testing.T) {
	b := open(t, memory.New())
	block, err := b.Append(json.RawMessage(`"A"`))
	require.NoError(t, err)
	block.Body[1] = 'X'
	block.Hash = "changed"

	stored, err := b.GetBlock(1)
	require.NoError(t, err)
	require.Equal(t, `"A"`, string(stored.Body))
	require.NotEqual(t, "changed", stored.Hash)

	blocks, err := b.Blocks()
	require.NoError(t, err)
	blocks[1].Body[1] = 'Y'

	ok, _, err := b.ValidateChain()
	require.NoError(t, err)
	require.True(t, ok)
}

func TestGetBlockOutOfRange(t *testing.T) {
	b := open(t, memory.New())
	_, err := b.GetBlock(1)
	require.ErrorIs(t, err, errors.NotFound)

	_, err = b.ValidateBlock(5)
	require.ErrorIs(t, err, errors.NotFound)
}

func TestNotReady(t *testing.T) {
	b := New(memory.New())

	_, err := b.GetBlockHeight()
	require.ErrorIs(t, err, errors.NotReady)
	_, err = b.GetBlock(0)
	require.ErrorIs(t, err, errors.NotReady)
	_, err = b.Append(json.RawMessage(`"A"`))
	require.ErrorIs(t, err, errors.NotReady)
	_, _, err = b.ValidateChain()
	require.ErrorIs(t, err, errors.NotReady)

	select {
	case <-b.Ready():
		t.Fatal("ledger should not be ready")
	default:
	}

	require.NoError(t, b.Load(context.Background()))
	<-b.Ready()

	_, err = b.GetBlockHeight()
	require.NoError(t, err)

	require.ErrorIs(t, b.Load(context.Background()), errors.Conflict)
}

func TestWaitReady(t *testing.T) {
	b := New(memory.New())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, b.WaitReady(ctx), context.DeadlineExceeded)

	done := make(chan error)
	go func() { done <- b.Load(context.Background()) }()
	require.NoError(t, b.WaitReady(context.Background()))
	require.NoError(t, <-done)
}

func TestReplay(t *testing.T) {
	store := memory.New()
	b := open(t, store)
	appendBodies(t, b, `{"address":"A"}`, `{"address":"B"}`)
	want, err := b.Blocks()
	require.NoError(t, err)

	b2 := open(t, store)
	got, err := b2.Blocks()
	require.NoError(t, err)
	require.Equal(t, want, got)

	// The genesis block is not recreated
	require.Equal(t, 3, store.Len())
}

type failingStore struct {
	keyvalue.Store
	fail bool
}

func (s *failingStore) Put(key, value []byte) error {
	if s.fail {
		return errors.StorageFailure.With("disk full")
	}
	return s.Store.Put(key, value)
}

func TestAppendRevertsOnStoreFailure(t *testing.T) {
	store := &failingStore{Store: memory.New()}
	b := open(t, store)
	appendBodies(t, b, `"A"`)

	store.fail = true
	_, err := b.Append(json.RawMessage(`"B"`))
	require.ErrorIs(t, err, errors.StorageFailure)

	height, err := b.GetBlockHeight()
	require.NoError(t, err)
	require.Equal(t, uint64(1), height)

	store.fail = false
	block, err := b.Append(json.RawMessage(`"C"`))
	require.NoError(t, err)
	require.Equal(t, uint64(2), block.Height)

	prev, err := b.GetBlock(1)
	require.NoError(t, err)
	require.Equal(t, prev.Hash, block.PreviousBlockHash)

	// Memory and storage agree
	b2 := open(t, store.Store)
	blocks, err := b2.Blocks()
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	require.Equal(t, `"C"`, string(blocks[2].Body))
}

func TestGenesisStoreFailure(t *testing.T) {
	b := New(&failingStore{Store: memory.New(), fail: true})
	require.ErrorIs(t, b.Load(context.Background()), errors.StorageFailure)
	_, err := b.GetBlockHeight()
	require.ErrorIs(t, err, errors.NotReady)
}

func TestStrictReplay(t *testing.T) {
	record := func(fields map[string]any) []byte {
		b, err := json.Marshal(fields)
		require.NoError(t, err)
		return b
	}
	valid := func(height uint64) map[string]any {
		return map[string]any{
			"hash":              "00",
			"height":            height,
			"body":              "x",
			"time":              0,
			"previousBlockHash": "",
		}
	}

	cases := map[string]func(s keyvalue.Store){
		"UnknownField": func(s keyvalue.Store) {
			r := valid(0)
			r["extra"] = true
			require.NoError(t, s.Put(keyvalue.HeightKey(0), record(r)))
		},
		"MissingField": func(s keyvalue.Store) {
			r := valid(0)
			delete(r, "previousBlockHash")
			require.NoError(t, s.Put(keyvalue.HeightKey(0), record(r)))
		},
		"MissingBody": func(s keyvalue.Store) {
			r := valid(0)
			delete(r, "body")
			require.NoError(t, s.Put(keyvalue.HeightKey(0), record(r)))
		},
		"HeightMismatch": func(s keyvalue.Store) {
			require.NoError(t, s.Put(keyvalue.HeightKey(0), record(valid(1))))
		},
		"Gap": func(s keyvalue.Store) {
			require.NoError(t, s.Put(keyvalue.HeightKey(0), record(valid(0))))
			require.NoError(t, s.Put(keyvalue.HeightKey(2), record(valid(2))))
		},
		"BadKey": func(s keyvalue.Store) {
			require.NoError(t, s.Put([]byte("0"), record(valid(0))))
		},
		"NotJSON": func(s keyvalue.Store) {
			require.NoError(t, s.Put(keyvalue.HeightKey(0), []byte("{")))
		},
		"TrailingData": func(s keyvalue.Store) {
			require.NoError(t, s.Put(keyvalue.HeightKey(0), append(record(valid(0)), []byte(" {}")...)))
		},
	}

	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			store := memory.New()
			setup(store)
			before := len(scanKeys(t, store))

			b := New(store, WithLogger(logging.NewTestLogger(t)))
			require.ErrorIs(t, b.Load(context.Background()), errors.StorageFailure)
			_, err := b.GetBlock(0)
			require.ErrorIs(t, err, errors.NotReady)

			// No genesis block is written on failure
			require.Equal(t, before, len(scanKeys(t, store)))
		})
	}

	t.Run("ZeroValues", func(t *testing.T) {
		// Zero values are present, not missing
		store := memory.New()
		require.NoError(t, store.Put(keyvalue.HeightKey(0), record(valid(0))))
		b := New(store)
		require.NoError(t, b.Load(context.Background()))
	})
}

func scanKeys(t *testing.T, store keyvalue.Store) [][]byte {
	var keys [][]byte
	require.NoError(t, store.ForEach(func(key, _ []byte) error {
		keys = append(keys, key)
		return nil
	}))
	return keys
}

func TestReplayCorruptedBody(t *testing.T) {
	store := memory.New()
	b := open(t, store)
	appendBodies(t, b, `"A"`, `"B"`, `"C"`)

	block, err := b.GetBlock(2)
	require.NoError(t, err)
	block.Body = json.RawMessage(`"tampered"`)
	value, err := json.Marshal(block)
	require.NoError(t, err)
	require.NoError(t, store.Put(keyvalue.HeightKey(2), value))

	// Replay accepts the well-formed record and validation catches it
	b2 := open(t, store)
	ok, offending, err := b2.ValidateChain()
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, []uint64{2}, offending)
}

func TestFind(t *testing.T) {
	b := open(t, memory.New())
	appendBodies(t, b, `{"address":"A","star":{}}`, `{"address":"B"}`, `{"address":"A"}`, `[1,2]`)

	blocks, err := b.FindByAddress("A")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.Equal(t, uint64(1), blocks[0].Height)
	require.Equal(t, uint64(3), blocks[1].Height)

	blocks, err = b.FindByAddress("C")
	require.NoError(t, err)
	require.Empty(t, blocks)

	block, err := b.FindByHash(hashAt(t, b, 2))
	require.NoError(t, err)
	require.Equal(t, uint64(2), block.Height)

	_, err = b.FindByHash("nope")
	require.ErrorIs(t, err, errors.NotFound)
}

func hashAt(t *testing.T, b *Blockchain, height uint64) string {
	block, err := b.GetBlock(height)
	require.NoError(t, err)
	return block.Hash
}

func TestClose(t *testing.T) {
	b := open(t, memory.New())
	require.NoError(t, b.Close())

	_, err := b.GetBlock(0)
	require.ErrorIs(t, err, errors.NotReady)
	require.ErrorIs(t, b.Close(), errors.NotReady)
}

func TestDestroy(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chaindb")
	require.NoError(t, os.MkdirAll(dir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data"), []byte("x"), 0600))

	b := open(t, memory.New(), WithLocation(dir))
	require.NoError(t, b.Destroy())

	_, err := os.Stat(dir)
	require.True(t, os.IsNotExist(err))
}
