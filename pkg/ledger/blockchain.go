// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package ledger implements an append-only, hash-linked sequence of blocks
// mirrored to a key-value store.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/go-playground/validator/v10"
	"gitlab.com/accumulatenetwork/starregistry/internal/logging"
	"gitlab.com/accumulatenetwork/starregistry/pkg/database/keyvalue"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
)

// Blockchain is the ledger. It must be loaded before use.
type Blockchain struct {
	store    keyvalue.Store
	location string
	logger   logging.OptionalLogger
	clock    clock.Clock
	validate *validator.Validate

	loading atomic.Bool
	ready   chan struct{}

	mu     sync.RWMutex
	chain  []*Block
	closed bool
}

// New returns a ledger backed by the store. The ledger is not ready until
// [Blockchain.Load] succeeds.
func New(store keyvalue.Store, opts ...Option) *Blockchain {
	b := new(Blockchain)
	b.store = store
	b.clock = clock.New()
	b.validate = validator.New()
	b.ready = make(chan struct{})
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open creates a ledger and loads it.
func Open(ctx context.Context, store keyvalue.Store, opts ...Option) (*Blockchain, error) {
	b := New(store, opts...)
	err := b.Load(ctx)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Load replays the store into memory, appending the genesis block if the
// store is empty, and then marks the ledger ready. Load may only be called
// once. If it fails the ledger never becomes ready.
func (b *Blockchain) Load(ctx context.Context) error {
	if !b.loading.CompareAndSwap(false, true) {
		return errors.Conflict.With("ledger has already been loaded")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var chain []*Block
	err := b.store.ForEach(func(key, value []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		height, err := keyvalue.ParseHeightKey(key)
		if err != nil {
			return err
		}

		block, err := unmarshalBlock(b.validate, value)
		if err != nil {
			return errors.UnknownError.WithFormat("block %d: %w", height, err)
		}

		switch {
		case block.Height != height:
			return errors.EncodingError.WithFormat("block stored at %d claims height %d", height, block.Height)
		case height != uint64(len(chain)):
			return errors.EncodingError.WithFormat("expected block %d, found %d", len(chain), height)
		}

		chain = append(chain, block)
		return nil
	})
	if err != nil {
		return errors.StorageFailure.WithFormat("load ledger: %w", err)
	}

	b.chain = chain
	if len(b.chain) == 0 {
		_, err = b.append(genesisBody)
		if err != nil {
			return errors.UnknownError.WithFormat("create genesis block: %w", err)
		}
		b.logger.Info("Created genesis block", "hash", b.chain[0].Hash)
	}

	mHeight.Set(float64(len(b.chain) - 1))
	b.logger.Info("Ledger loaded", "height", len(b.chain)-1)
	close(b.ready)
	return nil
}

// Ready returns a channel that is closed once the ledger is loaded.
func (b *Blockchain) Ready() <-chan struct{} { return b.ready }

// WaitReady blocks until the ledger is loaded or the context is canceled.
func (b *Blockchain) WaitReady(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// checkReady must be called with the lock held.
func (b *Blockchain) checkReady() error {
	select {
	case <-b.ready:
	default:
		return errors.NotReady.With("ledger is not loaded")
	}
	if b.closed {
		return errors.NotReady.With("ledger is closed")
	}
	return nil
}

// Append adds a block with the given body to the end of the chain and
// persists it. The body must be valid JSON. If the block cannot be persisted
// it is removed from the chain and a StorageFailure is returned.
func (b *Blockchain) Append(body json.RawMessage) (*Block, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkReady(); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := json.Compact(buf, body); err != nil {
		return nil, errors.BadRequest.WithFormat("body is not valid JSON: %w", err)
	}

	block, err := b.append(buf.Bytes())
	if err != nil {
		return nil, err
	}

	mHeight.Set(float64(block.Height))
	return block.Copy(), nil
}

func (b *Blockchain) append(body json.RawMessage) (*Block, error) {
	block := new(Block)
	block.Height = uint64(len(b.chain))
	block.Body = body
	block.Time = b.clock.Now().Unix()
	if block.Height > 0 {
		block.PreviousBlockHash = b.chain[block.Height-1].Hash
	}

	var err error
	block.Hash, err = block.ComputeHash()
	if err != nil {
		return nil, errors.UnknownError.Wrap(err)
	}

	value, err := json.Marshal(block)
	if err != nil {
		return nil, errors.EncodingError.WithFormat("marshal block %d: %w", block.Height, err)
	}

	b.chain = append(b.chain, block)
	err = b.store.Put(keyvalue.HeightKey(block.Height), value)
	if err != nil {
		b.chain = b.chain[:block.Height]
		mAppendFailures.Inc()
		b.logger.Error("Failed to persist block", "height", block.Height, "error", err)
		return nil, errors.StorageFailure.WithFormat("persist block %d: %w", block.Height, err)
	}

	mAppends.Inc()
	b.logger.Debug("Appended block", "height", block.Height, "hash", block.Hash)
	return block, nil
}

// GetBlockHeight returns the height of the last block.
func (b *Blockchain) GetBlockHeight() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkReady(); err != nil {
		return 0, err
	}
	return uint64(len(b.chain) - 1), nil
}

// GetBlock returns a copy of the block at the given height.
func (b *Blockchain) GetBlock(height uint64) (*Block, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkReady(); err != nil {
		return nil, err
	}
	if height >= uint64(len(b.chain)) {
		return nil, errors.NotFound.WithFormat("block %d not found", height)
	}
	return b.chain[height].Copy(), nil
}

// Blocks returns a copy of every block in the chain.
func (b *Blockchain) Blocks() ([]*Block, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkReady(); err != nil {
		return nil, err
	}
	blocks := make([]*Block, len(b.chain))
	for i, block := range b.chain {
		blocks[i] = block.Copy()
	}
	return blocks, nil
}

// FindByHash returns a copy of the block with the given hash.
func (b *Blockchain) FindByHash(hash string) (*Block, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkReady(); err != nil {
		return nil, err
	}
	for _, block := range b.chain {
		if block.Hash == hash {
			return block.Copy(), nil
		}
	}
	return nil, errors.NotFound.WithFormat("block %s not found", hash)
}

// FindByAddress returns copies of every block whose body is an object with
// the given address. The genesis block is never returned.
func (b *Blockchain) FindByAddress(address string) ([]*Block, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkReady(); err != nil {
		return nil, err
	}

	var blocks []*Block
	for _, block := range b.chain {
		if block.Height == 0 {
			continue
		}
		var body struct {
			Address string `json:"address"`
		}
		if json.Unmarshal(block.Body, &body) != nil {
			continue
		}
		if body.Address == address {
			blocks = append(blocks, block.Copy())
		}
	}
	return blocks, nil
}

// ValidateBlock recomputes the hash of the block at the given height and
// compares it to the stored hash. A mismatch is logged and reported as false.
func (b *Blockchain) ValidateBlock(height uint64) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkReady(); err != nil {
		return false, err
	}
	if height >= uint64(len(b.chain)) {
		return false, errors.NotFound.WithFormat("block %d not found", height)
	}
	return b.validateBlock(b.chain[height]), nil
}

func (b *Blockchain) validateBlock(block *Block) bool {
	hash, err := block.ComputeHash()
	if err != nil {
		b.logger.Error("Cannot hash block", "height", block.Height, "error", err)
		return false
	}
	if hash == block.Hash {
		return true
	}
	b.logger.Error("Block has an invalid hash", "height", block.Height, "stored", block.Hash, "computed", hash)
	return false
}

// ValidateChain validates every block and every link between adjacent
// blocks. It returns true if the chain is intact, along with the heights of
// any offending blocks in the order they were found. A broken link between i
// and i+1 is reported as i. A height may appear twice if its block fails
// both checks.
func (b *Blockchain) ValidateChain() (bool, []uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkReady(); err != nil {
		return false, nil, err
	}

	var offending []uint64
	for i, block := range b.chain {
		if !b.validateBlock(block) {
			offending = append(offending, block.Height)
		}
		if i+1 == len(b.chain) {
			continue
		}
		next := b.chain[i+1]
		if block.Hash != next.PreviousBlockHash {
			b.logger.Error("Broken link", "height", block.Height, "hash", block.Hash, "next-previous", next.PreviousBlockHash)
			offending = append(offending, block.Height)
		}
	}

	if len(offending) > 0 {
		mIntegrityViolations.Add(float64(len(offending)))
		b.logger.Error("Chain is invalid", "offending", offending)
		return false, offending, nil
	}
	return true, nil, nil
}

// Close closes the store. Subsequent operations fail with NotReady.
func (b *Blockchain) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.NotReady.With("ledger is closed")
	}
	b.closed = true
	return b.store.Close()
}

// Destroy closes the store and removes its location.
func (b *Blockchain) Destroy() error {
	err := b.Close()
	if err != nil && !errors.Is(err, errors.NotReady) {
		return err
	}
	return keyvalue.Destroy(b.location)
}
