// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package ledger

import (
	"bytes"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
)

// GenesisMessage is the body of the block synthesized when the store is
// empty.
const GenesisMessage = "First block in the chain - Genesis block"

// Block is an entry in the ledger. Blocks are created by
// [Blockchain.Append] and never modified afterwards.
type Block struct {
	Hash              string          `json:"hash"`
	Height            uint64          `json:"height"`
	Body              json.RawMessage `json:"body"`
	Time              int64           `json:"time"`
	PreviousBlockHash string          `json:"previousBlockHash"`
}

// Copy returns a deep copy of the block.
func (b *Block) Copy() *Block {
	c := new(Block)
	err := copier.CopyWithOption(c, b, copier.Option{DeepCopy: true})
	if err != nil {
		// Only possible if the types do not match
		panic(err)
	}
	return c
}

// IsGenesis returns true if the block is the genesis block.
func (b *Block) IsGenesis() bool {
	return b.Height == 0 && b.PreviousBlockHash == "" && bytes.Equal(b.Body, genesisBody)
}

// ComputeHash computes the digest of the block with its hash field cleared.
func (b *Block) ComputeHash() (string, error) {
	c := *b
	c.Hash = ""
	data, err := json.Marshal(&c)
	if err != nil {
		return "", errors.EncodingError.WithFormat("marshal block %d: %w", b.Height, err)
	}
	return Digest(data), nil
}

var genesisBody = func() json.RawMessage {
	b, err := json.Marshal(GenesisMessage)
	if err != nil {
		panic(err)
	}
	return b
}()

// storedBlock is the persisted schema of a block. Every field is required, so
// a record that is missing a field fails to load instead of being silently
// defaulted.
type storedBlock struct {
	Hash              *string         `json:"hash" validate:"required"`
	Height            *uint64         `json:"height" validate:"required"`
	Body              json.RawMessage `json:"body" validate:"required"`
	Time              *int64          `json:"time" validate:"required"`
	PreviousBlockHash *string         `json:"previousBlockHash" validate:"required"`
}

func unmarshalBlock(v *validator.Validate, data []byte) (*Block, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var s storedBlock
	err := dec.Decode(&s)
	if err != nil {
		return nil, errors.EncodingError.WithFormat("decode block: %w", err)
	}
	if dec.More() {
		return nil, errors.EncodingError.With("decode block: trailing data")
	}

	err = v.Struct(&s)
	if err != nil {
		return nil, errors.EncodingError.WithFormat("invalid block record: %w", err)
	}

	return &Block{
		Hash:              *s.Hash,
		Height:            *s.Height,
		Body:              s.Body,
		Time:              *s.Time,
		PreviousBlockHash: *s.PreviousBlockHash,
	}, nil
}
