// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

// Package star defines the star observations recorded in the ledger.
package star

import (
	"encoding/hex"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
	"gitlab.com/accumulatenetwork/starregistry/pkg/ledger"
)

// MaxStoryLength is the maximum length of a story, in bytes.
const MaxStoryLength = 500

// Star is a star observation. When submitted the story is plain ASCII text.
// Within a block body it is hex-encoded.
type Star struct {
	RA    string `json:"ra" validate:"required"`
	Dec   string `json:"dec" validate:"required"`
	Story string `json:"story,omitempty" validate:"max=500,ascii"`
}

// Body is the body of a star block.
type Body struct {
	Address string `json:"address" validate:"required"`
	Star    Star   `json:"star"`
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// Validate validates a value using the same rules as star bodies.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.BadRequest.Wrap(err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		// Drop the top-level struct name
		field := e.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, field+" must be at most "+e.Param()+" bytes")
		case "ascii":
			msgs = append(msgs, field+" must be ASCII text")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return errors.BadRequest.With(strings.Join(msgs, ", "))
}

// NewBody validates the star and returns a block body with the story
// hex-encoded.
func NewBody(address string, star Star) (*Body, error) {
	body := &Body{Address: address, Star: star}
	err := Validate(body)
	if err != nil {
		return nil, err
	}

	body.Star.Story = hex.EncodeToString([]byte(star.Story))
	return body, nil
}

// DecodedStar is a star with its story decoded.
type DecodedStar struct {
	Star
	StoryDecoded string `json:"storyDecoded,omitempty"`
}

// DecodedBody is a star block body with its story decoded.
type DecodedBody struct {
	Address string      `json:"address"`
	Star    DecodedStar `json:"star"`
}

// Record is the presentation of a block. If the block carries a star, the
// decoded story is added to the body.
type Record struct {
	Hash              string          `json:"hash"`
	Height            uint64          `json:"height"`
	Body              json.RawMessage `json:"body"`
	Time              int64           `json:"time"`
	PreviousBlockHash string          `json:"previousBlockHash"`
}

// Decode returns the record for a block.
func Decode(block *ledger.Block) (*Record, error) {
	r := &Record{
		Hash:              block.Hash,
		Height:            block.Height,
		Body:              block.Body,
		Time:              block.Time,
		PreviousBlockHash: block.PreviousBlockHash,
	}

	body, ok := parseBody(block.Body)
	if !ok || body.Star.Story == "" {
		return r, nil
	}

	story, err := hex.DecodeString(body.Star.Story)
	if err != nil {
		return nil, errors.EncodingError.WithFormat("block %d: decode story: %w", block.Height, err)
	}

	decoded := DecodedBody{Address: body.Address}
	decoded.Star.Star = body.Star
	decoded.Star.StoryDecoded = string(story)
	r.Body, err = json.Marshal(decoded)
	if err != nil {
		return nil, errors.EncodingError.WithFormat("block %d: %w", block.Height, err)
	}
	return r, nil
}

// DecodeAll decodes each block.
func DecodeAll(blocks []*ledger.Block) ([]*Record, error) {
	records := make([]*Record, 0, len(blocks))
	for _, block := range blocks {
		r, err := Decode(block)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func parseBody(raw json.RawMessage) (*Body, bool) {
	body := new(Body)
	if json.Unmarshal(raw, body) != nil || body.Address == "" {
		return nil, false
	}
	return body, true
}
