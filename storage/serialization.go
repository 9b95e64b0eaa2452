// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/entitymine/core"
)

// MarshalDocument serializes a Document to bytes.
// Layout: id, title, link count, then target and label per link.
func MarshalDocument(doc *core.Document) []byte {
	size := varint.Uint64.Size(uint64(doc.Id)) +
		ord.String.Size(doc.Title) +
		varint.PositiveInt.Size(len(doc.Links))
	for _, link := range doc.Links {
		size += ord.String.Size(link.Target) + ord.String.Size(link.Label)
	}

	buf := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(doc.Id), buf)
	n += ord.String.Marshal(doc.Title, buf[n:])
	n += varint.PositiveInt.Marshal(len(doc.Links), buf[n:])
	for _, link := range doc.Links {
		n += ord.String.Marshal(link.Target, buf[n:])
		n += ord.String.Marshal(link.Label, buf[n:])
	}
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	id, n, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: document id: %w", ErrSerializationFailed, err)
	}
	offset := n

	title, n, err := ord.String.Unmarshal(data[offset:])
	if err != nil {
		return nil, fmt.Errorf("%w: document title: %w", ErrSerializationFailed, err)
	}
	offset += n

	count, n, err := varint.PositiveInt.Unmarshal(data[offset:])
	if err != nil {
		return nil, fmt.Errorf("%w: link count: %w", ErrSerializationFailed, err)
	}
	offset += n

	// Every link takes at least two bytes (two empty strings).
	if count < 0 || count*2 > len(data)-offset {
		return nil, fmt.Errorf("%w: %d links in %d bytes", ErrTruncatedData, count, len(data)-offset)
	}

	doc := &core.Document{
		Id:    core.ID(id),
		Title: title,
		Links: make([]core.Link, count),
	}
	for i := range doc.Links {
		target, n, err := ord.String.Unmarshal(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("%w: link %d target: %w", ErrSerializationFailed, i, err)
		}
		offset += n

		label, n, err := ord.String.Unmarshal(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("%w: link %d label: %w", ErrSerializationFailed, i, err)
		}
		offset += n

		doc.Links[i] = core.Link{Target: target, Label: label}
	}
	return doc, nil
}

// MarshalPositions serializes ascending token positions as varint deltas.
func MarshalPositions(positions []uint32) []byte {
	size := varint.PositiveInt.Size(len(positions))
	prev := uint32(0)
	for _, p := range positions {
		size += varint.Uint32.Size(p - prev)
		prev = p
	}

	buf := make([]byte, size)
	n := varint.PositiveInt.Marshal(len(positions), buf)
	prev = 0
	for _, p := range positions {
		n += varint.Uint32.Marshal(p-prev, buf[n:])
		prev = p
	}
	return buf
}

// UnmarshalPositions deserializes a position list written by MarshalPositions.
func UnmarshalPositions(data []byte) ([]uint32, error) {
	count, offset, err := varint.PositiveInt.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: position count: %w", ErrSerializationFailed, err)
	}
	if count < 0 || count > len(data)-offset {
		return nil, fmt.Errorf("%w: %d positions in %d bytes", ErrTruncatedData, count, len(data)-offset)
	}

	positions := make([]uint32, count)
	prev := uint32(0)
	for i := range positions {
		delta, n, err := varint.Uint32.Unmarshal(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("%w: position %d: %w", ErrSerializationFailed, i, err)
		}
		offset += n
		prev += delta
		positions[i] = prev
	}
	return positions, nil
}
