// Copyright 2024 The go-equa Authors

// Package common defines the minimal fixed-size value types shared across
// the consensus packages: hashes and addresses.
package common

import (
	"encoding/hex"
	"fmt"
)

// HashLength is the expected length of a Hash, in bytes.
const HashLength = 32

// AddressLength is the expected length of an Address, in bytes.
const AddressLength = 20

// Hash represents a 32-byte Keccak256/BLAKE3 digest.
type Hash [HashLength]byte

// BytesToHash sets b to the last HashLength bytes of b, left-padded if short.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

func (h Hash) Bytes() []byte  { return h[:] }
func (h Hash) String() string { return "0x" + hex.EncodeToString(h[:]) }
func (h Hash) IsZero() bool {
	var zero Hash
	return h == zero
}

// Cmp returns -1, 0, or 1 comparing h to other as big-endian unsigned integers.
func (h Hash) Cmp(other Hash) int {
	for i := range h {
		if h[i] < other[i] {
			return -1
		}
		if h[i] > other[i] {
			return 1
		}
	}
	return 0
}

// Address represents a 20-byte account identifier.
type Address [AddressLength]byte

func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

func (a Address) Bytes() []byte  { return a[:] }
func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

// HexToHash decodes a "0x"-prefixed or bare hex string into a Hash.
func HexToHash(s string) (Hash, error) {
	b, err := decodeHex(s)
	if err != nil {
		return Hash{}, err
	}
	return BytesToHash(b), nil
}

// HexToAddress decodes a "0x"-prefixed or bare hex string into an Address.
func HexToAddress(s string) (Address, error) {
	b, err := decodeHex(s)
	if err != nil {
		return Address{}, err
	}
	return BytesToAddress(b), nil
}

func decodeHex(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("common: invalid hex string %q: %w", s, err)
	}
	return b, nil
}
