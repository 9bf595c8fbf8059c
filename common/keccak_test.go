// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"bytes"
	"encoding/hex"
	"sync"
	"testing"
)

func hashFromHex(t *testing.T, s string) Hash {
	t.Helper()
	data, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("invalid hex constant: %v", err)
	}
	return HashFromBytes(data)
}

func TestKeccak256_KnownHashes(t *testing.T) {
	tests := []struct {
		input []byte
		want  string
	}{
		{[]byte{}, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"},
		{[]byte("abc"), "4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45"},
	}
	for _, test := range tests {
		if got, want := Keccak256(test.input), hashFromHex(t, test.want); got != want {
			t.Errorf("unexpected hash of %x, got %v, want %v", test.input, got, want)
		}
	}
}

func TestKeccak256_SpecializedVariantsMatchGeneric(t *testing.T) {
	address := Address{0x01, 0x02, 0x03}
	if got, want := Keccak256ForAddress(address), Keccak256(address[:]); got != want {
		t.Errorf("address hash differs from the generic hash")
	}
	key := Key{0x04, 0x05}
	if got, want := Keccak256ForKey(key), Keccak256(key[:]); got != want {
		t.Errorf("key hash differs from the generic hash")
	}
}

func TestKeccak256_IsConcurrencySafe(t *testing.T) {
	input := []byte("some input")
	want := Keccak256(input)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if got := Keccak256(input); got != want {
					t.Errorf("unexpected hash, got %v, want %v", got, want)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestTypes_FromBytesPadsShortInputs(t *testing.T) {
	address := AddressFromBytes([]byte{0x01})
	if address != (Address{0x01}) {
		t.Errorf("unexpected address %v", address)
	}
	key := KeyFromBytes([]byte{0x02})
	if key != (Key{0x02}) {
		t.Errorf("unexpected key %v", key)
	}
	if !bytes.Equal(key[1:], make([]byte, 31)) {
		t.Errorf("short input not zero padded")
	}
}

func TestTypes_Print(t *testing.T) {
	address := Address{0xAB}
	if got, want := address.String(), "0xab00000000000000000000000000000000000000"; got != want {
		t.Errorf("unexpected address string, got %s, want %s", got, want)
	}
}
