// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package pagetree

import (
	"bytes"
	"testing"
)

func TestNibblePath_NewPathCoversAllNibbles(t *testing.T) {
	path := NewNibblePath([]byte{0xAB, 0xCD})
	if got, want := path.Length(), 4; got != want {
		t.Fatalf("unexpected length, got %d, want %d", got, want)
	}
	for i, want := range []Nibble{0xA, 0xB, 0xC, 0xD} {
		if got := path.Get(i); got != want {
			t.Errorf("unexpected nibble at %d, got %v, want %v", i, got, want)
		}
	}
}

func TestNibblePath_GetOutOfRangeIsZero(t *testing.T) {
	path := NewNibblePath([]byte{0xFF})
	if got := path.Get(-1); got != 0 {
		t.Errorf("negative position should be zero, got %v", got)
	}
	if got := path.Get(2); got != 0 {
		t.Errorf("position beyond length should be zero, got %v", got)
	}
}

func TestNibblePath_SliceFromDropsLeadingNibbles(t *testing.T) {
	path := NewNibblePath([]byte{0x12, 0x34, 0x56})
	sliced := path.SliceFrom(3)
	if got, want := sliced.Length(), 3; got != want {
		t.Fatalf("unexpected length, got %d, want %d", got, want)
	}
	for i, want := range []Nibble{0x4, 0x5, 0x6} {
		if got := sliced.Get(i); got != want {
			t.Errorf("unexpected nibble at %d, got %v, want %v", i, got, want)
		}
	}
	if got := sliced.FirstNibble(); got != 0x4 {
		t.Errorf("unexpected first nibble, got %v", got)
	}
}

func TestNibblePath_SliceFromBeyondLengthIsEmpty(t *testing.T) {
	path := NewNibblePath([]byte{0x12})
	sliced := path.SliceFrom(5)
	if !sliced.IsEmpty() {
		t.Errorf("slice beyond the length should be empty, got %v", sliced.Length())
	}
}

func TestNibblePath_Equality(t *testing.T) {
	a := NewNibblePath([]byte{0x12, 0x34})
	b := NewNibblePath([]byte{0x12, 0x34})
	c := NewNibblePath([]byte{0x12, 0x35})
	if !a.IsEqualTo(b) {
		t.Errorf("equal paths not detected as equal")
	}
	if a.IsEqualTo(c) {
		t.Errorf("distinct paths detected as equal")
	}
	short := a.SliceFrom(1)
	if a.IsEqualTo(short) {
		t.Errorf("paths of different length detected as equal")
	}
}

func TestNibblePath_EqualityIgnoresAlignment(t *testing.T) {
	// the same nibble sequence once byte-aligned and once mid-byte
	aligned := NewNibblePath([]byte{0x23, 0x45})
	full := NewNibblePath([]byte{0x12, 0x34, 0x56})
	unaligned := full.SliceFrom(1)
	unaligned = unaligned.SliceFrom(0)
	shortened := unaligned
	shortened.length = 4
	if !aligned.IsEqualTo(shortened) {
		t.Errorf("alignment should not affect equality: %v vs %v", aligned.String(), shortened.String())
	}
}

func TestNibblePath_PackUnpackRoundTrip(t *testing.T) {
	source := []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}
	full := NewNibblePath(source)
	for offset := 0; offset <= full.Length(); offset++ {
		path := full.SliceFrom(offset)
		packed := path.Pack(nil)
		if got, want := len(packed), path.PackedSize(); got != want {
			t.Fatalf("unexpected packed size at offset %d, got %d, want %d", offset, got, want)
		}
		restored, rest := UnpackNibblePath(packed)
		if len(rest) != 0 {
			t.Fatalf("unexpected trailing bytes after unpacking at offset %d", offset)
		}
		if !path.IsEqualTo(restored) {
			t.Errorf("round trip mismatch at offset %d: %v != %v", offset, path.String(), restored.String())
		}
	}
}

func TestNibblePath_PackedFormIsCanonical(t *testing.T) {
	// the same nibble sequence must pack identically regardless of the
	// view's alignment, packed paths are compared byte-wise in the map
	full := NewNibblePath([]byte{0x12, 0x34, 0x56, 0x78})
	aligned := full.SliceFrom(2) // nibbles 3..8 at offset 2
	other := NewNibblePath([]byte{0x23, 0x45, 0x67, 0x80})
	unaligned := other.SliceFrom(1) // nibbles 3..8 at offset 1
	unaligned.length = 6
	if !bytes.Equal(aligned.Pack(nil), unaligned.Pack(nil)) {
		t.Errorf("packed form depends on alignment")
	}
}

func TestNibblePath_PackMasksTrailingNibble(t *testing.T) {
	path := NewNibblePath([]byte{0xAB, 0xCD})
	odd := path.SliceFrom(0)
	odd.length = 3 // nibbles A, B, C
	packed := odd.Pack(nil)
	if got, want := packed[len(packed)-1], byte(0xC0); got != want {
		t.Errorf("trailing nibble not masked, got %x, want %x", got, want)
	}
}

func TestNibblePath_MaximumLengthRoundTrip(t *testing.T) {
	source := make([]byte, 32)
	for i := range source {
		source[i] = byte(i*7 + 3)
	}
	path := NewNibblePath(source)
	if got, want := path.Length(), 64; got != want {
		t.Fatalf("unexpected length, got %d, want %d", got, want)
	}
	restored, _ := UnpackNibblePath(path.Pack(nil))
	if !path.IsEqualTo(restored) {
		t.Errorf("64 nibble round trip failed")
	}
}

func TestNibblePath_String(t *testing.T) {
	empty := NibblePath{}
	if got, want := empty.String(), "-empty-"; got != want {
		t.Errorf("unexpected string, got %s, want %s", got, want)
	}
	path := NewNibblePath([]byte{0xAB})
	if got, want := path.String(), "ab : 2"; got != want {
		t.Errorf("unexpected string, got %s, want %s", got, want)
	}
}

func TestNibblePath_FromNibbles(t *testing.T) {
	nibbles := []Nibble{0x1, 0xF, 0x0, 0x7, 0xC}
	path := NibblePathFromNibbles(nibbles)
	if got, want := path.Length(), len(nibbles); got != want {
		t.Fatalf("unexpected length, got %d, want %d", got, want)
	}
	for i, want := range nibbles {
		if got := path.Get(i); got != want {
			t.Errorf("unexpected nibble at %d, got %v, want %v", i, got, want)
		}
	}
}
