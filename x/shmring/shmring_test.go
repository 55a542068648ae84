package shmring

import "testing"

func TestSizeMustBePowerOfTwo(t *testing.T) {
	for _, bad := range []int{0, 1, 3, 6, 100} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("New(%d) did not panic", bad)
				}
			}()
			New(bad)
		}()
	}
	if r := New(2); r.Space() != 2 {
		t.Fatalf("New(2) space = %d", r.Space())
	}
}

func TestWriteReadAcrossWrap(t *testing.T) {
	r := New(16)

	// Push the indexes near the wrap point first.
	pad := make([]byte, 12)
	if n := r.TryWriteFrom(pad); n != 12 {
		t.Fatalf("pad write = %d", n)
	}
	if n := r.TryReadInto(make([]byte, 12)); n != 12 {
		t.Fatalf("pad read = %d", n)
	}

	// This write spans the physical end of the buffer.
	msg := []byte("abcdefgh")
	if n := r.TryWriteFrom(msg); n != len(msg) {
		t.Fatalf("wrap write = %d", n)
	}
	var got [8]byte
	if n := r.TryReadInto(got[:]); n != len(msg) {
		t.Fatalf("wrap read = %d", n)
	}
	if string(got[:]) != "abcdefgh" {
		t.Fatalf("wrap read = %q", got)
	}
}

func TestFullRingRejectsAndPartialFits(t *testing.T) {
	r := New(8)
	if n := r.TryWriteFrom(make([]byte, 8)); n != 8 {
		t.Fatalf("fill = %d", n)
	}
	if n := r.TryWriteFrom([]byte{9}); n != 0 {
		t.Fatalf("write to full ring = %d", n)
	}
	if r.Space() != 0 || r.Available() != 8 {
		t.Fatalf("space/avail = %d/%d", r.Space(), r.Available())
	}

	// Free three bytes; a five-byte offer lands three.
	r.TryReadInto(make([]byte, 3))
	if n := r.TryWriteFrom([]byte{1, 2, 3, 4, 5}); n != 3 {
		t.Fatalf("partial write = %d", n)
	}
}

func TestByteStreamSurvivesSmallChunks(t *testing.T) {
	r := New(32)
	const total = 1500
	src := make([]byte, total)
	for i := range src {
		src[i] = byte(i * 7)
	}

	dst := make([]byte, 0, total)
	in := src
	var tmp [13]byte
	for len(dst) < total {
		if len(in) > 0 {
			step := 5
			if step > len(in) {
				step = len(in)
			}
			n := r.TryWriteFrom(in[:step])
			in = in[n:]
		}
		if n := r.TryReadInto(tmp[:]); n > 0 {
			dst = append(dst, tmp[:n]...)
		}
	}
	for i := range src {
		if dst[i] != src[i] {
			t.Fatalf("stream diverged at %d: %d != %d", i, dst[i], src[i])
		}
	}
}

func TestReadableEdgeCoalesces(t *testing.T) {
	r := New(8)
	select {
	case <-r.Readable():
		t.Fatal("Readable fired on empty ring")
	default:
	}

	r.TryWriteFrom([]byte{1})
	r.TryWriteFrom([]byte{2}) // still non-empty, no second edge
	select {
	case <-r.Readable():
	default:
		t.Fatal("Readable missing after empty->non-empty")
	}
	select {
	case <-r.Readable():
		t.Fatal("Readable fired twice for one transition")
	default:
	}

	// Draining and refilling arms the edge again.
	r.TryReadInto(make([]byte, 2))
	r.TryWriteFrom([]byte{3})
	select {
	case <-r.Readable():
	default:
		t.Fatal("Readable missing after refill")
	}
}

func TestWritableEdgeOnFullDrain(t *testing.T) {
	r := New(4)
	r.TryWriteFrom(make([]byte, 4))
	select {
	case <-r.Writable():
		t.Fatal("Writable fired while full")
	default:
	}
	r.TryReadInto(make([]byte, 1))
	select {
	case <-r.Writable():
	default:
		t.Fatal("Writable missing after full->non-full")
	}
}

func TestWatermarksAreMonotonic(t *testing.T) {
	r := New(8)
	r.TryWriteFrom(make([]byte, 6))
	r.TryReadInto(make([]byte, 6))
	r.TryWriteFrom(make([]byte, 6)) // wraps physically

	rd, wr := r.Watermarks()
	if rd != 6 || wr != 12 {
		t.Fatalf("watermarks = %d/%d, want 6/12", rd, wr)
	}
}
