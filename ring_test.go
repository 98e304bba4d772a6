package spillway

import (
	"os"
	"path/filepath"
	"testing"
)

func openTestRing(t *testing.T, capacity int64) *ring {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ring.bin")
	r, err := openRing(path, capacity)
	if err != nil {
		t.Fatalf("openRing() failed: %v", err)
	}
	t.Cleanup(func() { _ = r.close() })
	return r
}

func TestRingWriteReadRoundTrip(t *testing.T) {
	r := openTestRing(t, 64)

	data := []byte("hello, ring")
	if !r.tryWrite(data) {
		t.Fatalf("tryWrite() returned false for data within capacity")
	}

	dst := make([]byte, len(data))
	if !r.tryRead(dst) {
		t.Fatalf("tryRead() returned false after a successful write")
	}
	if string(dst) != string(data) {
		t.Fatalf("tryRead() = %q, want %q", dst, data)
	}

	r.advanceRead(uint64(len(data)))
	if !r.isEmpty() {
		t.Fatalf("isEmpty() = false after draining everything written")
	}
}

func TestRingTryWriteFailsWhenFull(t *testing.T) {
	r := openTestRing(t, 8)

	if !r.tryWrite([]byte("12345678")) {
		t.Fatalf("tryWrite() of exactly-capacity data should succeed")
	}
	if r.tryWrite([]byte("x")) {
		t.Fatalf("tryWrite() should fail once the ring is full")
	}
	if r.free() != 0 {
		t.Fatalf("free() = %d, want 0", r.free())
	}
}

func TestRingWraparound(t *testing.T) {
	r := openTestRing(t, 8)

	if !r.tryWrite([]byte("ABCDEF")) {
		t.Fatalf("initial tryWrite() failed")
	}
	dst := make([]byte, 6)
	if !r.tryRead(dst) {
		t.Fatalf("tryRead() failed")
	}
	r.advanceRead(6)

	// Write position is now at 6; writing 6 more bytes wraps past the
	// 8-byte physical capacity.
	if !r.tryWrite([]byte("GHIJKL")) {
		t.Fatalf("wraparound tryWrite() failed")
	}
	dst2 := make([]byte, 6)
	if !r.tryRead(dst2) {
		t.Fatalf("wraparound tryRead() failed")
	}
	if string(dst2) != "GHIJKL" {
		t.Fatalf("wraparound read = %q, want %q", dst2, "GHIJKL")
	}
}

func TestRingUnlinkRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ring.bin")
	r, err := openRing(path, 16)
	if err != nil {
		t.Fatalf("openRing() failed: %v", err)
	}
	if err := r.unlink(); err != nil {
		t.Fatalf("unlink() failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected backing file to be removed after unlink, stat err = %v", err)
	}
	if _, err := openRing(path, 16); err != nil {
		t.Fatalf("openRing() after unlink should recreate the file, got: %v", err)
	}
}

func TestOpenRingRejectsNonPositiveCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ring.bin")
	if _, err := openRing(path, 0); err == nil {
		t.Fatalf("openRing() with capacity 0 should fail")
	}
}
