package spillway

import (
	"testing"
	"time"
)

func TestSanitizeFilenameStripsNulls(t *testing.T) {
	got := SanitizeFilename("seg\x00ment.bin")
	if got != "seg_ment.bin" {
		t.Errorf("SanitizeFilename() = %q, want %q", got, "seg_ment.bin")
	}
}

func TestValidatePathLengthRejectsExcessivelyLongPaths(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidatePathLength(string(long)); err == nil {
		t.Errorf("ValidatePathLength() accepted a 5000-byte path")
	}
}

func TestGetDefaultFileModeIsWorldReadableOwnerWritable(t *testing.T) {
	if mode := GetDefaultFileMode(); mode != 0644 {
		t.Errorf("GetDefaultFileMode() = %v, want 0644", mode)
	}
}

func TestRetryFileOperationRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	err := RetryFileOperation(func() error {
		attempts++
		if attempts < 3 {
			return errTransient
		}
		return nil
	}, 5, time.Millisecond)
	if err != nil {
		t.Fatalf("RetryFileOperation() failed: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

var errTransient = &QueueError{Code: CodeIO, Op: "test_transient"}
