package page

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestAllocWriteExecuteRelease(t *testing.T) {
	// A single `ret` byte is enough to exercise the lifecycle without
	// needing a real calling convention here.
	r, err := Alloc([]byte{0xc3})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if r.Entry() == nil {
		t.Fatal("Entry() returned nil")
	}
	if err := r.MakeExecutable(); err != nil {
		t.Fatalf("MakeExecutable: %v", err)
	}
	if err := r.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestAllocRoundsUpToPageSize(t *testing.T) {
	r, err := Alloc([]byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	defer r.Release()
	if r.size == 0 || r.size%unix.Getpagesize() != 0 {
		t.Fatalf("size = %d, not a multiple of the page size", r.size)
	}
}
