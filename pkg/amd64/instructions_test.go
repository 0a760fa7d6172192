package amd64

import "testing"

func TestAddbImm8R10(t *testing.T) {
	got := AddbImm8R10(5)
	want := []byte{0x41, 0x80, 0x02, 0x05}
	if string(got) != string(want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestCmpR10RAXEncoding(t *testing.T) {
	got := CmpR10RAX()
	want := []byte{0x49, 0x39, 0xC2}
	if string(got) != string(want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestJaeRel32Encoding(t *testing.T) {
	got := JaeRel32(-10)
	if got[0] != 0x0F || got[1] != 0x83 {
		t.Fatalf("opcode = % x, want 0F 83", got[:2])
	}
	if len(got) != 6 {
		t.Fatalf("len = %d, want 6", len(got))
	}
}

func TestMovImm64ToR11Disp32SignExtends(t *testing.T) {
	got := MovImm64ToR11Disp32(40, -1)
	if len(got) != 11 {
		t.Fatalf("len = %d, want 11", len(got))
	}
	if got[0] != 0x49 || got[1] != 0xC7 || got[2] != 0x83 {
		t.Fatalf("prefix = % x, want 49 C7 83", got[:3])
	}
	// The immediate itself is the 32-bit pattern; sign-extension into the
	// destination's upper 32 bits happens at the hardware's store, not in
	// this encoding, so only the wire bytes are checked here.
	if got[7] != 0xFF || got[8] != 0xFF || got[9] != 0xFF || got[10] != 0xFF {
		t.Fatalf("immediate bytes = % x, want ff ff ff ff", got[7:])
	}
}

func TestJzRel32Encoding(t *testing.T) {
	got := JzRel32(-10)
	if got[0] != 0x0F || got[1] != 0x84 {
		t.Fatalf("opcode = % x, want 0F 84", got[:2])
	}
	if len(got) != 6 {
		t.Fatalf("len = %d, want 6", len(got))
	}
}

func TestPushPopRoundTripLength(t *testing.T) {
	for _, pair := range [][2][]byte{
		{PushR10(), PopR10()},
		{PushR11(), PopR11()},
		{PushR12(), PopR12()},
	} {
		if len(pair[0]) != 2 || len(pair[1]) != 2 {
			t.Fatalf("push/pop encodings must be 2 bytes, got %d/%d", len(pair[0]), len(pair[1]))
		}
	}
}
