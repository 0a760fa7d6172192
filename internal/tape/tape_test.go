package tape

import "testing"

func TestNewHasMinSize(t *testing.T) {
	tp := New()
	if tp.Len() < MinSize {
		t.Fatalf("Len() = %d, want >= %d", tp.Len(), MinSize)
	}
	if tp.Index() != 0 {
		t.Fatalf("Index() = %d, want 0", tp.Index())
	}
}

func TestWrapAround(t *testing.T) {
	tp := New()
	tp.Set(255)
	tp.Add(1)
	if got := tp.Current(); got != 0 {
		t.Fatalf("255+1 wrapped = %d, want 0", got)
	}
	tp.Add(-1)
	if got := tp.Current(); got != 255 {
		t.Fatalf("0-1 wrapped = %d, want 255", got)
	}
}

func TestUnderflow(t *testing.T) {
	tp := New()
	if err := tp.Move(-1); err != ErrUnderflow {
		t.Fatalf("Move(-1) at index 0 = %v, want ErrUnderflow", err)
	}
}

func TestAutoGrow(t *testing.T) {
	tp := New()
	if err := tp.Move(100000); err != nil {
		t.Fatalf("Move(100000): %v", err)
	}
	if got := tp.Current(); got != 0 {
		t.Fatalf("grown cell = %d, want 0", got)
	}
	if tp.Len() < 100001 {
		t.Fatalf("Len() = %d, want >= 100001", tp.Len())
	}
}

func TestGrowZeroFillsAndPreservesExisting(t *testing.T) {
	tp := New()
	tp.Set(42)
	tp.Grow(tp.Len() * 2)
	if got := tp.Current(); got != 42 {
		t.Fatalf("preserved cell = %d, want 42", got)
	}
	if err := tp.Move(tp.Len() - 1); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if got := tp.Current(); got != 0 {
		t.Fatalf("new cell = %d, want 0", got)
	}
}

func TestRelativeOffsetAccessors(t *testing.T) {
	tp := New()
	if err := tp.Move(5); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if err := tp.SetAt(-2, 10); err != nil {
		t.Fatalf("SetAt: %v", err)
	}
	if err := tp.AddAt(3, 7); err != nil {
		t.Fatalf("AddAt: %v", err)
	}
	if got, err := tp.At(-2); err != nil || got != 10 {
		t.Fatalf("At(-2) = (%d, %v), want (10, nil)", got, err)
	}
	if got, err := tp.At(3); err != nil || got != 7 {
		t.Fatalf("At(3) = (%d, %v), want (7, nil)", got, err)
	}
	if tp.Index() != 5 {
		t.Fatalf("relative accessors moved the pointer: Index() = %d", tp.Index())
	}
}

func TestRelativeOffsetUnderflowIsFatal(t *testing.T) {
	tp := New()
	if _, err := tp.At(-1); err != ErrUnderflow {
		t.Fatalf("At(-1) at index 0 = %v, want ErrUnderflow", err)
	}
	if err := tp.AddAt(-1, 1); err != ErrUnderflow {
		t.Fatalf("AddAt(-1, ...) at index 0 = %v, want ErrUnderflow", err)
	}
	if err := tp.SetAt(-1, 9); err != ErrUnderflow {
		t.Fatalf("SetAt(-1, ...) at index 0 = %v, want ErrUnderflow", err)
	}
}
