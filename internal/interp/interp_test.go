package interp

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/lcox74/bfjit/internal/ir"
)

func run(t *testing.T, src, stdin string) (string, error) {
	t.Helper()
	p, err := ir.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p = ir.Optimize(p)

	var out bytes.Buffer
	in := New(WithInput(strings.NewReader(stdin)), WithOutput(&out))
	err = in.Run(p)
	return out.String(), err
}

func TestHelloCellScenario(t *testing.T) {
	// ++++++++[>++++++++<-]>. writes 64 ('@') to stdout.
	out, err := run(t, "++++++++[>++++++++<-]>.", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "@" {
		t.Fatalf("out = %q, want %q", out, "@")
	}
}

func TestEchoThreeBytes(t *testing.T) {
	out, err := run(t, ",.,.,.", "abc")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "abc" {
		t.Fatalf("out = %q, want %q", out, "abc")
	}
}

func TestZeroLoopTerminates(t *testing.T) {
	p, err := ir.Parse([]byte("[-]+[-]"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p = ir.Optimize(p)
	in := New()
	if err := in.Run(p); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := in.Tape().Current(); got != 0 {
		t.Fatalf("cell 0 = %d, want 0", got)
	}
}

func TestCopyToScenario(t *testing.T) {
	// +++>+++<[->+>+<<]>>+ fans cell 0 (3) into cells 1 and 2, each
	// starting at 3: cell1 = 3+3 = 6, cell2 = 0+3 = 4 after the trailing
	// '+'. Pointer ends on cell 2, so Tape().Current() reads it directly.
	p, err := ir.Parse([]byte("+++>+++<[->+>+<<]>>+"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p = ir.Optimize(p)

	in := New()
	if err := in.Run(p); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := in.Tape().Current(); got != 4 {
		t.Fatalf("cell 2 = %d, want 4", got)
	}
	if err := in.Tape().Move(-1); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if got := in.Tape().Current(); got != 6 {
		t.Fatalf("cell 1 = %d, want 6", got)
	}
}

func TestNegativeOffsetTransferUnderflowIsFatal(t *testing.T) {
	// +[-<+>] optimizes to a single AddTo{Offset: -1} (see
	// internal/ir/optimize.go's recognizeMove). At the tape's starting
	// index 0 that transfers into index -1 on the loop's first
	// iteration, the same tape underflow a bare < triggers.
	p, err := ir.Parse([]byte("+[-<+>]"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p = ir.Optimize(p)
	in := New()
	if err := in.Run(p); err == nil {
		t.Fatal("expected a tape underflow error")
	}
}

func TestWrapAroundArithmetic(t *testing.T) {
	p, err := ir.Parse([]byte(strings.Repeat("+", 255) + "+"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p = ir.Optimize(p)
	in := New()
	if err := in.Run(p); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := in.Tape().Current(); got != 0 {
		t.Fatalf("256 increments wrapped = %d, want 0", got)
	}
}

func TestUnderflowIsFatal(t *testing.T) {
	p, err := ir.Parse([]byte("<"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	in := New()
	if err := in.Run(p); err == nil {
		t.Fatal("expected a tape underflow error")
	}
}

func TestAutoGrowOnLargeShift(t *testing.T) {
	p, err := ir.Parse([]byte(strings.Repeat(">", 40000) + "."))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p = ir.Optimize(p)
	var out bytes.Buffer
	in := New(WithOutput(&out))
	if err := in.Run(p); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Len() != 1 || out.String()[0] != 0 {
		t.Fatalf("out = %v, want a single zero byte", out.Bytes())
	}
}

func TestReadAtEOFSetsZero(t *testing.T) {
	out, err := run(t, ",.", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 || out[0] != 0 {
		t.Fatalf("out = %v, want a single zero byte", []byte(out))
	}
}

func runWithTimeout(p ir.Program, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		in := New(WithOutput(&bytes.Buffer{}))
		_ = in.Run(p)
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestInfiniteLoopTimesOut(t *testing.T) {
	// +[] never terminates: the body is empty after optimization and the
	// current cell starts at 1.
	p, err := ir.Parse([]byte("+[]"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p = ir.Optimize(p)
	if runWithTimeout(p, 200*time.Millisecond) {
		t.Fatal("expected +[] to run past the watchdog, but it returned")
	}
}

func TestUnboundedGrowthMakesForwardProgress(t *testing.T) {
	// +[>+] grows the tape without bound; check tape length strictly
	// increases across repeated samples within the watchdog window.
	p, err := ir.Parse([]byte("+[>+]"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p = ir.Optimize(p)

	in := New(WithOutput(&bytes.Buffer{}))
	go func() { _ = in.Run(p) }()

	deadline := time.Now().Add(200 * time.Millisecond)
	lastLen := in.Tape().Len()
	progressed := false
	for time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		if l := in.Tape().Len(); l > lastLen {
			progressed = true
			lastLen = l
		}
	}
	if !progressed {
		t.Fatal("expected tape length to grow under the watchdog window")
	}
}
