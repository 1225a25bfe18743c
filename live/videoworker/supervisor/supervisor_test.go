package supervisor

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestWaitStartedEarlyExit(t *testing.T) {
	p, err := Spawn("/bin/sh", "-c", "echo boom >&2; exit 1")
	if err != nil {
		t.Fatal(err)
	}
	err = p.WaitStarted(2 * time.Second)
	if !errors.Is(err, ErrEarlyExit) {
		t.Fatalf("WaitStarted() error = %v, want ErrEarlyExit", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("WaitStarted() error %q does not carry the tool output", err)
	}
}

func TestWaitStartedCleanExitStillFails(t *testing.T) {
	p, err := Spawn("/bin/sh", "-c", "exit 0")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.WaitStarted(2 * time.Second); !errors.Is(err, ErrEarlyExit) {
		t.Fatalf("WaitStarted() error = %v, want ErrEarlyExit", err)
	}
}

func TestWaitStartedHealthy(t *testing.T) {
	p, err := Spawn("/bin/sh", "-c", "sleep 5")
	if err != nil {
		t.Fatal(err)
	}
	defer p.Stop()
	if err := p.WaitStarted(200 * time.Millisecond); err != nil {
		t.Fatalf("WaitStarted() error = %v, want nil", err)
	}
	if !p.Alive() {
		t.Error("Alive() = false for a running process")
	}
}

func TestStopGraceful(t *testing.T) {
	p, err := Spawn("/bin/sh", "-c", "sleep 30")
	if err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	p.Stop()
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("graceful stop took %v, should be near-instant for a SIGINT-respecting child", elapsed)
	}
	if p.Alive() {
		t.Error("Alive() = true after Stop()")
	}
}

func TestStopBoundedWhenSignalIgnored(t *testing.T) {
	p, err := Spawn("/bin/sh", "-c", `trap "" INT; sleep 60`)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.WaitStarted(200 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	p.Stop()
	elapsed := time.Since(start)
	if elapsed > 8*time.Second {
		t.Errorf("Stop() took %v, want under the graceful window plus kill", elapsed)
	}
	if p.Alive() {
		t.Error("Alive() = true after kill")
	}
}

func TestStopIdempotentConcurrent(t *testing.T) {
	p, err := Spawn("/bin/sh", "-c", "sleep 30")
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Stop()
		}()
	}
	wg.Wait()
	if p.Alive() {
		t.Error("Alive() = true after concurrent Stop()")
	}
	p.Stop() // after exit, still fine
}

func TestOutputSnippetBounded(t *testing.T) {
	p, err := Spawn("/bin/sh", "-c", "yes error_line | head -c 9000; exit 1")
	if err != nil {
		t.Fatal(err)
	}
	<-p.Done()
	if got := len(p.OutputSnippet()); got > 100 {
		t.Errorf("OutputSnippet() length = %v, want <= 100", got)
	}
	if got := len(p.Output()); got > 4096 {
		t.Errorf("Output() length = %v, want <= 4096", got)
	}
}
