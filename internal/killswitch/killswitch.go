// Package killswitch provides an emergency stop for agent pipelines: a
// background monitor that reads operator input and flips a shared abort
// flag the orchestrator polls between stages.
package killswitch

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// StopCommand is the input that engages the switch (case-insensitive).
const StopCommand = "STOP"

// KillSwitch is a monotonic abort flag: once engaged it never resets.
// Cooperative call sites poll Engaged between units of work and must
// attempt no further side effects once it returns true.
type KillSwitch struct {
	engaged atomic.Bool
	out     io.Writer

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// New creates a disengaged kill switch. Monitor output (the prompt and
// the activation notice) is written to out; a nil out discards it.
func New(out io.Writer) *KillSwitch {
	if out == nil {
		out = io.Discard
	}
	return &KillSwitch{out: out}
}

// Engaged reports whether the switch has been activated.
func (k *KillSwitch) Engaged() bool {
	return k.engaged.Load()
}

// Engage activates the switch directly, bypassing the monitor. Used by
// signal handlers and tests.
func (k *KillSwitch) Engage() {
	k.engaged.Store(true)
}

// Start launches the monitor goroutine reading lines from in. Typing the
// stop command engages the switch; EOF or a closed stream ends monitoring
// without engaging it. Start returns an error if the monitor is already
// running.
func (k *KillSwitch) Start(in io.Reader) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.running {
		return fmt.Errorf("kill switch monitor is already running")
	}
	k.running = true
	k.done = make(chan struct{})

	go k.monitor(in, k.done)
	fmt.Fprintf(k.out, "[killswitch] monitor started, type %q to abort\n", StopCommand)
	return nil
}

func (k *KillSwitch) monitor(in io.Reader, done chan struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if strings.EqualFold(strings.TrimSpace(scanner.Text()), StopCommand) {
			k.engaged.Store(true)
			fmt.Fprintln(k.out, "[killswitch] ACTIVATED, aborting all stages")
			return
		}
	}
}

// Wait blocks until the monitor goroutine exits. Returns immediately if
// the monitor was never started.
func (k *KillSwitch) Wait() {
	k.mu.Lock()
	done := k.done
	k.mu.Unlock()
	if done != nil {
		<-done
	}
}
