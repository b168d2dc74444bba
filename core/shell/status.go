package shell

import (
	"fmt"
	"os"
	"syscall"
)

// ExitOutcome describes how a child process terminated.
type ExitOutcome struct {
	Code     int
	Signaled bool
	Signal   syscall.Signal
	CoreDump bool
}

var signalNames = map[syscall.Signal]string{
	syscall.SIGABRT: "Aborted",
	syscall.SIGFPE:  "Floating Point Exception",
	syscall.SIGILL:  "Illegal Instruction",
	syscall.SIGINT:  "Interrupted",
	syscall.SIGSEGV: "Segmentation Fault",
	syscall.SIGTERM: "Terminated",
}

func outcomeOf(ps *os.ProcessState) ExitOutcome {
	if ps == nil {
		return ExitOutcome{}
	}
	out := ExitOutcome{Code: ps.ExitCode()}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		out.Signaled = true
		out.Signal = ws.Signal()
		out.CoreDump = ws.CoreDump()
	}
	return out
}

// SignalName renders the fatal signal from a fixed table, annotated when the
// OS reported a core dump.
func (o ExitOutcome) SignalName() string {
	name, ok := signalNames[o.Signal]
	if !ok {
		name = "Signaled"
	}
	if o.CoreDump {
		name += " (Dumped Core!)"
	}
	return name
}

// Describe renders the outcome for job completion lines: the exit code for
// normal exits, otherwise the signal description.
func (o ExitOutcome) Describe() string {
	if o.Signaled {
		return fmt.Sprintf("signal: %s", o.SignalName())
	}
	return fmt.Sprintf("exit: %d", o.Code)
}
