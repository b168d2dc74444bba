package shell

import (
	"os/exec"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalName(t *testing.T) {
	cases := map[string]struct {
		outcome ExitOutcome
		want    string
	}{
		"abort":     {ExitOutcome{Signaled: true, Signal: syscall.SIGABRT}, "Aborted"},
		"fpe":       {ExitOutcome{Signaled: true, Signal: syscall.SIGFPE}, "Floating Point Exception"},
		"illegal":   {ExitOutcome{Signaled: true, Signal: syscall.SIGILL}, "Illegal Instruction"},
		"interrupt": {ExitOutcome{Signaled: true, Signal: syscall.SIGINT}, "Interrupted"},
		"segfault":  {ExitOutcome{Signaled: true, Signal: syscall.SIGSEGV}, "Segmentation Fault"},
		"terminate": {ExitOutcome{Signaled: true, Signal: syscall.SIGTERM}, "Terminated"},
		"unnamed":   {ExitOutcome{Signaled: true, Signal: syscall.SIGUSR1}, "Signaled"},
		"core dump": {
			ExitOutcome{Signaled: true, Signal: syscall.SIGSEGV, CoreDump: true},
			"Segmentation Fault (Dumped Core!)",
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.outcome.SignalName())
		})
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "exit: 0", ExitOutcome{}.Describe())
	assert.Equal(t, "exit: 42", ExitOutcome{Code: 42}.Describe())
	assert.Equal(t, "signal: Terminated",
		ExitOutcome{Signaled: true, Signal: syscall.SIGTERM}.Describe())
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, ExitOutcome{}, outcomeOf(nil))

	cmd := exec.Command("false")
	require.NoError(t, cmd.Start())
	_ = cmd.Wait()

	out := outcomeOf(cmd.ProcessState)
	assert.Equal(t, 1, out.Code)
	assert.False(t, out.Signaled)
}
