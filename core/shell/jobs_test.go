package shell

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pollUntil polls the table until want jobs have finished or the deadline
// passes. Poll itself must never block, so the waiting happens here.
func pollUntil(t *testing.T, js *Jobs, want int) []Finished {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var finished []Finished
	for len(finished) < want {
		if time.Now().After(deadline) {
			t.Fatalf("got %d finished jobs, want %d", len(finished), want)
		}
		finished = append(finished, js.Poll()...)
		time.Sleep(10 * time.Millisecond)
	}
	return finished
}

func startJob(t *testing.T, js *Jobs, name string, args ...string) *Job {
	t.Helper()
	cmd := exec.Command(name, args...)
	require.NoError(t, cmd.Start())
	return js.Add(cmd, name)
}

func TestJobsReapExit(t *testing.T) {
	js := NewJobs()
	j := startJob(t, js, "true")
	assert.Equal(t, 1, js.Len())
	assert.NotZero(t, j.PID)

	finished := pollUntil(t, js, 1)
	assert.Same(t, j, finished[0].Job)
	assert.Equal(t, "exit: 0", finished[0].Outcome.Describe())
	assert.Equal(t, 0, js.Len())
}

func TestJobsReapNonzeroExit(t *testing.T) {
	js := NewJobs()
	startJob(t, js, "false")

	finished := pollUntil(t, js, 1)
	assert.Equal(t, "exit: 1", finished[0].Outcome.Describe())
}

func TestJobsPollLeavesRunning(t *testing.T) {
	js := NewJobs()
	long := startJob(t, js, "sleep", "60")
	startJob(t, js, "true")

	finished := pollUntil(t, js, 1)
	assert.Equal(t, "true", finished[0].Job.Line)
	assert.Equal(t, 1, js.Len())

	require.NoError(t, syscall.Kill(long.PID, syscall.SIGTERM))
	finished = pollUntil(t, js, 1)
	assert.Same(t, long, finished[0].Job)
	assert.True(t, finished[0].Outcome.Signaled)
	assert.Equal(t, "Terminated", finished[0].Outcome.SignalName())
	assert.Equal(t, 0, js.Len())
}

func TestJobsEachOrder(t *testing.T) {
	js := NewJobs()
	a := startJob(t, js, "sleep", "60")
	b := startJob(t, js, "sleep", "60")
	defer func() {
		syscall.Kill(a.PID, syscall.SIGKILL)
		syscall.Kill(b.PID, syscall.SIGKILL)
		pollUntil(t, js, 2)
	}()

	var pids []int
	js.Each(func(n int, j *Job) {
		pids = append(pids, j.PID)
	})
	assert.Equal(t, []int{a.PID, b.PID}, pids)
}
