package shell

import (
	"os/exec"
)

// Job tracks one live background process.
type Job struct {
	PID  int
	Line string

	cmd     *exec.Cmd
	done    chan struct{}
	outcome ExitOutcome
}

// Finished pairs a reaped job with its exit outcome.
type Finished struct {
	Job     *Job
	Outcome ExitOutcome
}

// Jobs holds background jobs in creation order. It is only touched from the
// supervisor loop; the per-job watcher goroutines communicate exclusively
// through each job's done channel.
type Jobs struct {
	jobs []*Job
}

// NewJobs returns an empty job table.
func NewJobs() *Jobs { return &Jobs{} }

// Len returns the number of live jobs.
func (js *Jobs) Len() int { return len(js.jobs) }

// Add registers a started background command and begins waiting on it. The
// wait itself blocks in a goroutine so Poll never has to.
func (js *Jobs) Add(cmd *exec.Cmd, line string) *Job {
	j := &Job{
		PID:  cmd.Process.Pid,
		Line: line,
		cmd:  cmd,
		done: make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		j.outcome = outcomeOf(cmd.ProcessState)
		close(j.done)
	}()
	js.jobs = append(js.jobs, j)
	return j
}

// Poll removes and returns every job whose process has terminated, preserving
// creation order. It never blocks: jobs still running are left in place.
func (js *Jobs) Poll() []Finished {
	var finished []Finished
	live := js.jobs[:0]
	for _, j := range js.jobs {
		select {
		case <-j.done:
			finished = append(finished, Finished{Job: j, Outcome: j.outcome})
		default:
			live = append(live, j)
		}
	}
	for i := len(live); i < len(js.jobs); i++ {
		js.jobs[i] = nil
	}
	js.jobs = live
	return finished
}

// Each visits live jobs in creation order with their 1-based position.
func (js *Jobs) Each(fn func(n int, j *Job)) {
	for i, j := range js.jobs {
		fn(i+1, j)
	}
}

// restore registers a job record without a backing command. Used when a
// snapshot of the job table is rebuilt in a child process.
func (js *Jobs) restore(pid int, line string) {
	js.jobs = append(js.jobs, &Job{PID: pid, Line: line, done: make(chan struct{})})
}
