package common

import (
	"sync"
	"time"
)

// Give the timed executor a task and a timeout.
// Call the execute function from time to time.
// If the function gets called when the timeout has been reached,
// the provided task will execute. If not, the call will do nothing
type TimedExecutor struct {
	mu        sync.Mutex
	stopwatch Stopwatch
	task      func()
}

// Create a timed executor provided a timeout and a task
func NewTimedExecutor(timeout time.Duration, task func()) *TimedExecutor {
	return &TimedExecutor{stopwatch: NewStopwatch(timeout), task: task}
}

// Execute the task if the timeout has been reached, else do nothing.
// Returns true if the task ran
func (te *TimedExecutor) Execute() bool {
	te.mu.Lock()
	stopped, _ := te.stopwatch.Stopped()
	if stopped {
		te.stopwatch.Start()
	}
	te.mu.Unlock()
	if !stopped {
		return false
	}
	te.task()
	return true
}

// Reset forces the task to run on the next call to Execute
func (te *TimedExecutor) Reset() {
	te.mu.Lock()
	te.stopwatch.Stop()
	te.mu.Unlock()
}
