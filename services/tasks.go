package services

import (
	"log"
	"sync"
)

// TaskRunner runs detached side effects: audit ledger rows, outbound
// notifications, recursive badge re-evaluation. Task errors are logged and
// swallowed — they are never joined with the caller's result and must never
// roll back a committed grant. Wait exists so tests (and shutdown) can
// observe completion.
type TaskRunner struct {
	wg sync.WaitGroup
}

func NewTaskRunner() *TaskRunner {
	return &TaskRunner{}
}

// Go runs fn on its own goroutine. Panics and errors are captured and logged.
func (r *TaskRunner) Go(name string, fn func() error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				log.Printf("❌ [TASK] %s panicked: %v", name, p)
			}
		}()
		if err := fn(); err != nil {
			log.Printf("⚠️ [TASK] %s failed: %v", name, err)
		}
	}()
}

// Wait blocks until every task started so far (including tasks spawned by
// running tasks) has finished.
func (r *TaskRunner) Wait() {
	r.wg.Wait()
}
