package sync

import "time"

// Status is the observable state of the engine. It is updated at the
// start and completion of every orchestrated operation and surfaces
// failures as a string so the UI can show a non-blocking banner; sync
// errors never crash the application.
type Status struct {
	Syncing    bool
	LastSyncAt *time.Time
	Err        string
}

// SubscribeStatus registers an observer called with a copy of the
// status after every transition. The returned function unregisters the
// observer and is idempotent.
func (e *Engine) SubscribeStatus(fn func(Status)) func() {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	id := e.nextSubID
	e.nextSubID++
	e.statusSubs[id] = fn

	return func() {
		e.statusMu.Lock()
		defer e.statusMu.Unlock()
		delete(e.statusSubs, id)
	}
}

// Status returns a snapshot of the current sync status.
func (e *Engine) Status() Status {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	return e.status
}

// beginPass flips the status to syncing and clears any previous error.
func (e *Engine) beginPass() {
	e.setStatus(func(st *Status) {
		st.Syncing = true
		st.Err = ""
	})
}

// endPass records the outcome of a pass. Success stamps LastSyncAt;
// failure records the error text.
func (e *Engine) endPass(err error) {
	e.setStatus(func(st *Status) {
		st.Syncing = false
		if err != nil {
			st.Err = err.Error()
			return
		}
		now := e.now()
		st.LastSyncAt = &now
	})
}

// setStatus applies a mutation and notifies observers with a copy.
func (e *Engine) setStatus(mutate func(*Status)) {
	e.statusMu.Lock()
	mutate(&e.status)
	snapshot := e.status
	subs := make([]func(Status), 0, len(e.statusSubs))
	for _, fn := range e.statusSubs {
		subs = append(subs, fn)
	}
	e.statusMu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}
