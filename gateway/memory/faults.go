package memory

import "context"

// Fail makes every later call to op return err until cleared with a nil err.
func (b *Backend) Fail(op Op, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.faults, op)
		return
	}
	b.faults[op] = err
}

// Hold blocks later calls to op until release is called or their context
// ends. Calls are still counted when they enter.
func (b *Backend) Hold(op Op) (release func()) {
	h := &hold{ch: make(chan struct{})}
	b.mu.Lock()
	b.holds[op] = h
	b.mu.Unlock()

	return func() {
		h.once.Do(func() {
			b.mu.Lock()
			if b.holds[op] == h {
				delete(b.holds, op)
			}
			b.mu.Unlock()
			close(h.ch)
		})
	}
}

// Calls reports how many times op was invoked.
func (b *Backend) Calls(op Op) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// Outbox returns the captured verification emails in send order.
func (b *Backend) Outbox() []Verification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Verification, len(b.outbox))
	copy(out, b.outbox)
	return out
}

// Confirmed reports whether email belongs to a confirmed account.
func (b *Backend) Confirmed(email string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.accounts[normalizeEmail(email)]
	return ok && acct.confirmed
}

func (b *Backend) enter(ctx context.Context, op Op) error {
	b.mu.Lock()
	b.calls[op]++
	h := b.holds[op]
	b.mu.Unlock()

	if h != nil {
		select {
		case <-h.ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.faults[op]
}
