package flow

import "sync"

// tokens hands out one increasing request token per session. Only the most
// recent token of a session is current.
type tokens struct {
	mu     sync.Mutex
	next   uint64
	latest map[string]uint64
}

func newTokens() *tokens {
	return &tokens{latest: make(map[string]uint64)}
}

func (t *tokens) begin(session string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	t.latest[session] = t.next
	return t.next
}

func (t *tokens) current(session string, token uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.latest[session] == token
}

// finish forgets the session if token is still its latest one.
func (t *tokens) finish(session string, token uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.latest[session] == token {
		delete(t.latest, session)
	}
}

func (t *tokens) inFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.latest)
}
