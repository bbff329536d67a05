package contract

import (
	"github.com/sasha-s/go-deadlock"
)

// entryGuard prevents an operation instance from being re-entered while its
// outbound collaborator call is outstanding. Keys are (txID, operation):
// a reentrant call arriving through a collaborator callback carries the same
// transaction id and is rejected, while distinct transactions are unaffected.
//
// The guard complements the structural ordering contract (commit local state,
// emit notifications, then make the external call); it is the explicit lock,
// not a substitute for that ordering.
type entryGuard struct {
	mu     deadlock.Mutex
	active map[string]struct{}
}

func (g *entryGuard) enter(txID, op string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == nil {
		g.active = make(map[string]struct{})
	}
	key := txID + "|" + op
	if _, outstanding := g.active[key]; outstanding {
		return errReentrantCall(op)
	}
	g.active[key] = struct{}{}
	return nil
}

func (g *entryGuard) exit(txID, op string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, txID+"|"+op)
}
