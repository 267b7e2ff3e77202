package view

import "sync"

type deleteState uint8

const (
	deleteInFlight deleteState = iota + 1
	deleteSettled
)

type cardKey struct {
	owner string
	id    string
}

// Deletions tracks the transient "deleting" flag of each card, keyed by
// owner and bookmark id. One owner's attempts never flag another
// owner's cards.
type Deletions struct {
	mu    sync.Mutex
	state map[cardKey]deleteState
}

// NewDeletions creates an empty tracker
func NewDeletions() *Deletions {
	return &Deletions{state: make(map[cardKey]deleteState)}
}

// Begin sets the flag. It returns false when the same owner already has
// a delete of id pending.
func (d *Deletions) Begin(owner, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	k := cardKey{owner, id}
	if _, busy := d.state[k]; busy {
		return false
	}
	d.state[k] = deleteInFlight
	return true
}

// Fail clears the flag so the card can be deleted again.
func (d *Deletions) Fail(owner, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.state, cardKey{owner, id})
}

// Settle keeps the flag set until the card leaves the rendered list.
func (d *Deletions) Settle(owner, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	k := cardKey{owner, id}
	if _, ok := d.state[k]; ok {
		d.state[k] = deleteSettled
	}
}

// IsDeleting reports whether the card's delete control is disabled.
func (d *Deletions) IsDeleting(owner, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.state[cardKey{owner, id}]
	return ok
}

// Prune drops the owner's settled flags of cards that are no longer
// rendered.
func (d *Deletions) Prune(owner string, rendered map[string]struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for k, st := range d.state {
		if k.owner != owner || st != deleteSettled {
			continue
		}
		if _, visible := rendered[k.id]; !visible {
			delete(d.state, k)
		}
	}
}

// Len returns the number of flags currently set.
func (d *Deletions) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.state)
}
