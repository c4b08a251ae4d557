package models

import (
	"time"

	"tessera/pkg/domain"
)

// Identity is one registered decentralized identifier. Key is the stable
// lookup handle; Controller may diverge from Key after a transfer, so the two
// are tracked separately from day one.
type Identity struct {
	Key        domain.Address
	Controller domain.Address
	Delegates  map[domain.Address]bool
	Document   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Clone returns a deep copy so store snapshots cannot be mutated by callers.
func (i Identity) Clone() Identity {
	out := i
	out.Delegates = make(map[domain.Address]bool, len(i.Delegates))
	for d := range i.Delegates {
		out.Delegates[d] = true
	}
	return out
}

// IsOwnerOrDelegate reports whether candidate controls this identity, either
// as its controller or as a registered delegate.
func (i Identity) IsOwnerOrDelegate(candidate domain.Address) bool {
	if candidate == i.Controller {
		return true
	}
	return i.Delegates[candidate]
}

// DelegateList returns the delegate set as a slice for persistence layers
// that store arrays.
func (i Identity) DelegateList() []string {
	out := make([]string, 0, len(i.Delegates))
	for d := range i.Delegates {
		out = append(out, string(d))
	}
	return out
}
