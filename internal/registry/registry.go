package registry

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/oshokin/gatekeeper/internal/domain/gate"
)

// Policy selects what happens when a new address subscribes to a full registry.
type Policy string

const (
	// PolicyReject refuses the new subscription.
	PolicyReject Policy = "reject"
	// PolicyEvictOldest drops the entry renewed longest ago.
	PolicyEvictOldest Policy = "evict-oldest"
)

// Outcome describes what Subscribe did.
type Outcome int

const (
	// Created means a new entry was added.
	Created Outcome = iota
	// Renewed means an existing entry had its renewal time refreshed.
	Renewed
	// CreatedAfterEviction means a new entry replaced the oldest one.
	CreatedAfterEviction
)

// String returns the log name of the outcome.
func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Renewed:
		return "renewed"
	case CreatedAfterEviction:
		return "created_after_eviction"
	default:
		return "unknown"
	}
}

const (
	// DefaultMaxSubscribers caps the registry when no limit is configured.
	DefaultMaxSubscribers = 64

	// DefaultTTL is the subscription lifetime when none is configured.
	DefaultTTL = 60 * time.Second
)

var (
	// ErrRegistryFull is returned by Subscribe under PolicyReject.
	ErrRegistryFull = errors.New("subscriber registry is full")
	// ErrUnknownPolicy is returned by ParsePolicy.
	ErrUnknownPolicy = errors.New("unknown registry policy")
)

// Config tunes a Registry.
type Config struct {
	// TTL is how long a subscription lives without renewal.
	TTL time.Duration
	// MaxSubscribers caps the number of entries.
	MaxSubscribers int
	// Policy applies when the cap is reached.
	Policy Policy
}

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyReject, PolicyEvictOldest:
		return p, nil
	case "":
		return PolicyReject, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Result is returned by Subscribe.
type Result struct {
	// Outcome is what happened to the registry.
	Outcome Outcome
	// Evicted is the dropped entry when Outcome is CreatedAfterEviction.
	Evicted gate.Subscription
}

// Sender delivers one notification to one subscriber.
type Sender func(addr netip.AddrPort, message []byte) error

// Failure records a notification that could not be delivered.
type Failure struct {
	// Address is the subscriber that was not reached.
	Address netip.AddrPort
	// Err is the sender error.
	Err error
}

// NotifyReport summarizes a fan-out pass.
type NotifyReport struct {
	// Delivered counts successful sends.
	Delivered int
	// Failures lists the sends that failed.
	Failures []Failure
}

// Registry stores subscriptions. It is owned by the poll loop and is not
// safe for concurrent use.
type Registry struct {
	// config holds limits and TTL.
	config Config
	// entries is the ordered backing collection.
	entries []gate.Subscription
	// index maps an address to its position in entries.
	index map[netip.AddrPort]int
}

// New creates an empty registry, filling in defaults for zero config fields.
func New(cfg Config) *Registry {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	if cfg.MaxSubscribers <= 0 {
		cfg.MaxSubscribers = DefaultMaxSubscribers
	}

	if cfg.Policy == "" {
		cfg.Policy = PolicyReject
	}

	return &Registry{
		config:  cfg,
		entries: make([]gate.Subscription, 0, cfg.MaxSubscribers),
		index:   make(map[netip.AddrPort]int, cfg.MaxSubscribers),
	}
}

// TTL returns the configured subscription lifetime.
func (r *Registry) TTL() time.Duration {
	return r.config.TTL
}

// Subscribe inserts addr or renews its existing entry.
func (r *Registry) Subscribe(addr netip.AddrPort, now time.Time) (Result, error) {
	if i, ok := r.index[addr]; ok {
		r.entries[i].RenewedAt = now

		return Result{Outcome: Renewed}, nil
	}

	result := Result{Outcome: Created}

	if len(r.entries) >= r.config.MaxSubscribers {
		if r.config.Policy != PolicyEvictOldest {
			return Result{}, ErrRegistryFull
		}

		result.Outcome = CreatedAfterEviction
		result.Evicted = r.entries[r.oldest()]
		r.Remove(result.Evicted.Address)
	}

	r.index[addr] = len(r.entries)
	r.entries = append(r.entries, gate.Subscription{
		Address:      addr,
		SubscribedAt: now,
		RenewedAt:    now,
	})

	return result, nil
}

// Find looks up the entry for addr.
func (r *Registry) Find(addr netip.AddrPort) (gate.Subscription, bool) {
	i, ok := r.index[addr]
	if !ok {
		return gate.Subscription{}, false
	}

	return r.entries[i], true
}

// Remove deletes the entry for addr and reports whether it existed.
func (r *Registry) Remove(addr netip.AddrPort) bool {
	if _, ok := r.index[addr]; !ok {
		return false
	}

	r.compact(func(s gate.Subscription) bool {
		return s.Address != addr
	})

	return true
}

// PurgeExpired removes every entry renewed more than TTL before now and
// returns the removed entries. An entry renewed exactly TTL ago survives.
func (r *Registry) PurgeExpired(now time.Time) []gate.Subscription {
	return r.compact(func(s gate.Subscription) bool {
		return now.Sub(s.RenewedAt) <= r.config.TTL
	})
}

// NotifyAll sends message to every current subscriber. The address list is
// copied first, so send may safely mutate the registry. A failed send does
// not stop the remaining ones.
func (r *Registry) NotifyAll(message []byte, send Sender) NotifyReport {
	var report NotifyReport

	for _, s := range r.List() {
		if err := send(s.Address, message); err != nil {
			report.Failures = append(report.Failures, Failure{
				Address: s.Address,
				Err:     err,
			})

			continue
		}

		report.Delivered++
	}

	return report
}

// List returns a copy of all entries.
func (r *Registry) List() []gate.Subscription {
	return append([]gate.Subscription(nil), r.entries...)
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// compact keeps the entries for which keep returns true, rebuilds the index,
// and returns the dropped entries.
func (r *Registry) compact(keep func(gate.Subscription) bool) []gate.Subscription {
	var (
		removed []gate.Subscription
		kept    = r.entries[:0]
	)

	for _, s := range r.entries {
		if keep(s) {
			kept = append(kept, s)
		} else {
			removed = append(removed, s)
		}
	}

	// Clear the tail so dropped values do not linger in the backing array.
	clear(r.entries[len(kept):])

	r.entries = kept

	if len(removed) > 0 {
		clear(r.index)

		for i, s := range r.entries {
			r.index[s.Address] = i
		}
	}

	return removed
}

// oldest returns the position of the entry with the earliest renewal.
func (r *Registry) oldest() int {
	pos := 0

	for i, s := range r.entries {
		if s.RenewedAt.Before(r.entries[pos].RenewedAt) {
			pos = i
		}
	}

	return pos
}
