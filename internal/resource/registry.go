package resource

import (
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Options configures a Registry.
type Options struct {
	// Capacity bounds the number of live resources. When a registration
	// would exceed it, the oldest resources are evicted first. Zero means
	// unbounded. Capacity bounds image bytes, not ids: the id of every
	// evicted resource is still kept, about one short string per
	// registration.
	Capacity int

	// TTL is how long a resource stays retrievable after registration.
	// Zero disables expiry.
	TTL time.Duration

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time

	// OnEvict, if set, is called for every resource removed by capacity or
	// TTL eviction. It runs after the registry lock is released.
	OnEvict func(Resource)
}

// Registry is an in-memory, concurrency-safe store of image resources.
//
// Resources are kept in registration order, which is also CreatedAt order:
// CreatedAt is assigned under the registry lock and never goes backwards.
// Every id ever assigned is remembered for the lifetime of the registry,
// so ids are never reused and a parent reference stays valid even after
// the parent itself has been evicted. That id set is the one part of the
// registry that eviction does not shrink.
//
// # Example Usage
//
//	reg := resource.New(resource.Options{Capacity: 128})
//	id, err := reg.Register(resource.Resource{
//	    Origin:   resource.OriginGenerated,
//	    Location: resource.Location{Data: png},
//	    MimeType: "image/png",
//	})
//	res, err := reg.Lookup(id)
//	for r := range reg.List(resource.OriginGenerated) {
//	    fmt.Println(r.ID)
//	}
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]Resource
	order  []string
	issued map[string]struct{}
	last   time.Time

	capacity int
	ttl      time.Duration
	now      func() time.Time
	onEvict  func(Resource)
}

// New creates an empty registry.
func New(opts Options) *Registry {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	capacity := opts.Capacity
	if capacity < 0 {
		capacity = 0
	}
	return &Registry{
		byID:     make(map[string]Resource),
		issued:   make(map[string]struct{}),
		capacity: capacity,
		ttl:      opts.TTL,
		now:      now,
		onEvict:  opts.OnEvict,
	}
}

// Register stores res and returns its id.
//
// If res.ID is empty a fresh id is assigned; a caller-supplied id must not
// have been used before. CreatedAt is always set by the registry.
//
// # Errors
//
//   - ErrInvalidResource if the location is empty, the MIME type is missing,
//     the origin is unknown, the id was already issued, or ParentID names an
//     id this registry never issued.
func (r *Registry) Register(res Resource) (string, error) {
	if err := res.validate(); err != nil {
		return "", err
	}

	r.mu.Lock()
	now := r.now()
	evicted := r.pruneLocked(now)

	if res.ID == "" {
		res.ID = r.newIDLocked()
	} else if _, dup := r.issued[res.ID]; dup {
		r.mu.Unlock()
		r.notify(evicted)
		return "", fmt.Errorf("%w: id %q already registered", ErrInvalidResource, res.ID)
	}
	if res.ParentID != "" {
		if _, ok := r.issued[res.ParentID]; !ok {
			r.mu.Unlock()
			r.notify(evicted)
			return "", fmt.Errorf("%w: parent %q was never registered", ErrInvalidResource, res.ParentID)
		}
	}

	created := now
	if created.Before(r.last) {
		created = r.last
	}
	r.last = created
	res.CreatedAt = created

	r.issued[res.ID] = struct{}{}
	r.byID[res.ID] = res
	r.order = append(r.order, res.ID)

	if r.capacity > 0 {
		for len(r.order) > r.capacity {
			evicted = append(evicted, r.byID[r.order[0]])
			delete(r.byID, r.order[0])
			r.order = r.order[1:]
		}
	}
	r.mu.Unlock()

	r.notify(evicted)
	return res.ID, nil
}

// Lookup returns the resource registered under id.
//
// Returns ErrNotFound if the id is unknown, was evicted, or has expired.
func (r *Registry) Lookup(id string) (Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.byID[id]
	if !ok || r.expired(res, r.now()) {
		return Resource{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return res, nil
}

// List returns a sequence of live resources ordered by CreatedAt ascending.
//
// When origins are given only resources with one of those origins are
// produced. Each time the sequence is ranged over it takes a fresh snapshot,
// so it can be iterated any number of times and never blocks registration
// while the caller consumes it.
func (r *Registry) List(origins ...Origin) iter.Seq[Resource] {
	return func(yield func(Resource) bool) {
		for _, res := range r.snapshot(origins) {
			if !yield(res) {
				return
			}
		}
	}
}

// Len returns the number of live resources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	n := 0
	for _, id := range r.order {
		if !r.expired(r.byID[id], now) {
			n++
		}
	}
	return n
}

// Prune removes expired resources and returns how many were removed.
func (r *Registry) Prune() int {
	r.mu.Lock()
	evicted := r.pruneLocked(r.now())
	r.mu.Unlock()

	r.notify(evicted)
	return len(evicted)
}

// Clear drops every live resource. Issued ids stay reserved.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.byID = make(map[string]Resource)
	r.order = nil
	r.mu.Unlock()
}

func (r *Registry) snapshot(origins []Origin) []Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	out := make([]Resource, 0, len(r.order))
	for _, id := range r.order {
		res := r.byID[id]
		if r.expired(res, now) || !matches(res.Origin, origins) {
			continue
		}
		out = append(out, res)
	}
	return out
}

func matches(o Origin, origins []Origin) bool {
	if len(origins) == 0 {
		return true
	}
	for _, want := range origins {
		if o == want {
			return true
		}
	}
	return false
}

func (r *Registry) expired(res Resource, now time.Time) bool {
	return r.ttl > 0 && now.Sub(res.CreatedAt) >= r.ttl
}

// pruneLocked drops the expired prefix of r.order. Registration order is
// CreatedAt order, so expired entries are always at the front.
func (r *Registry) pruneLocked(now time.Time) []Resource {
	if r.ttl <= 0 {
		return nil
	}
	var evicted []Resource
	for len(r.order) > 0 {
		res := r.byID[r.order[0]]
		if !r.expired(res, now) {
			break
		}
		evicted = append(evicted, res)
		delete(r.byID, res.ID)
		r.order = r.order[1:]
	}
	return evicted
}

func (r *Registry) newIDLocked() string {
	for {
		id := uuid.NewString()
		if _, taken := r.issued[id]; !taken {
			return id
		}
	}
}

func (r *Registry) notify(evicted []Resource) {
	if r.onEvict == nil {
		return
	}
	for _, res := range evicted {
		r.onEvict(res)
	}
}
