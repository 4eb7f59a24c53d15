package ws

import "sync"

// Rooms multiplexes broadcasts over named membership sets. Rooms are created
// implicitly on first join and deleted when their last member leaves. Rooms
// stores user ids only; sessions are resolved through the registry at
// broadcast time, so a stale member never faults a broadcast.
type Rooms struct {
	registry *Registry

	mu      sync.RWMutex
	members map[string]map[string]struct{}
}

// NewRooms creates an empty room multiplexer resolving members through the
// given registry.
func NewRooms(registry *Registry) *Rooms {
	return &Rooms{
		registry: registry,
		members:  make(map[string]map[string]struct{}),
	}
}

// Join adds the user to the room, creating the room on first use.
func (r *Rooms) Join(room, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.members[room]
	if !ok {
		set = make(map[string]struct{})
		r.members[room] = set
	}
	set[userID] = struct{}{}
}

// Leave removes the user from the room, deleting the room if it becomes
// empty.
func (r *Rooms) Leave(room, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(room, userID)
}

func (r *Rooms) leaveLocked(room, userID string) {
	set, ok := r.members[room]
	if !ok {
		return
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(r.members, room)
	}
}

// LeaveAll removes the user from every room and returns the rooms vacated.
func (r *Rooms) LeaveAll(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var vacated []string
	for room, set := range r.members {
		if _, ok := set[userID]; ok {
			vacated = append(vacated, room)
			r.leaveLocked(room, userID)
		}
	}
	return vacated
}

// Members returns a snapshot of the room's membership.
func (r *Rooms) Members(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.members[room]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// Contains reports whether the room currently exists with the user as a
// member.
func (r *Rooms) Contains(room, userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[room][userID]
	return ok
}

// Broadcast delivers an encoded frame to every room member except the
// excluded user, and returns the number of deliveries. The membership
// snapshot is taken atomically; the per-member sends happen outside the lock
// so one slow recipient cannot stall room operations. Send failures are
// skipped, never propagated.
func (r *Rooms) Broadcast(room string, payload []byte, exclude string) int {
	members := r.Members(room)

	delivered := 0
	for _, userID := range members {
		if userID == exclude {
			continue
		}
		if err := r.registry.Send(userID, payload); err == nil {
			delivered++
		}
	}
	return delivered
}
