package presence

import (
	"sync"
)

// Registry tracks which users are currently connected to which rooms.
// It is process-local, disposable state: durable membership lives in
// the participants table, this answers "who is live right now".
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*memberSet
}

type memberSet struct {
	mu      sync.Mutex
	members map[int]struct{}
	// pruned is set, under both locks, when Leave removes this set
	// from the registry. A Join that raced the prune must not insert
	// here: the set is no longer reachable through rooms.
	pruned bool
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*memberSet),
	}
}

// Join records userId as present in roomId. Idempotent.
func (r *Registry) Join(roomId string, userId int) {
	for {
		r.mu.RLock()
		set, ok := r.rooms[roomId]
		r.mu.RUnlock()

		if !ok {
			r.mu.Lock()
			set, ok = r.rooms[roomId]
			if !ok {
				set = &memberSet{members: make(map[int]struct{})}
				r.rooms[roomId] = set
			}
			r.mu.Unlock()
		}

		set.mu.Lock()
		if set.pruned {
			// a concurrent Leave emptied and removed this set after we
			// looked it up; start over against the current map entry
			set.mu.Unlock()
			continue
		}
		set.members[userId] = struct{}{}
		set.mu.Unlock()
		return
	}
}

// Leave removes userId from roomId. Idempotent. The room entry is
// pruned once its member set is empty.
func (r *Registry) Leave(roomId string, userId int) {
	r.mu.RLock()
	set, ok := r.rooms[roomId]
	r.mu.RUnlock()
	if !ok {
		return
	}

	set.mu.Lock()
	delete(set.members, userId)
	empty := len(set.members) == 0
	set.mu.Unlock()

	if empty {
		r.mu.Lock()
		// re-check under the write lock, a concurrent Join may have raced
		if set, ok := r.rooms[roomId]; ok {
			set.mu.Lock()
			if len(set.members) == 0 {
				set.pruned = true
				delete(r.rooms, roomId)
			}
			set.mu.Unlock()
		}
		r.mu.Unlock()
	}
}

// Count returns the number of users currently present in roomId.
func (r *Registry) Count(roomId string) int {
	r.mu.RLock()
	set, ok := r.rooms[roomId]
	r.mu.RUnlock()
	if !ok {
		return 0
	}

	set.mu.Lock()
	defer set.mu.Unlock()
	return len(set.members)
}

// Contains reports whether userId is currently present in roomId.
func (r *Registry) Contains(roomId string, userId int) bool {
	r.mu.RLock()
	set, ok := r.rooms[roomId]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	set.mu.Lock()
	defer set.mu.Unlock()
	_, present := set.members[userId]
	return present
}

// Members returns a snapshot of the user ids present in roomId.
func (r *Registry) Members(roomId string) []int {
	r.mu.RLock()
	set, ok := r.rooms[roomId]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	set.mu.Lock()
	defer set.mu.Unlock()

	members := make([]int, 0, len(set.members))
	for id := range set.members {
		members = append(members, id)
	}
	return members
}
