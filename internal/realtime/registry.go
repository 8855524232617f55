package realtime

import (
	"hash/fnv"
	"sync"

	"github.com/courierops/parcel-track-system/pkg/uuid"
)

const registryShards = 32

// Registry maps a parcel id to the set of sessions currently watching it.
// Rooms are purely in-memory: created lazily on first join, discarded when
// the last subscriber leaves, and fully reconstructible from live
// connections after a restart.
//
// The room table is sharded by parcel id so join/leave/broadcast lookups on
// unrelated parcels never contend on one lock.
type Registry struct {
	shards [registryShards]registryShard
}

type registryShard struct {
	mu    sync.RWMutex
	rooms map[string]map[uuid.UUID]*Session
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].rooms = make(map[string]map[uuid.UUID]*Session)
	}
	return r
}

func (r *Registry) shard(parcelID string) *registryShard {
	h := fnv.New32a()
	h.Write([]byte(parcelID))
	return &r.shards[h.Sum32()%registryShards]
}

// Join registers the session in the parcel's room, creating the room if
// needed. Joining twice is a no-op.
func (r *Registry) Join(parcelID string, session *Session) {
	sh := r.shard(parcelID)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	room, ok := sh.rooms[parcelID]
	if !ok {
		room = make(map[uuid.UUID]*Session)
		sh.rooms[parcelID] = room
	}
	room[session.ID()] = session
}

// Leave removes the session from the parcel's room and discards the room
// when it becomes empty.
func (r *Registry) Leave(parcelID string, session *Session) {
	sh := r.shard(parcelID)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	room, ok := sh.rooms[parcelID]
	if !ok {
		return
	}
	delete(room, session.ID())
	if len(room) == 0 {
		delete(sh.rooms, parcelID)
	}
}

// LeaveAll removes the session from every room it joined.
func (r *Registry) LeaveAll(session *Session) {
	for _, parcelID := range session.JoinedRooms() {
		r.Leave(parcelID, session)
	}
}

// Subscribers returns a snapshot of the sessions in the parcel's room.
func (r *Registry) Subscribers(parcelID string) []*Session {
	sh := r.shard(parcelID)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	room, ok := sh.rooms[parcelID]
	if !ok {
		return nil
	}

	subs := make([]*Session, 0, len(room))
	for _, session := range room {
		subs = append(subs, session)
	}
	return subs
}

// SubscriberCount returns the total number of subscriptions across all rooms.
func (r *Registry) SubscriberCount() int {
	total := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		for _, room := range sh.rooms {
			total += len(room)
		}
		sh.mu.RUnlock()
	}
	return total
}
