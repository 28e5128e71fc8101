package redis

import (
	"context"
	"log"
	"sync"
	"time"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RoomRegistry is a Redis-aware implementation of app.RoomRegistry.
// Notes:
//   - Rooms themselves stay in a local in-process map: the per-room
//     locking and broadcast fan-out are in-process concerns.
//   - Redis holds a liveness marker per room code, which also reserves
//     the code against other instances handing it out.
//   - For true distribution you'd pair this with a pub/sub projector
//     that fans out room events across instances.
type RoomRegistry struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	rooms  map[string]*app.Room
}

func NewRoomRegistry(client *redis.Client, ttl time.Duration) *RoomRegistry {
	return &RoomRegistry{
		client: client,
		ttl:    ttl,
		rooms:  make(map[string]*app.Room),
	}
}

func (r *RoomRegistry) Create(room *app.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[room.Code()]; ok {
		return domain.ErrRoomCodeTaken
	}
	// SETNX reserves the code across instances sharing this Redis. On a
	// Redis error the room is still created locally; the cross-instance
	// reservation is best-effort and the local map stays authoritative.
	reserved, err := r.client.SetNX(context.Background(), r.key(room.Code()), "1", r.ttl).Result()
	if err != nil {
		log.Printf("redis: reserving room code %s: %v", room.Code(), err)
	} else if !reserved {
		return domain.ErrRoomCodeTaken
	}
	r.rooms[room.Code()] = room
	return nil
}

func (r *RoomRegistry) Get(code string) (*app.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	return room, ok
}

func (r *RoomRegistry) Remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[code]; !ok {
		return
	}
	delete(r.rooms, code)
	_ = r.client.Del(context.Background(), r.key(code)).Err()
}

func (r *RoomRegistry) key(code string) string {
	return "room:" + code
}
