package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/nandaputra/bidlance_be/internal/services/assignment"
)

// EventChannel is the Redis channel the analytics consumers subscribe to.
const EventChannel = "bidlance:events"

// Broadcaster delivers workflow events to connected sockets and to the
// Redis event channel. It is the notification sink the assignment
// service publishes into.
type Broadcaster struct {
	Hub *Hub
	RDB *redis.Client
}

func NewBroadcaster(hub *Hub, rdb *redis.Client) *Broadcaster {
	return &Broadcaster{Hub: hub, RDB: rdb}
}

func (b *Broadcaster) Publish(ctx context.Context, ev assignment.Event) error {
	if b.Hub != nil {
		b.Hub.SendToUser(ev.FreelancerID, ev)
	}

	if b.RDB == nil {
		return nil
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.RDB.Publish(ctx, EventChannel, payload).Err()
}
