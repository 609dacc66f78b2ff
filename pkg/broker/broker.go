// Package broker provides a durable FIFO hand-off between ticket
// ingestion and the drain worker, backed by Redis lists. The broker
// itself is opaque: callers push an encoded ticket and later pop one
// back, with no ordering or content guarantees beyond FIFO delivery.
package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/jordigilh/triagex/pkg/domain"
	triageerrors "github.com/jordigilh/triagex/pkg/shared/errors"
)

// Broker pushes and pops encoded tickets through a Redis list acting as
// a FIFO queue.
type Broker struct {
	client *redis.Client
	key    string
}

// New builds a Broker connected to addr (host:port) using key as the
// list name.
func New(addr, key string) *Broker {
	return &Broker{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    key,
	}
}

// NewWithClient builds a Broker over an already-constructed redis
// client, so tests can point it at a miniredis instance.
func NewWithClient(client *redis.Client, key string) *Broker {
	return &Broker{client: client, key: key}
}

// Push encodes ticket and appends it to the tail of the queue.
func (b *Broker) Push(ctx context.Context, ticket domain.Ticket) error {
	data, err := json.Marshal(ticket)
	if err != nil {
		return triageerrors.FailedToWithDetails("marshal ticket for broker", "broker", ticket.ID, err)
	}
	if err := b.client.LPush(ctx, b.key, data).Err(); err != nil {
		return triageerrors.NetworkError("push ticket to broker", "redis", errors.Wrap(err, "LPUSH"))
	}
	return nil
}

// Pop blocks up to timeout for the next ticket at the head of the queue,
// returning (ticket, true, nil) on success or (_, false, nil) on an
// empty-queue timeout.
func (b *Broker) Pop(ctx context.Context, timeout time.Duration) (domain.Ticket, bool, error) {
	result, err := b.client.BRPop(ctx, timeout, b.key).Result()
	if err == redis.Nil {
		return domain.Ticket{}, false, nil
	}
	if err != nil {
		return domain.Ticket{}, false, triageerrors.NetworkError("pop ticket from broker", "redis", errors.Wrap(err, "BRPOP"))
	}

	// BRPop returns [key, value]; the payload is the second element.
	if len(result) != 2 {
		return domain.Ticket{}, false, triageerrors.ParseError("broker pop result", "redis list reply", nil)
	}

	var ticket domain.Ticket
	if err := json.Unmarshal([]byte(result[1]), &ticket); err != nil {
		return domain.Ticket{}, false, triageerrors.ParseError("broker payload", "JSON", err)
	}
	return ticket, true, nil
}

// Close releases the underlying Redis client connection.
func (b *Broker) Close() error {
	return b.client.Close()
}

// Depth reports the number of tickets currently waiting in the broker,
// or -1 if the broker can't be reached.
func (b *Broker) Depth(ctx context.Context) int {
	n, err := b.client.LLen(ctx, b.key).Result()
	if err != nil {
		return -1
	}
	return int(n)
}
