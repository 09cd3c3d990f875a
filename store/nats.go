package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultBucket is the JetStream key-value bucket used when none is configured.
const DefaultBucket = "todolist"

// NATSOptions configures a NATS store.
type NATSOptions struct {
	// URL of the NATS server. Ignored when Conn is set.
	URL string

	// Conn reuses an existing connection. The store does not close it.
	Conn *nats.Conn

	// Bucket is the key-value bucket name. Empty means DefaultBucket.
	Bucket string
}

// NATS stores entries in a JetStream key-value bucket.
// Operations hold a read lock for their whole duration, so Close waits for
// in-flight calls before dropping the bucket.
type NATS struct {
	conn     *nats.Conn
	ownsConn bool

	mu sync.RWMutex
	kv jetstream.KeyValue
}

// OpenNATS connects to NATS and creates the bucket if it does not exist.
func OpenNATS(ctx context.Context, opts NATSOptions) (*NATS, error) {
	bucket := opts.Bucket
	if bucket == "" {
		bucket = DefaultBucket
	}

	nc := opts.Conn
	ownsConn := false
	if nc == nil {
		var err error
		nc, err = nats.Connect(opts.URL,
			nats.Name("todolist"),
			nats.MaxReconnects(5),
			nats.ReconnectWait(time.Second),
		)
		if err != nil {
			return nil, fmt.Errorf("connect to NATS at %s: %w", opts.URL, err)
		}
		ownsConn = true
	}

	js, err := jetstream.New(nc)
	if err != nil {
		if ownsConn {
			nc.Close()
		}
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "todolist entities",
	})
	if err != nil {
		if ownsConn {
			nc.Close()
		}
		return nil, fmt.Errorf("open bucket %s: %w", bucket, err)
	}

	return &NATS{conn: nc, ownsConn: ownsConn, kv: kv}, nil
}

func (n *NATS) Get(ctx context.Context, key string, dst any) (bool, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.kv == nil {
		return false, ErrClosed
	}
	entry, err := n.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(entry.Value(), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (n *NATS) Set(ctx context.Context, key string, value any) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.kv == nil {
		return ErrClosed
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if _, err := n.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (n *NATS) Remove(ctx context.Context, key string) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.kv == nil {
		return ErrClosed
	}
	err := n.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close releases the connection if the store opened it.
func (n *NATS) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.kv == nil {
		return nil
	}
	n.kv = nil
	if n.ownsConn {
		n.conn.Close()
	}
	return nil
}
