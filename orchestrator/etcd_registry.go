package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdConfig configures an EtcdSessionRegistry.
type EtcdConfig struct {
	Endpoints   []string
	Namespace   string // defaults to "sentinel"
	TTL         int    // seconds, defaults to 30
	ReplicaAddr string // this replica's routable address, stored as the registry value
}

// EtcdSessionRegistry registers {session_id -> owning replica address} in
// etcd with a lease-keepalive, so a cancel/get_status issued against the
// wrong orchestrator replica can be routed to the one actually running the
// session. Grounded on the teacher's registry.Client (registry/client.go)
// lease-keepalive pattern. Optional: the orchestrator works single-replica
// without it.
type EtcdSessionRegistry struct {
	client      *clientv3.Client
	namespace   string
	ttl         int
	replicaAddr string

	mu        sync.RWMutex
	leases    map[uuid.UUID]clientv3.LeaseID
	cancelFns map[uuid.UUID]context.CancelFunc
	wg        sync.WaitGroup
	closed    bool
}

// NewEtcdSessionRegistry connects to the etcd cluster described by cfg.
func NewEtcdSessionRegistry(cfg EtcdConfig) (*EtcdSessionRegistry, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("orchestrator: etcd endpoints must not be empty")
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "sentinel"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: failed to create etcd client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := cli.Get(ctx, "health-check"); err != nil && err != context.DeadlineExceeded {
		cli.Close()
		return nil, fmt.Errorf("orchestrator: etcd health check failed: %w", err)
	}

	return &EtcdSessionRegistry{
		client:      cli,
		namespace:   namespace,
		ttl:         ttl,
		replicaAddr: cfg.ReplicaAddr,
		leases:      make(map[uuid.UUID]clientv3.LeaseID),
		cancelFns:   make(map[uuid.UUID]context.CancelFunc),
	}, nil
}

func (r *EtcdSessionRegistry) key(sessionID uuid.UUID) string {
	return fmt.Sprintf("/%s/sessions/%s", r.namespace, sessionID)
}

// Register creates a leased key for sessionID pointing at this replica's
// address and starts a background goroutine renewing the lease every
// TTL/3 seconds until Deregister or Close.
func (r *EtcdSessionRegistry) Register(ctx context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("orchestrator: etcd session registry is closed")
	}

	leaseResp, err := r.client.Grant(ctx, int64(r.ttl))
	if err != nil {
		return fmt.Errorf("orchestrator: failed to create lease: %w", err)
	}
	if _, err := r.client.Put(ctx, r.key(sessionID), r.replicaAddr, clientv3.WithLease(leaseResp.ID)); err != nil {
		return fmt.Errorf("orchestrator: failed to register session %s: %w", sessionID, err)
	}

	r.leases[sessionID] = leaseResp.ID
	keepaliveCtx, cancel := context.WithCancel(context.Background())
	r.cancelFns[sessionID] = cancel

	r.wg.Add(1)
	go r.keepalive(keepaliveCtx, leaseResp.ID, sessionID)

	return nil
}

func (r *EtcdSessionRegistry) keepalive(ctx context.Context, leaseID clientv3.LeaseID, sessionID uuid.UUID) {
	defer r.wg.Done()
	ticker := time.NewTicker(time.Duration(r.ttl/3) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.client.KeepAliveOnce(ctx, leaseID); err != nil {
				return
			}
		}
	}
}

// Deregister revokes the lease for sessionID, deleting its key, and stops
// the keepalive goroutine. A no-op if the session was never registered.
func (r *EtcdSessionRegistry) Deregister(ctx context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("orchestrator: etcd session registry is closed")
	}

	if cancel, ok := r.cancelFns[sessionID]; ok {
		cancel()
		delete(r.cancelFns, sessionID)
	}
	leaseID, ok := r.leases[sessionID]
	if !ok {
		return nil
	}
	delete(r.leases, sessionID)
	if _, err := r.client.Revoke(ctx, leaseID); err != nil {
		return fmt.Errorf("orchestrator: failed to revoke lease for session %s: %w", sessionID, err)
	}
	return nil
}

// Lookup returns the replica address owning sessionID, if registered.
func (r *EtcdSessionRegistry) Lookup(ctx context.Context, sessionID uuid.UUID) (string, bool, error) {
	resp, err := r.client.Get(ctx, r.key(sessionID))
	if err != nil {
		return "", false, fmt.Errorf("orchestrator: failed to look up session %s: %w", sessionID, err)
	}
	if len(resp.Kvs) == 0 {
		return "", false, nil
	}
	return string(resp.Kvs[0].Value), true, nil
}

// Close stops all keepalive goroutines and closes the etcd client.
func (r *EtcdSessionRegistry) Close() error {
	r.mu.Lock()
	r.closed = true
	for _, cancel := range r.cancelFns {
		cancel()
	}
	r.cancelFns = make(map[uuid.UUID]context.CancelFunc)
	r.mu.Unlock()

	r.wg.Wait()
	return r.client.Close()
}
