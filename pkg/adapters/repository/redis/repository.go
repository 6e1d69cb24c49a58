package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wadjakorntonsri/pretty-links/pkg/core/domain"
	"github.com/wadjakorntonsri/pretty-links/pkg/ports"
)

const maxTxRetries = 16

// RedisRepository stores each component as JSON under "<prefix>component:<id>"
// and keeps two set indexes: all ids, and ids per owner.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-backed component repository. Prefix may be empty.
func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "prettylinks:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

// Open dials addr and verifies the connection.
func Open(ctx context.Context, addr, password string, db int) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedisRepository(client, ""), nil
}

func (r *RedisRepository) key(id string) string {
	return r.prefix + "component:" + id
}

func (r *RedisRepository) allKey() string {
	return r.prefix + "components"
}

func (r *RedisRepository) ownerKey(ownerID string) string {
	return r.prefix + "owner:" + ownerID + ":components"
}

// watch runs fn in an optimistic transaction on key, retrying when another
// client touched the key first.
func (r *RedisRepository) watch(ctx context.Context, op, key string, fn func(tx *redis.Tx) error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return domain.NewStorageError(op, err)
	}
	return domain.NewStorageError(op, redis.TxFailedErr)
}

func (r *RedisRepository) Create(ctx context.Context, component *domain.Component) error {
	if err := component.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	doc := *component
	doc.CreatedAt = now
	doc.UpdatedAt = now
	b, err := json.Marshal(doc)
	if err != nil {
		return domain.NewStorageError("create", err)
	}

	key := r.key(component.ID)
	err = r.watch(ctx, "create", key, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.NewDuplicateIDError(component.ID)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, 0)
			pipe.SAdd(ctx, r.allKey(), component.ID)
			if component.OwnerID != "" {
				pipe.SAdd(ctx, r.ownerKey(component.OwnerID), component.ID)
			}
			return nil
		})
		return err
	})
	if err != nil {
		return err
	}
	component.CreatedAt = now
	component.UpdatedAt = now
	return nil
}

func (r *RedisRepository) Get(ctx context.Context, id string) (*domain.Component, error) {
	c, err := r.get(ctx, r.client, id)
	if err != nil {
		return nil, domain.NewStorageError("get", err)
	}
	return c, nil
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisRepository) get(ctx context.Context, cmd getter, id string) (*domain.Component, error) {
	b, err := cmd.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var c domain.Component
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *RedisRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Component, error) {
	index := r.allKey()
	if ownerID != "" {
		index = r.ownerKey(ownerID)
	}
	return r.list(ctx, "list", index)
}

func (r *RedisRepository) list(ctx context.Context, op, index string) ([]domain.Component, error) {
	ids, err := r.client.SMembers(ctx, index).Result()
	if err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	out := []domain.Component{}
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue // index entry outlived its record
		}
		var c domain.Component
		if err := json.Unmarshal([]byte(s), &c); err != nil {
			return nil, domain.NewStorageError(op, err)
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *RedisRepository) Update(ctx context.Context, id string, patch domain.ComponentPatch) (*domain.Component, error) {
	var next domain.Component
	key := r.key(id)
	err := r.watch(ctx, "update", key, func(tx *redis.Tx) error {
		current, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		next = patch.Apply(*current)
		if err := next.Validate(); err != nil {
			return err
		}
		next.UpdatedAt = time.Now().UTC()
		b, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, 0)
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &next, nil
}

func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	key := r.key(id)
	return r.watch(ctx, "delete", key, func(tx *redis.Tx) error {
		current, err := r.get(ctx, tx, id)
		if err != nil && !domain.IsNotFound(err) {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, r.allKey(), id)
			if current != nil && current.OwnerID != "" {
				pipe.SRem(ctx, r.ownerKey(current.OwnerID), id)
			}
			return nil
		})
		return err
	})
}

func (r *RedisRepository) Dump(ctx context.Context) ([]domain.Component, error) {
	return r.list(ctx, "dump", r.allKey())
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// Ensure interface compliance
var _ ports.ComponentRepository = (*RedisRepository)(nil)
