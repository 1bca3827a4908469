// Package snapshot saves and restores the documents open in a session.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"pageflow/pkg/document"
)

// Cache holds one session's open documents. Load returns nil when nothing
// was saved.
type Cache interface {
	Save(ctx context.Context, docs []*document.Document) error
	Load(ctx context.Context) ([]*document.Document, error)
	Clear(ctx context.Context) error
}

func encode(docs []*document.Document) ([]byte, error) {
	data, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// decode never fails: a malformed snapshot becomes one blank document, and
// a malformed entry inside a valid list becomes a blank document.
func decode(data []byte, log zerolog.Logger) []*document.Document {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn().Err(err).Msg("malformed session snapshot, starting blank")
		return []*document.Document{document.New("")}
	}
	docs := make([]*document.Document, 0, len(raw))
	for _, r := range raw {
		docs = append(docs, document.UnmarshalOrBlank(r, log))
	}
	if len(docs) == 0 {
		docs = append(docs, document.New(""))
	}
	return docs
}

type File struct {
	path string
	log  zerolog.Logger
}

var _ Cache = (*File)(nil)

func NewFile(path string, log zerolog.Logger) *File {
	return &File{path: path, log: log}
}

// Save writes to a temporary file and renames it into place.
func (f *File) Save(_ context.Context, docs []*document.Document) error {
	data, err := encode(docs)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("saving snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func (f *File) Load(_ context.Context) ([]*document.Document, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return decode(data, f.log), nil
}

func (f *File) Clear(_ context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clearing snapshot: %w", err)
	}
	return nil
}

// Redis stores the snapshot under one key.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	log    zerolog.Logger
}

var _ Cache = (*Redis)(nil)

// RedisConf mirrors the [snapshot] config section.
type RedisConf struct {
	Host string
	Port int
	PW   string
	DB   int
	Key  string
	TTL  time.Duration
}

func NewRedis(conf RedisConf, log zerolog.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		Password: conf.PW,
		DB:       conf.DB,
	})
	return NewRedisClient(client, conf.Key, conf.TTL, log)
}

// NewRedisClient uses an existing client. A zero ttl keeps the key forever.
func NewRedisClient(client *redis.Client, key string, ttl time.Duration, log zerolog.Logger) *Redis {
	if key == "" {
		key = "pageflow:session"
	}
	return &Redis{client: client, key: key, ttl: ttl, log: log}
}

func (r *Redis) Save(ctx context.Context, docs []*document.Document) error {
	data, err := encode(docs)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("saving snapshot to redis: %w", err)
	}
	return nil
}

func (r *Redis) Load(ctx context.Context) ([]*document.Document, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot from redis: %w", err)
	}
	return decode(data, r.log), nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("clearing snapshot in redis: %w", err)
	}
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }
