package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/glaseagle/3DAuth-FireStore/internal/models"
)

const (
	messagesKey     = "space:messages"
	messageOrderKey = "space:messages:order"
	cursorIndexKey  = "space:cursors"

	searchTTL = 7 * 24 * time.Hour

	// DefaultCursorTTL bounds how long a cursor outlives its last update.
	DefaultCursorTTL = 30 * time.Second
)

// RedisStore keeps the messages and cursors streams, nonces and the
// search index.
type RedisStore struct {
	client    *redis.Client
	notifier  Notifier
	cursorTTL time.Duration
	now       func() time.Time
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewRedisStoreFromClient(client), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:    client,
		cursorTTL: DefaultCursorTTL,
		now:       time.Now,
	}
}

// Client exposes the underlying client for rate limiting and pub/sub.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// SetNotifier sets where stream changes are announced.
func (s *RedisStore) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetCursorTTL changes the expiry of cursor records. Non-positive values are ignored.
func (s *RedisStore) SetCursorTTL(ttl time.Duration) {
	if ttl > 0 {
		s.cursorTTL = ttl
	}
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// cursorKey returns the key holding one cursor record.
func cursorKey(id string) string {
	return "space:cursor:" + id
}

// searchWordKey returns the key for a search word index.
func searchWordKey(word string) string {
	return fmt.Sprintf("search:words:%s", strings.ToLower(word))
}

func (s *RedisStore) changed(ctx context.Context, stream string) {
	if s.notifier == nil {
		return
	}
	// Subscribers reload the full stream, so a lost notice heals on the next write.
	_ = s.notifier.Publish(ctx, stream)
}

// AddMessage stores a note and returns its id. CreatedAt is set when zero.
func (s *RedisStore) AddMessage(ctx context.Context, msg *models.Message) (string, error) {
	id := ulid.Make().String()
	if msg.CreatedAt == 0 {
		msg.CreatedAt = s.now().UnixMilli()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, messagesKey, id, data)
	pipe.ZAdd(ctx, messageOrderKey, redis.Z{Score: float64(msg.CreatedAt), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("store message: %w", err)
	}

	// Search indexing is best-effort
	_ = s.IndexMessage(ctx, id, msg)

	s.changed(ctx, models.StreamMessages)
	return id, nil
}

// GetMessage retrieves a note by id.
func (s *RedisStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	data, err := s.client.HGet(ctx, messagesKey, id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode message %s: %w", id, err)
	}
	return &msg, nil
}

// DeleteMessage removes a note. Only its author may delete it.
func (s *RedisStore) DeleteMessage(ctx context.Context, id, uid string) error {
	msg, err := s.GetMessage(ctx, id)
	if err != nil {
		return err
	}
	if msg.UID != uid {
		return ErrForbidden
	}

	pipe := s.client.TxPipeline()
	pipe.HDel(ctx, messagesKey, id)
	pipe.ZRem(ctx, messageOrderKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	s.changed(ctx, models.StreamMessages)
	return nil
}

// CountMessages returns the number of stored notes.
func (s *RedisStore) CountMessages(ctx context.Context) (int64, error) {
	return s.client.ZCard(ctx, messageOrderKey).Result()
}

// LastMessageAt returns the creation time of the newest note, or nil.
func (s *RedisStore) LastMessageAt(ctx context.Context) (*time.Time, error) {
	res, err := s.client.ZRevRangeWithScores(ctx, messageOrderKey, 0, 0).Result()
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, nil
	}
	t := time.UnixMilli(int64(res[0].Score))
	return &t, nil
}

// RecentMessages returns up to limit notes, newest first.
func (s *RedisStore) RecentMessages(ctx context.Context, limit int) ([]models.SnapshotEntry, error) {
	if limit <= 0 {
		return []models.SnapshotEntry{}, nil
	}
	ids, err := s.client.ZRevRange(ctx, messageOrderKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	return s.messageEntries(ctx, ids)
}

// MessageEntries returns every note ordered by creation time, then id.
func (s *RedisStore) MessageEntries(ctx context.Context) ([]models.SnapshotEntry, error) {
	// Members with equal scores come back in lexical order, and ULIDs sort by time.
	ids, err := s.client.ZRange(ctx, messageOrderKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return s.messageEntries(ctx, ids)
}

func (s *RedisStore) messageEntries(ctx context.Context, ids []string) ([]models.SnapshotEntry, error) {
	entries := make([]models.SnapshotEntry, 0, len(ids))
	if len(ids) == 0 {
		return entries, nil
	}

	values, err := s.client.HMGet(ctx, messagesKey, ids...).Result()
	if err != nil {
		return nil, err
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue // Deleted between the two reads
		}
		entries = append(entries, models.SnapshotEntry{ID: ids[i], Value: json.RawMessage(raw)})
	}
	return entries, nil
}

// putCursorScript writes a cursor record unless another user owns it.
var putCursorScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current then
  local rec = cjson.decode(current)
  if (rec.uid or '') ~= ARGV[1] then
    return 0
  end
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
redis.call('SADD', KEYS[2], ARGV[4])
return 1
`)

// deleteCursorScript removes a cursor record owned by ARGV[1]. It returns
// 1 when removed, 0 when missing and -1 when owned by someone else.
var deleteCursorScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
  redis.call('SREM', KEYS[2], ARGV[2])
  return 0
end
local rec = cjson.decode(current)
if (rec.uid or '') ~= ARGV[1] then
  return -1
end
redis.call('DEL', KEYS[1])
redis.call('SREM', KEYS[2], ARGV[2])
return 1
`)

// PutCursor writes a cursor record with the configured TTL. An existing
// record may only be overwritten by its owner; the check and the write are
// one atomic step.
func (s *RedisStore) PutCursor(ctx context.Context, id string, c *models.Cursor) error {
	if c.UpdatedAt == 0 {
		c.UpdatedAt = s.now().UnixMilli()
	}
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}

	keys := []string{cursorKey(id), cursorIndexKey}
	ok, err := putCursorScript.Run(ctx, s.client, keys, c.UID, data, s.cursorTTL.Milliseconds(), id).Int()
	if err != nil {
		return fmt.Errorf("store cursor: %w", err)
	}
	if ok == 0 {
		return ErrForbidden
	}

	s.changed(ctx, models.StreamCursors)
	return nil
}

// GetCursor retrieves a cursor record by client id.
func (s *RedisStore) GetCursor(ctx context.Context, id string) (*models.Cursor, error) {
	data, err := s.client.Get(ctx, cursorKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var c models.Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode cursor %s: %w", id, err)
	}
	return &c, nil
}

// DeleteCursor removes a cursor record owned by uid and reports whether a
// record was removed. A record owned by another user yields ErrForbidden.
func (s *RedisStore) DeleteCursor(ctx context.Context, id, uid string) (bool, error) {
	keys := []string{cursorKey(id), cursorIndexKey}
	res, err := deleteCursorScript.Run(ctx, s.client, keys, uid, id).Int()
	if err != nil {
		return false, fmt.Errorf("delete cursor: %w", err)
	}
	switch res {
	case -1:
		return false, ErrForbidden
	case 0:
		return false, nil
	}

	s.changed(ctx, models.StreamCursors)
	return true, nil
}

// CursorEntries returns every live cursor sorted by client id. Index
// members whose record has expired are pruned and the removal announced.
func (s *RedisStore) CursorEntries(ctx context.Context) ([]models.SnapshotEntry, error) {
	ids, err := s.client.SMembers(ctx, cursorIndexKey).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]models.SnapshotEntry, 0, len(ids))
	if len(ids) == 0 {
		return entries, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cursorKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var expired []interface{}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		entries = append(entries, models.SnapshotEntry{ID: ids[i], Value: json.RawMessage(raw)})
	}
	if len(expired) > 0 {
		pruned, err := s.client.SRem(ctx, cursorIndexKey, expired...).Result()
		if err != nil {
			return nil, err
		}
		// Only the caller that pruned announces.
		if pruned > 0 {
			s.changed(ctx, models.StreamCursors)
		}
	}
	return entries, nil
}

// SweepCursors prunes expired cursors every interval until ctx is done.
// Key expiry itself produces no change notice.
func (s *RedisStore) SweepCursors(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Errors resurface on the next tick.
			_, _ = s.CursorEntries(ctx)
		}
	}
}

// CountCursors returns the number of live cursors.
func (s *RedisStore) CountCursors(ctx context.Context) (int64, error) {
	entries, err := s.CursorEntries(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(entries)), nil
}

// Snapshot loads the full current state of a stream.
func (s *RedisStore) Snapshot(ctx context.Context, stream string) (*models.Snapshot, error) {
	var (
		entries []models.SnapshotEntry
		err     error
	)
	switch stream {
	case models.StreamMessages:
		entries, err = s.MessageEntries(ctx)
	case models.StreamCursors:
		entries, err = s.CursorEntries(ctx)
	default:
		return nil, fmt.Errorf("unknown stream %q", stream)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", stream, err)
	}

	return &models.Snapshot{
		Type:      "snapshot",
		Stream:    stream,
		Entries:   entries,
		Timestamp: s.now().UnixMilli(),
	}, nil
}

// wordRegex matches word characters for search indexing.
var wordRegex = regexp.MustCompile(`\w+`)

// Tokenize splits text into lower-case search words of three or more characters.
func Tokenize(text string) []string {
	words := wordRegex.FindAllString(strings.ToLower(text), -1)
	seen := make(map[string]bool)
	out := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) < 3 || seen[word] {
			continue
		}
		seen[word] = true
		out = append(out, word)
	}
	return out
}

// IndexMessage indexes a note for search.
func (s *RedisStore) IndexMessage(ctx context.Context, id string, msg *models.Message) error {
	words := Tokenize(msg.Text)
	if len(words) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, word := range words {
		key := searchWordKey(word)
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(msg.CreatedAt), Member: id})
		pipe.Expire(ctx, key, searchTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// SearchMessages returns notes containing every token, newest first.
// Notes deleted since indexing are skipped.
func (s *RedisStore) SearchMessages(ctx context.Context, tokens []string, limit int, after int64) ([]models.SnapshotEntry, error) {
	if len(tokens) == 0 || limit <= 0 {
		return []models.SnapshotEntry{}, nil
	}

	keys := make([]string, len(tokens))
	for i, t := range tokens {
		keys[i] = searchWordKey(t)
	}

	minScore := "-inf"
	if after > 0 {
		minScore = fmt.Sprintf("(%d", after) // exclusive
	}
	rangeBy := &redis.ZRangeBy{
		Min:   minScore,
		Max:   "+inf",
		Count: int64(limit * 3), // Fetch extra for filtering
	}

	var (
		ids []string
		err error
	)
	if len(keys) == 1 {
		ids, err = s.client.ZRevRangeByScore(ctx, keys[0], rangeBy).Result()
	} else {
		tempKey := fmt.Sprintf("search:temp:%d", time.Now().UnixNano())
		if err := s.client.ZInterStore(ctx, tempKey, &redis.ZStore{
			Keys:      keys,
			Aggregate: "MIN",
		}).Err(); err != nil {
			return nil, err
		}
		ids, err = s.client.ZRevRangeByScore(ctx, tempKey, rangeBy).Result()
		s.client.Del(ctx, tempKey)
	}
	if err != nil {
		return nil, err
	}

	entries, err := s.messageEntries(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// nonceKey returns the key for nonce tracking.
func nonceKey(userID, nonce string) string {
	return fmt.Sprintf("nonce:%s:%s", userID, nonce)
}

// IsNonceUsed checks if a nonce has been used.
func (s *RedisStore) IsNonceUsed(ctx context.Context, userID, nonce string) bool {
	exists, _ := s.client.Exists(ctx, nonceKey(userID, nonce)).Result()
	return exists > 0
}

// MarkNonceUsed marks a nonce as used with a TTL.
func (s *RedisStore) MarkNonceUsed(ctx context.Context, userID, nonce string, ttl time.Duration) {
	s.client.Set(ctx, nonceKey(userID, nonce), "1", ttl)
}
