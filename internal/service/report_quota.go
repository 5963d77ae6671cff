package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"client-vetting/internal/domain"
)

// ErrQuotaExceeded se devuelve cuando un usuario free agota sus reportes del mes.
var ErrQuotaExceeded = errors.New("monthly vetting report quota exceeded")

const redisQuotaIncrScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

const redisQuotaReleaseScript = `
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current > 0 then
  return redis.call("DECR", KEYS[1])
end
return 0
`

// ReportQuota cuenta reportes por usuario dentro del mes calendario (UTC).
// Release devuelve un cupo consumido por Allow cuando el reporte no llego a generarse.
type ReportQuota interface {
	Allow(ctx context.Context, key string) bool
	Release(ctx context.Context, key string)
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisReportQuota struct {
	client redisEvaler
	limit  int
	prefix string
	now    func() time.Time
}

// NewRedisReportQuota devuelve nil si no hay cliente redis.
func NewRedisReportQuota(client *redis.Client, limit int) ReportQuota {
	if client == nil {
		return nil
	}
	if limit <= 0 {
		limit = 1
	}
	return &redisReportQuota{
		client: client,
		limit:  limit,
		prefix: "vetting:quota:",
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (q *redisReportQuota) Allow(ctx context.Context, key string) bool {
	if q == nil || q.client == nil {
		return true
	}
	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	if normalizedKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	now := q.now()
	count, err := q.client.Eval(ctx, redisQuotaIncrScript, []string{q.key(normalizedKey, now)}, secondsUntilNextMonth(now)).Int()
	if err != nil {
		return true
	}
	return count <= q.limit
}

func (q *redisReportQuota) Release(ctx context.Context, key string) {
	if q == nil || q.client == nil {
		return
	}
	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	if normalizedKey == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	// Un error deja el cupo consumido; no hay nada mas que hacer.
	_ = q.client.Eval(ctx, redisQuotaReleaseScript, []string{q.key(normalizedKey, q.now())}).Err()
}

func (q *redisReportQuota) key(normalizedKey string, now time.Time) string {
	return q.prefix + normalizedKey + ":" + now.Format("2006-01")
}

type memoryReportQuota struct {
	mu     sync.Mutex
	limit  int
	counts map[string]int
	now    func() time.Time
}

// NewMemoryReportQuota crea un contador en memoria (una sola instancia del API).
func NewMemoryReportQuota(limit int) ReportQuota {
	if limit <= 0 {
		limit = 1
	}
	return &memoryReportQuota{
		limit:  limit,
		counts: make(map[string]int),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (q *memoryReportQuota) Allow(_ context.Context, key string) bool {
	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	if normalizedKey == "" {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	month := q.now().Format("2006-01")
	bucket := normalizedKey + ":" + month
	// Los meses anteriores ya no sirven.
	for k := range q.counts {
		if !strings.HasSuffix(k, ":"+month) {
			delete(q.counts, k)
		}
	}
	if q.counts[bucket] >= q.limit {
		return false
	}
	q.counts[bucket]++
	return true
}

func (q *memoryReportQuota) Release(_ context.Context, key string) {
	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	if normalizedKey == "" {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	bucket := normalizedKey + ":" + q.now().Format("2006-01")
	if q.counts[bucket] > 0 {
		q.counts[bucket]--
	}
}

// AuthorizeReport aplica el cupo mensual solo a usuarios del plan free.
func AuthorizeReport(ctx context.Context, quota ReportQuota, userID string, tier domain.Tier) error {
	if tier.HasUnlimitedReports() || quota == nil {
		return nil
	}
	if !quota.Allow(ctx, userID) {
		return ErrQuotaExceeded
	}
	return nil
}

// ReleaseReport devuelve el cupo tomado por AuthorizeReport si la generacion fallo.
func ReleaseReport(ctx context.Context, quota ReportQuota, userID string, tier domain.Tier) {
	if tier.HasUnlimitedReports() || quota == nil {
		return
	}
	quota.Release(ctx, userID)
}

func secondsUntilNextMonth(now time.Time) int {
	next := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	seconds := int(next.Sub(now).Seconds())
	if seconds <= 0 {
		return 1
	}
	return seconds
}
