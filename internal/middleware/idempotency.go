package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const IdempotencyHeader = "Idempotency-Key"

// Idempotency rejects a replayed money-moving request carrying an
// Idempotency-Key the same caller already used within ttl. Keys of requests
// that ended in a server error are released so the client can retry.
func Idempotency(client *redis.Client, ttl time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" || client == nil {
				next.ServeHTTP(w, r)
				return
			}

			var userID int64
			if p, ok := PrincipalFromContext(r.Context()); ok {
				userID = p.UserID
			}
			redisKey := IdempotencyKey(userID, key)

			fresh, err := client.SetNX(r.Context(), redisKey, "processing", ttl).Result()
			if err != nil {
				logger.Warn("idempotency check unavailable", zap.String("key", redisKey), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !fresh {
				writeError(w, "Duplicate request: Idempotency-Key already used", http.StatusConflict)
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if ww.Status() >= http.StatusInternalServerError {
				if err := client.Del(r.Context(), redisKey).Err(); err != nil {
					logger.Warn("failed to release idempotency key", zap.String("key", redisKey), zap.Error(err))
				}
			}
		})
	}
}

func IdempotencyKey(userID int64, key string) string {
	return fmt.Sprintf("idempotency:%d:%s", userID, key)
}
