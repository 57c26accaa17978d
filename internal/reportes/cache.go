package reportes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache guarda resultados de reportes en Redis con un TTL corto. La clave
// es el tipo de reporte más el hash de sus parámetros normalizados. Con
// cliente nil todas las operaciones son no-op.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) clave(tipo string, params interface{}) string {
	normalizado, _ := json.Marshal(params)
	suma := sha256.Sum256(normalizado)
	return "reporte:" + tipo + ":" + hex.EncodeToString(suma[:])
}

// Obtener busca un resultado cacheado y lo deserializa en dest.
func (c *Cache) Obtener(ctx context.Context, tipo string, params, dest interface{}) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	crudo, err := c.rdb.Get(ctx, c.clave(tipo, params)).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(crudo), dest); err != nil {
		slog.Warn("Entrada de caché corrupta, se ignora", "tipo", tipo, "error", err)
		return false
	}
	return true
}

// Guardar serializa el resultado y lo cachea. Los errores solo se loguean:
// el caché nunca interrumpe un reporte.
func (c *Cache) Guardar(ctx context.Context, tipo string, params, valor interface{}) {
	if c == nil || c.rdb == nil {
		return
	}
	crudo, err := json.Marshal(valor)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.clave(tipo, params), crudo, c.ttl).Err(); err != nil {
		slog.Warn("No se pudo guardar en el caché de reportes", "tipo", tipo, "error", err)
	}
}

// Limpiar borra todas las entradas de reportes.
func (c *Cache) Limpiar(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	iter := c.rdb.Scan(ctx, 0, "reporte:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
