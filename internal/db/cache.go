package db

import (
	"context"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"pg-ai-query/internal/metrics"
	"pg-ai-query/pkg/models"
)

const (
	defaultCacheSize = 256
	defaultCacheTTL  = 5 * time.Minute
	tablesKey        = "tables"
)

// cacheEntry 저장 시각과 함께 보관
type cacheEntry struct {
	tables   []models.TableInfo
	details  *models.TableDetails
	storedAt time.Time
}

// CachedCatalog 메타데이터 조회를 LRU에 캐시하는 래퍼. Explain은 캐시하지 않는다.
type CachedCatalog struct {
	Catalog
	cache *lru.Cache[string, cacheEntry]
	ttl   time.Duration
	now   func() time.Time
}

// NewCachedCatalog size, ttl이 0 이하면 기본값
func NewCachedCatalog(inner Catalog, size int, ttl time.Duration) *CachedCatalog {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	cache, _ := lru.New[string, cacheEntry](size) // size > 0이면 오류 없음
	return &CachedCatalog{Catalog: inner, cache: cache, ttl: ttl, now: time.Now}
}

func (c *CachedCatalog) lookup(key string) (cacheEntry, bool) {
	entry, ok := c.cache.Get(key)
	if ok && c.now().Sub(entry.storedAt) > c.ttl {
		c.cache.Remove(key)
		ok = false
	}
	metrics.ObserveCatalogCache(ok)
	return entry, ok
}

func (c *CachedCatalog) ListTables(ctx context.Context) ([]models.TableInfo, error) {
	if entry, ok := c.lookup(tablesKey); ok {
		return copyTables(entry.tables), nil
	}
	tables, err := c.Catalog.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Add(tablesKey, cacheEntry{tables: copyTables(tables), storedAt: c.now()})
	return tables, nil
}

func (c *CachedCatalog) TableDetails(ctx context.Context, tableName, schemaName string) (*models.TableDetails, error) {
	if schemaName == "" {
		schemaName = "public"
	}
	// 따옴표로 만든 대소문자 구분 이름이 섞이지 않도록 그대로 키로 쓴다
	key := "details:" + schemaName + "." + tableName
	if entry, ok := c.lookup(key); ok {
		return copyDetails(entry.details), nil
	}
	details, err := c.Catalog.TableDetails(ctx, tableName, schemaName)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, cacheEntry{details: copyDetails(details), storedAt: c.now()})
	return details, nil
}

// Invalidate 캐시 비우기
func (c *CachedCatalog) Invalidate() {
	c.cache.Purge()
}

func copyTables(in []models.TableInfo) []models.TableInfo {
	out := make([]models.TableInfo, len(in))
	copy(out, in)
	return out
}

func copyDetails(in *models.TableDetails) *models.TableDetails {
	out := *in
	out.Columns = slices.Clone(in.Columns)
	out.Indexes = slices.Clone(in.Indexes)
	return &out
}
