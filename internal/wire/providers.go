// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"
	"os"

	"catalog-search-api/internal/application/search"
	"catalog-search-api/internal/config"
	"catalog-search-api/internal/domain/entity"
	"catalog-search-api/internal/infrastructure/messaging"
	"catalog-search-api/internal/infrastructure/persistence/elasticsearch"
	"catalog-search-api/internal/infrastructure/persistence/postgres"
	"catalog-search-api/internal/infrastructure/persistence/redis"
	"catalog-search-api/internal/interfaces/grpc/server"
	"catalog-search-api/internal/interfaces/http/handler"
	"catalog-search-api/internal/interfaces/http/middleware"
	"catalog-search-api/pkg/logger"
)

// Worker 索引 worker 的依赖容器
type Worker struct {
	Postgres      *postgres.Client
	Elasticsearch *elasticsearch.Client
	Cache         *redis.Cache
	Indexer       *search.Indexer
	Names         search.IndexNames
	Consumer      *messaging.Consumer
	Health        *server.HealthServer
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideElasticsearchClient 提供索引客户端；未启用或配置错误时返回 nil，搜索全部走数据库
func ProvideElasticsearchClient(ctx context.Context, cfg *config.Config) *elasticsearch.Client {
	if !cfg.Search.Elasticsearch.Enabled {
		logger.Info(ctx, "elasticsearch disabled, searches use the database")
		return nil
	}
	client, err := elasticsearch.NewClient(&cfg.Search.Elasticsearch)
	if err != nil {
		logger.Warn(ctx, "elasticsearch not available, searches use the database", "error", err.Error())
		return nil
	}
	return client
}

// ProvideIndexBackend 避免把 nil 指针包装成非 nil 接口
func ProvideIndexBackend(client *elasticsearch.Client) search.IndexBackend {
	if client == nil {
		return nil
	}
	return client
}

// ProvideIndexNames 提供索引命名
func ProvideIndexNames(cfg *config.Config) search.IndexNames {
	return search.NewIndexNames(cfg.Search.Elasticsearch.IndexPrefix)
}

// ProvideProber 提供可用性探测器
func ProvideProber(backend search.IndexBackend, cfg *config.Config) *search.Prober {
	es := cfg.Search.Elasticsearch
	return search.NewProber(backend, search.ProberConfig{
		Timeout:    es.ProbeTimeout,
		TTL:        es.ProbeTTL,
		FailureTTL: es.ProbeFailureTTL,
	})
}

// ProvideEngine 提供搜索引擎
func ProvideEngine(backend search.IndexBackend, prober *search.Prober, catalog *postgres.CatalogRepository, names search.IndexNames, cfg *config.Config) *search.Engine {
	return search.NewEngine(backend, prober, catalog, names, search.Options{
		SubSearchTimeout:             cfg.Search.SubSearchTimeout,
		AdvancedFallbackOnIndexError: cfg.Features.AdvancedSearch.FallbackOnIndexError,
	})
}

// ProvideNormalizer 提供请求规范化器
func ProvideNormalizer(cfg *config.Config) *search.Normalizer {
	return search.NewNormalizer(search.Limits{
		DefaultLimit:        cfg.Search.DefaultLimit,
		MaxLimit:            cfg.Search.MaxLimit,
		MaxQueryLength:      cfg.Search.MaxQueryLength,
		SuggestDefaultLimit: cfg.Search.SuggestDefaultLimit,
		SuggestMaxLimit:     cfg.Search.SuggestMaxLimit,
	})
}

// ProvideFacetAssembler 提供过滤元数据装配器
func ProvideFacetAssembler(vocab *postgres.VocabularyRepository, catalog *postgres.CatalogRepository, cache *redis.Cache, cfg *config.Config) *search.FacetAssembler {
	return search.NewFacetAssembler(vocab, catalog, cache, cfg.Search.FacetCacheTTL)
}

// ProvideTrending 提供热门榜
func ProvideTrending(catalog *postgres.CatalogRepository, cache *redis.Cache, cfg *config.Config) *search.Trending {
	return search.NewTrending(catalog, cache, cfg.Search.TrendingCacheTTL)
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	return messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
}

// ProvideReindexPublisher 异步重建索引关闭时返回 nil
func ProvideReindexPublisher(producer *messaging.Producer, cfg *config.Config) search.ReindexPublisher {
	if !cfg.Features.AsyncReindex.Enabled {
		return nil
	}
	return producer
}

// ProvideIndexer 提供索引写入器
func ProvideIndexer(backend search.IndexBackend, prober *search.Prober, catalog *postgres.CatalogRepository, names search.IndexNames, publisher search.ReindexPublisher) *search.Indexer {
	return search.NewIndexer(backend, prober, catalog, names, publisher)
}

// ProvideWorkerIndexer worker 只做同步写入，不再投递任务
func ProvideWorkerIndexer(backend search.IndexBackend, prober *search.Prober, catalog *postgres.CatalogRepository, names search.IndexNames) *search.Indexer {
	return search.NewIndexer(backend, prober, catalog, names, nil)
}

// ProvideSearchHandler 提供搜索处理器
func ProvideSearchHandler(normalizer *search.Normalizer, engine *search.Engine, facets *search.FacetAssembler, trending *search.Trending, indexer *search.Indexer) *handler.SearchHandler {
	return handler.NewSearchHandler(normalizer, engine, facets, trending, indexer)
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, redisClient *redis.Client, es *elasticsearch.Client) *handler.HealthHandler {
	var esChecker handler.HealthChecker
	if es != nil {
		esChecker = es
	}
	return handler.NewHealthHandler(cfg.App.Version, pg, redisClient, esChecker)
}

// ProvideRateLimiter 提供限流器
func ProvideRateLimiter(redisClient *redis.Client) middleware.RateLimiter {
	return redis.NewRateLimiter(redisClient)
}

// ProvideConsumer 提供重建索引消费者
func ProvideConsumer(redisClient *redis.Client, cfg *config.Config) *messaging.Consumer {
	rs := cfg.Messaging.RedisStream
	return messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamCatalogReindex,
		Group:         messaging.IndexWorkerGroup(rs.ConsumerGroupPrefix),
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  rs.BlockTimeout,
		ClaimInterval: rs.ClaimInterval,
		RetryLimit:    rs.RetryLimit,
		Backoff:       messaging.BackoffFromConfig(rs.RetryBackoff),
	})
}

// ProvideWorkerHealth 提供 worker 的 gRPC 健康检查服务；索引后端为必需依赖
func ProvideWorkerHealth(cfg *config.Config, pg *postgres.Client, redisClient *redis.Client, es *elasticsearch.Client) *server.HealthServer {
	checks := map[string]server.HealthChecker{
		"postgres": pg,
		"redis":    redisClient,
	}
	if es != nil {
		checks["elasticsearch"] = es
	}
	return server.NewHealthServer(cfg.Server.GRPC, checks, 0)
}

// AllIndexNames 返回全部具体类型的索引名
func AllIndexNames(names search.IndexNames) []string {
	return names.ForAll(entity.ConcreteTypes())
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
