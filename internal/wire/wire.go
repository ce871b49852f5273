//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"catalog-search-api/internal/config"
	"catalog-search-api/internal/infrastructure/persistence/postgres"
	"catalog-search-api/internal/infrastructure/persistence/redis"
	"catalog-search-api/internal/interfaces/http/router"
)

// InitializeApp 初始化搜索 API（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		PostgresSet,
		RedisSet,
		SearchSet,
		MessagingSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeWorker 初始化索引 worker
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		PostgresSet,
		RedisSet,
		SearchSet,
		ProvideWorkerIndexer,
		ProvideConsumer,
		ProvideWorkerHealth,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewCatalogRepository,
	postgres.NewVocabularyRepository,
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
)

// SearchSet 搜索应用层提供者集合
var SearchSet = wire.NewSet(
	ProvideElasticsearchClient,
	ProvideIndexBackend,
	ProvideIndexNames,
	ProvideProber,
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
	ProvideReindexPublisher,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideEngine,
	ProvideNormalizer,
	ProvideFacetAssembler,
	ProvideTrending,
	ProvideIndexer,
	ProvideSearchHandler,
	ProvideHealthHandler,
	ProvideRateLimiter,
	router.New,
)
