package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"catalog-search-api/internal/config"
	"catalog-search-api/internal/domain/entity"
	"catalog-search-api/internal/wire"
	"catalog-search-api/pkg/logger"
)

func main() {
	backfill := flag.Bool("backfill", false, "index every catalog row after creating indices")
	batchSize := flag.Int("batch-size", 200, "rows per backfill batch")
	flag.Parse()

	_ = godotenv.Load()

	fmt.Println("Starting catalog bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx := context.Background()

	// 2. 初始化依赖
	w, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize dependencies: %v", err)
	}
	defer cleanup()

	// 3. 迁移数据库结构
	fmt.Println("Migrating catalog schema...")
	if err := w.Postgres.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	// 4. 创建索引
	if w.Elasticsearch == nil {
		fmt.Println("Elasticsearch disabled or unreachable, skipping index setup.")
		fmt.Println("Bootstrap completed successfully.")
		return
	}
	names := wire.AllIndexNames(w.Names)
	fmt.Printf("Ensuring indices %v...\n", names)
	if err := w.Elasticsearch.EnsureIndices(ctx, names); err != nil {
		log.Fatalf("failed to ensure indices: %v", err)
	}

	// 5. 回填索引
	if *backfill {
		for _, t := range entity.ConcreteTypes() {
			res, err := w.Indexer.Backfill(ctx, t, *batchSize)
			if err != nil {
				log.Fatalf("failed to backfill %s: %v", t, err)
			}
			fmt.Printf("Backfilled %s: %d indexed, %d failed\n", t, res.Indexed, res.Failed)
		}
	}

	fmt.Println("Bootstrap completed successfully.")
}
