package main

import (
	"flag"
	"log"
	"path/filepath"

	"reflection_sync_backend/internal/app"
	"reflection_sync_backend/internal/config"
	"reflection_sync_backend/pkg/configwatcher"
	"reflection_sync_backend/pkg/logger"
)

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	// 配置热更新：同步周期和AI配置改了即生效
	go configwatcher.WatchConfig(filepath.Join(*configDir, "config.yaml"), application.OnConfigReload)

	application.Run()
}
