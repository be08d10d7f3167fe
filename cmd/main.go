// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"card-api/internal/api"
	"card-api/internal/card"
	"card-api/internal/fetch"
	"card-api/internal/geoip"
	"card-api/internal/logger"
	"card-api/internal/metrics"
	"card-api/internal/middleware"
	"card-api/internal/model"
	"card-api/internal/places"
	"card-api/internal/reports"
	"card-api/internal/utils"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok")
	apiBase := os.Getenv("API_BASE")
	if apiBase == "" {
		apiBase = "/api"
	}
	l.Debug("config_api_base", "base", apiBase)

	// 地图配置：只读快照，启动时加载一次
	mapPath := os.Getenv("MAP_ROOT_PATH")
	if mapPath == "" {
		mapPath = filepath.Join("data", "maps", "map.json")
	}
	mapRoot, err := loadMapRoot(mapPath)
	if err != nil {
		l.Error("maproot_load_error", "path", mapPath, "err", err)
		os.Exit(1)
	}
	l.Info("maproot_load_ok", "map", mapRoot.ID, "topics", len(mapRoot.Topics), "layers", len(mapRoot.Layers))

	// 报告库：打开失败只禁用众包合并，不影响卡片主链路
	var engine *reports.Engine
	if db, err := utils.OpenPostgresFromEnv(); err != nil {
		l.Error("db_open_error", "err", err)
	} else {
		defer db.Close()
		if err := db.Ping(); err != nil {
			l.Error("db_ping_error", "err", err)
		} else if err := reports.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
		} else {
			l.Info("db_ping_ok")
			engine = &reports.Engine{Store: reports.AttachDB(db)}
		}
	}

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else if err := rc.Ping(context.Background()).Err(); err != nil {
		l.Error("redis_ping_error", "err", err)
	} else {
		l.Info("redis_ping_ok")
	}

	// 地点检索客户端：无密钥时禁用，地点图层贡献零要素
	var placesClient *places.Client
	if os.Getenv("PLACES_API_KEY") != "" {
		placesClient = places.NewClientFromEnv(places.NewCacheFromEnv(rc))
		l.Info("places_enabled")
	} else {
		l.Info("places_disabled", "reason", "no_api_key")
	}

	geoRes := geoip.OpenFromEnv()
	if geoRes == nil {
		l.Info("geoip_disabled")
	} else {
		defer geoRes.Close()
	}

	pipeline := &card.Pipeline{Fetcher: fetch.NewHTTPFetcher(), Places: placesClient}
	deps := api.Deps{
		Pipeline: pipeline,
		Engine:   engine,
		MapRoot:  mapRoot,
		MapLabel: os.Getenv("CARD_MAP_LABEL"),
		RootURL:  os.Getenv("ROOT_URL"),
		GeoIP:    geoRes,
	}

	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(deps)
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, apiMux))
	mux.Handle(apiBase+"/metrics", metrics.Handler())

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: addr, Handler: handler}
	if os.Getenv("TLS_ENABLE") == "true" {
		certPath := os.Getenv("TLS_CERT_PATH")
		keyPath := os.Getenv("TLS_KEY_PATH")
		if certPath == "" {
			certPath = filepath.Join("data", "certs", "server.crt")
		}
		if keyPath == "" {
			keyPath = filepath.Join("data", "certs", "server.key")
		}
		_ = utils.EnsureSelfSignedCert(certPath, keyPath, "card-api.local")
		l.Info("listening_tls", "addr", addr, "cert", certPath)
		_ = s.ListenAndServeTLS(certPath, keyPath)
		return
	}
	l.Info("listening", "addr", addr)
	_ = s.ListenAndServe()
}

// loadMapRoot：读取地图配置 JSON
func loadMapRoot(path string) (*model.MapRoot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m model.MapRoot
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
