// 包 geoip：请求国家推断
// 背景：距离单位在无显式参数时按访问者国家选择；用本地 GeoLite2 国家库离线解析，
// 不引入在线定位依赖；库文件缺失时整体退化为无国家信息
package geoip

import (
	"net"
	"os"

	"card-api/internal/logger"

	"github.com/oschwald/geoip2-golang"
)

// Resolver：GeoLite2 国家库的只读句柄
type Resolver struct {
	db *geoip2.Reader
}

// OpenFromEnv：按 GEOIP_DB_PATH 打开国家库；未配置或打开失败返回 nil
func OpenFromEnv() *Resolver {
	path := os.Getenv("GEOIP_DB_PATH")
	if path == "" {
		return nil
	}
	db, err := geoip2.Open(path)
	if err != nil {
		logger.L().Error("geoip_open_error", "path", path, "err", err)
		return nil
	}
	logger.L().Info("geoip_ready", "path", path)
	return &Resolver{db: db}
}

// Country：解析 IP 文本为 ISO 3166-1 alpha-2 国家码；解析失败返回空串
func (r *Resolver) Country(ip string) string {
	if r == nil || r.db == nil {
		return ""
	}
	p := net.ParseIP(ip)
	if p == nil {
		return ""
	}
	rec, err := r.db.Country(p)
	if err != nil {
		return ""
	}
	return rec.Country.IsoCode
}

// Close：释放库文件句柄
func (r *Resolver) Close() {
	if r != nil && r.db != nil {
		_ = r.db.Close()
	}
}
