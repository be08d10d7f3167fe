// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"card-api/internal/card"
	"card-api/internal/geo"
	"card-api/internal/geoip"
	"card-api/internal/logger"
	"card-api/internal/metrics"
	"card-api/internal/model"
	"card-api/internal/reports"
)

// 半径与数量的缺省上界
const (
	defaultRadiusMeters = 100000
	defaultMaxCount     = 500
)

// 报告时间窗（分钟）的缺省值：一周
const defaultReportWindowMinutes = 7 * 24 * 60

// Deps：路由依赖集合
// 约束：MapRoot 为只读配置快照；Engine 与 GeoIP 可为 nil（对应能力整体退化）
type Deps struct {
	Pipeline *card.Pipeline
	Engine   *reports.Engine
	MapRoot  *model.MapRoot
	MapLabel string
	RootURL  string
	GeoIP    *geoip.Resolver
}

// 解析访问者 IP：优先常见反向代理头，兜底 RemoteAddr；用于国家推断
func getClientIP(r *http.Request) string {
	h := r.Header
	if x := h.Get("x-forwarded-for"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	if x := h.Get("x-real-ip"); x != "" {
		return x
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到前缀下
func BuildRoutes(d Deps) *http.ServeMux {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/card", func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		metrics.CardRequestsTotal.Inc()
		d.handleCard(w, r)
		metrics.CardRequestDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	})
	return apiMux
}

// handleCard：一次卡片计算
// 流程：定位主题 -> 图层扇出抓取 -> 答案投影 -> 距离标注与过滤 -> 详情补全 ->
// 归因提升 -> 单位选择 -> GeoJSON 输出；所有子步骤的失败都已在下层折叠为空结果
func (d *Deps) handleCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err == nil {
			for k, vs := range r.Form {
				if q.Get(k) == "" && len(vs) > 0 {
					q.Set(k, vs[0])
				}
			}
		}
	}
	m := d.MapRoot
	byLabel := false
	switch {
	case q.Get("label") != "":
		if q.Get("label") != d.MapLabel {
			http.NotFound(w, r)
			return
		}
		byLabel = true
	case q.Get("map") != "":
		if q.Get("map") != m.ID {
			http.NotFound(w, r)
			return
		}
	}
	topicID := q.Get("topic")
	topic := m.TopicByID(topicID)

	center, ok := parseLatLng(q.Get("ll"))
	if !ok {
		http.Error(w, "missing or malformed ll", http.StatusBadRequest)
		return
	}
	radius := parseFloatDefault(q.Get("r"), defaultRadiusMeters)
	maxCount := parseIntDefault(q.Get("n"), defaultMaxCount)
	showDesc := q.Get("show_desc") == "1"
	showReports := q.Get("show_reports") == "1"

	rootURL := d.RootURL
	if rootURL == "" {
		rootURL = requestRootURL(r)
	}

	features := d.Pipeline.GetFeatures(r.Context(), m, m.ID, topicID, rootURL, center, radius)

	if topic != nil && topic.CrowdEnabled && d.Engine != nil {
		qids := splitQids(q.Get("qids"))
		if len(qids) == 0 {
			for _, qq := range topic.Questions {
				qids = append(qids, qq.ID)
			}
			qids = append(qids, reports.TextKey)
		}
		window := parseIntDefault(os.Getenv("REPORT_WINDOW_MINUTES"), defaultReportWindowMinutes)
		card.SetAnswersAndReportsOnFeatures(r.Context(), features, m, topicID, qids, d.Engine, window, time.Now())
	}

	geo.SetDistanceOnFeatures(features, center)
	features = geo.FilterFeatures(features, radius, maxCount)

	if d.Pipeline.Places != nil {
		d.Pipeline.Places.EnrichWithDetails(r.Context(), features)
	}
	attrs := card.GetCardLevelAttributions(features)

	if !showReports {
		for _, f := range features {
			f.Reports = nil
		}
	}

	country := r.Header.Get("X-Client-Country")
	if country == "" {
		country = d.GeoIP.Country(getClientIP(r))
	}
	unit := card.ChooseUnit(q.Get("unit"), country)

	out := card.GetGeoJson(features, showDesc)
	props := &card.CardProperties{Unit: unit, HTMLAttrs: attrs}
	if topic != nil {
		props.Topic = &card.TopicInfo{ID: topic.ID, Title: topic.Title}
	}
	if byLabel && topic != nil {
		u := mapLink(rootURL, d.MapLabel, topic, features)
		props.MapURL = &u
	}
	out.Properties = props

	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		logger.L().Debug("card_encode_error", "err", err)
	}
}

// mapLink：标签寻址时回链到交互地图，限定在主题图层并带上要素范围框
func mapLink(rootURL, label string, topic *model.Topic, features []*model.Feature) string {
	u := strings.TrimSuffix(rootURL, "/") + "/" + label +
		"?layers=" + strings.Join(topic.LayerIDs, ",")
	if box := llbox(features); box != "" {
		u += "&llbox=" + box
	}
	return u
}

// llbox：有位置要素的边界框 n,s,e,w，每边向外扩 40% 的跨度
func llbox(features []*model.Feature) string {
	first := true
	var n, e, s, wst float64
	for _, f := range features {
		if f.Location == nil {
			continue
		}
		lat, lng := f.Location.Lat, f.Location.Lng
		if first {
			n, s, e, wst = lat, lat, lng, lng
			first = false
			continue
		}
		if lat > n {
			n = lat
		}
		if lat < s {
			s = lat
		}
		if lng > e {
			e = lng
		}
		if lng < wst {
			wst = lng
		}
	}
	if first {
		return ""
	}
	padLat := (n - s) * 0.4
	padLng := (e - wst) * 0.4
	return fmt.Sprintf("%.1f,%.1f,%.1f,%.1f", n+padLat, s-padLat, e+padLng, wst-padLng)
}

func parseLatLng(s string) (model.LatLng, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return model.LatLng{}, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return model.LatLng{}, false
	}
	return model.LatLng{Lat: lat, Lng: lng}, true
}

func parseFloatDefault(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && v > 0 {
		return v
	}
	return def
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

func splitQids(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// requestRootURL：从请求推导服务根地址（显式配置缺失时的兜底）
func requestRootURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("x-forwarded-proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
