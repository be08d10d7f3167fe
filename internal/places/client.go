package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"card-api/internal/logger"
	"card-api/internal/metrics"
	"card-api/internal/model"
	"card-api/internal/sanitize"
)

// 缺省接口前缀；测试与私有代理场景可通过 PLACES_BASE_URL 覆盖
const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// 文档注释：附近检索响应结构
// 背景：对齐地点 API 的返回字段，仅解析本方案需要的名称/位置/街区描述与归因；
// status 用于错误判定，非 OK（含 ZERO_RESULTS）一律按零结果降级。
type searchResponse struct {
	Status           string   `json:"status"`
	HTMLAttributions []string `json:"html_attributions"`
	Results          []struct {
		PlaceID  string `json:"place_id"`
		Vicinity string `json:"vicinity"`
		Name     string `json:"name"`
		Geometry struct {
			Location model.LatLng `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// 文档注释：地点详情响应结构
type detailsResponse struct {
	Status           string   `json:"status"`
	HTMLAttributions []string `json:"html_attributions"`
	Result           struct {
		FormattedAddress     string `json:"formatted_address"`
		FormattedPhoneNumber string `json:"formatted_phone_number"`
	} `json:"result"`
}

// Client：地点检索/详情客户端
// 约束：密钥来自配置，请求内只读；检索结果经 Cache 以(图层,中心,半径)为键共享
type Client struct {
	Key     string
	BaseURL string
	HTTP    *http.Client
	Cache   *Cache
}

// NewClientFromEnv：按环境变量构造客户端（PLACES_API_KEY / PLACES_BASE_URL）
func NewClientFromEnv(cache *Cache) *Client {
	base := os.Getenv("PLACES_BASE_URL")
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		Key:     os.Getenv("PLACES_API_KEY"),
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
		Cache:   cache,
	}
}

var errMissingKey = errors.New("missing places api key")

// SearchFeatures：对地点检索图层发起附近检索并映射为要素列表
// 约束：任何失败（HTTP、解析、非 OK 状态）都降级为空列表，不向上抛错；
// 同一(图层,中心,半径)的重复调用命中缓存，不再发起网络请求
func (c *Client) SearchFeatures(ctx context.Context, layer *model.Layer, center model.LatLng, radiusMeters float64) []*model.Feature {
	src, ok := layer.Source.(model.PlacesSource)
	if !ok {
		return nil
	}
	if c.Key == "" {
		logger.L().Error("places_search_error", "err", errMissingKey)
		return nil
	}
	q := url.Values{}
	q.Set("location", fmt.Sprintf("%v,%v", center.Lat, center.Lng))
	q.Set("rankby", "prominence")
	q.Set("radius", fmt.Sprintf("%v", radiusMeters))
	q.Set("types", src.Types)
	q.Set("key", c.Key)
	reqURL := c.BaseURL + "/nearbysearch/json?" + q.Encode()
	cacheKey := "places:" + layer.ID + ":" + src.Types + ":" +
		model.RoundLatLng(center) + ":" + fmt.Sprintf("%v", radiusMeters)
	body, err := c.Cache.GetOrFetch(ctx, cacheKey, func() ([]byte, error) {
		return c.get(ctx, reqURL)
	})
	if err != nil {
		logger.L().Error("places_search_error", "layer", layer.ID, "err", err)
		return nil
	}
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		logger.L().Error("places_decode_error", "layer", layer.ID, "err", err)
		return nil
	}
	if resp.Status != "OK" {
		logger.L().Debug("places_search_empty", "layer", layer.ID, "status", resp.Status)
		return nil
	}
	out := make([]*model.Feature, 0, len(resp.Results))
	for _, r := range resp.Results {
		loc := r.Geometry.Location
		out = append(out, &model.Feature{
			Name:            r.Name,
			DescriptionHTML: sanitize.HTML(r.Vicinity),
			Location:        &model.LatLng{Lat: loc.Lat, Lng: loc.Lng},
			LayerID:         layer.ID,
			LayerType:       model.LayerTypePlaces,
			GPlaceID:        r.PlaceID,
			HTMLAttrs:       []string{},
		})
	}
	return out
}

// EnrichWithDetails：对携带 place id 的要素逐个拉取详情并覆盖描述与归因
// 约束：逐要素独立扇出，单个失败只影响自身（保留原描述/归因），不阻塞其他要素
func (c *Client) EnrichWithDetails(ctx context.Context, features []*model.Feature) {
	var wg sync.WaitGroup
	for _, f := range features {
		if f.GPlaceID == "" {
			continue
		}
		wg.Add(1)
		go func(f *model.Feature) {
			defer wg.Done()
			c.setDetails(ctx, f)
		}(f)
	}
	wg.Wait()
}

func (c *Client) setDetails(ctx context.Context, f *model.Feature) {
	metrics.PlacesDetailsTotal.Inc()
	q := url.Values{}
	q.Set("placeid", f.GPlaceID)
	q.Set("key", c.Key)
	body, err := c.get(ctx, c.BaseURL+"/details/json?"+q.Encode())
	if err != nil {
		metrics.PlacesDetailsFailTotal.Inc()
		logger.L().Debug("places_details_error", "place_id", f.GPlaceID, "err", err)
		return
	}
	var resp detailsResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Status != "OK" {
		metrics.PlacesDetailsFailTotal.Inc()
		logger.L().Debug("places_details_empty", "place_id", f.GPlaceID, "status", resp.Status)
		return
	}
	f.DescriptionHTML = "<div>" + html.EscapeString(resp.Result.FormattedAddress) + "</div>" +
		"<div>" + html.EscapeString(resp.Result.FormattedPhoneNumber) + "</div>"
	f.HTMLAttrs = resp.HTMLAttributions
}

// get：一次 REST 调用，带指标与调试日志
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	t0 := time.Now()
	metrics.PlacesRequestsTotal.Inc()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		metrics.PlacesFailTotal.Inc()
		return nil, err
	}
	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		metrics.PlacesFailTotal.Inc()
		return nil, err
	}
	defer resp.Body.Close()
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.PlacesFailTotal.Inc()
		return nil, err
	}
	metrics.PlacesDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	return buf, nil
}
