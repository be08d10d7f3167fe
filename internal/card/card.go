// 包 card：卡片计算的聚合层——主题图层扇出抓取、答案投影、归因提升与 GeoJSON 输出
package card

import (
	"context"

	"card-api/internal/fetch"
	"card-api/internal/logger"
	"card-api/internal/metrics"
	"card-api/internal/model"
	"card-api/internal/parse"
	"card-api/internal/places"
	"card-api/internal/resolve"

	"golang.org/x/sync/errgroup"
)

// Pipeline：聚合流水线的依赖集合
// 约束：请求期间只读；Places 可为 nil（未配置密钥时地点图层贡献零要素）
type Pipeline struct {
	Fetcher fetch.Fetcher
	Places  *places.Client
}

// GetFeatures：取一个主题的全部要素
// 规则：主题未知返回空；每个图层独立抓取+解析，单图层失败（网络或畸形数据）
// 只记日志并贡献零要素；图层间并发执行，但拼接顺序恒等于主题声明的图层顺序
func (p *Pipeline) GetFeatures(ctx context.Context, m *model.MapRoot, mapID, topicID, rootURL string, center model.LatLng, radiusMeters float64) []*model.Feature {
	topic := m.TopicByID(topicID)
	if topic == nil {
		logger.L().Debug("card_topic_unknown", "map", mapID, "topic", topicID)
		return nil
	}
	slots := make([][]*model.Feature, len(topic.LayerIDs))
	var g errgroup.Group
	for i, layerID := range topic.LayerIDs {
		i := i
		layer := m.LayerByID(layerID)
		if layer == nil {
			logger.L().Debug("card_layer_unknown", "layer", layerID)
			continue
		}
		g.Go(func() error {
			slots[i] = p.layerFeatures(ctx, layer, rootURL, center, radiusMeters)
			return nil
		})
	}
	_ = g.Wait()
	var out []*model.Feature
	for _, fs := range slots {
		out = append(out, fs...)
	}
	return out
}

// layerFeatures：单图层的抓取+解析；所有失败路径都折叠为空切片
func (p *Pipeline) layerFeatures(ctx context.Context, layer *model.Layer, rootURL string, center model.LatLng, radiusMeters float64) []*model.Feature {
	metrics.LayerFetchTotal.WithLabelValues(layer.Type).Inc()
	if _, ok := layer.Source.(model.PlacesSource); ok {
		if p.Places == nil {
			logger.L().Debug("card_places_disabled", "layer", layer.ID)
			return nil
		}
		return p.Places.SearchFeatures(ctx, layer, center, radiusMeters)
	}
	u, err := resolve.FetchURL(rootURL, layer)
	if err != nil {
		metrics.LayerFetchFailTotal.WithLabelValues(layer.Type).Inc()
		logger.L().Error("card_layer_resolve_error", "layer", layer.ID, "err", err)
		return nil
	}
	raw, err := p.Fetcher.Fetch(ctx, u, "")
	if err != nil {
		metrics.LayerFetchFailTotal.WithLabelValues(layer.Type).Inc()
		logger.L().Error("card_layer_fetch_error", "layer", layer.ID, "url", u, "err", err)
		return nil
	}
	fs := parse.Features(raw, layer)
	if len(fs) == 0 {
		metrics.LayerParseFailTotal.Inc()
		logger.L().Debug("card_layer_empty", "layer", layer.ID, "bytes", len(raw))
	}
	return fs
}

// GetCardLevelAttributions：把地点检索来源要素的归因提升为卡片级列表
// 规则：只扫描地点检索来源的要素；按出现顺序去重合并；
// 提升后清空这些要素自己的归因（置 nil），其他来源的要素不动
func GetCardLevelAttributions(features []*model.Feature) []string {
	var out []string
	seen := map[string]bool{}
	for _, f := range features {
		if f.LayerType != model.LayerTypePlaces {
			continue
		}
		for _, a := range f.HTMLAttrs {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
		f.HTMLAttrs = nil
	}
	return out
}
