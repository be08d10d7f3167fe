package card

import "card-api/internal/model"

// Geometry：GeoJSON 点几何；坐标轴序为 [lng, lat]
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// FeatureProperties：单要素的对外属性集
// 约束：description_html 在未请求描述时强制为 null，与要素是否携带描述无关
type FeatureProperties struct {
	Name            string             `json:"name"`
	DescriptionHTML *string            `json:"description_html"`
	Distance        *float64           `json:"distance"`
	DistanceKm      *float64           `json:"distance_km"`
	DistanceMi      *float64           `json:"distance_mi"`
	LayerID         *string            `json:"layer_id"`
	HTMLAttrs       []string           `json:"html_attrs"`
	AnswerText      string             `json:"answer_text"`
	AnswerTime      string             `json:"answer_time"`
	AnswerSource    string             `json:"answer_source"`
	Answers         map[string]any     `json:"answers"`
	Reports         []model.ReportView `json:"reports"`
	StatusColor     *string            `json:"status_color"`
}

// FeatureOut：GeoJSON 要素；无位置时 geometry 为 null
type FeatureOut struct {
	Type       string            `json:"type"`
	Geometry   *Geometry         `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

// TopicInfo：卡片顶层携带的主题元数据
type TopicInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// CardProperties：卡片顶层属性
// 约束：map_url 仅在请求以可读标签寻址时出现，否则为 null
type CardProperties struct {
	Topic     *TopicInfo `json:"topic,omitempty"`
	Unit      string     `json:"unit,omitempty"`
	MapURL    *string    `json:"map_url"`
	HTMLAttrs []string   `json:"html_attrs,omitempty"`
}

// FeatureCollection：卡片的最终输出结构
type FeatureCollection struct {
	Type       string          `json:"type"`
	Features   []FeatureOut    `json:"features"`
	Properties *CardProperties `json:"properties,omitempty"`
}

// GetGeoJson：把要素列表序列化为 GeoJSON 形态
func GetGeoJson(features []*model.Feature, includeDescriptions bool) *FeatureCollection {
	fc := &FeatureCollection{Type: "FeatureCollection", Features: make([]FeatureOut, 0, len(features))}
	for _, f := range features {
		var geom *Geometry
		if f.Location != nil {
			geom = &Geometry{Type: "Point", Coordinates: []float64{f.Location.Lng, f.Location.Lat}}
		}
		props := FeatureProperties{
			Name:         f.Name,
			AnswerText:   f.AnswerText,
			AnswerTime:   f.AnswerTime,
			AnswerSource: f.AnswerSource,
			Answers:      f.Answers,
			Reports:      f.Reports,
			HTMLAttrs:    f.HTMLAttrs,
		}
		if includeDescriptions {
			d := f.DescriptionHTML
			props.DescriptionHTML = &d
		}
		if f.Distance != nil {
			props.Distance = f.Distance
			km, mi := f.DistanceKm, f.DistanceMi
			props.DistanceKm = &km
			props.DistanceMi = &mi
		}
		if f.LayerID != "" {
			id := f.LayerID
			props.LayerID = &id
		}
		if f.StatusColor != "" {
			c := f.StatusColor
			props.StatusColor = &c
		}
		if props.Answers == nil {
			props.Answers = map[string]any{}
		}
		if props.Reports == nil {
			props.Reports = []model.ReportView{}
		}
		fc.Features = append(fc.Features, FeatureOut{Type: "Feature", Geometry: geom, Properties: props})
	}
	return fc
}
