package model

import (
	"encoding/json"
	"errors"
	"strconv"
)

// MapRoot：地图配置的只读根结构（外部配置库的输入快照）
type MapRoot struct {
	ID     string  `json:"id"`
	Topics []Topic `json:"topics"`
	Layers []Layer `json:"layers"`
}

// Topic：图层分组与人群问卷模式
type Topic struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	LayerIDs     []string   `json:"layer_ids"`
	CrowdEnabled bool       `json:"crowd_enabled"`
	Questions    []Question `json:"questions"`
}

// Question：问卷中的一个问题；Type 为 CHOICE 或 NUMBER
type Question struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Type    string   `json:"type"`
	Choices []Choice `json:"choices"`
}

const (
	QuestionTypeChoice = "CHOICE"
	QuestionTypeNumber = "NUMBER"
)

// Choice：CHOICE 问题的一个选项
type Choice struct {
	ID    string `json:"id"`
	Color string `json:"color"`
	Label string `json:"label"`
}

// TopicByID：按 id 查找主题；未命中返回 nil（调用方按空结果处理，不作为错误）
func (m *MapRoot) TopicByID(id string) *Topic {
	for i := range m.Topics {
		if m.Topics[i].ID == id {
			return &m.Topics[i]
		}
	}
	return nil
}

// LayerByID：按 id 查找图层；未命中返回 nil
func (m *MapRoot) LayerByID(id string) *Layer {
	for i := range m.Layers {
		if m.Layers[i].ID == id {
			return &m.Layers[i]
		}
	}
	return nil
}

// LayerSource：图层来源的封闭联合类型
// 背景：用带类型的变体取代字符串标签分支，来源解析成为对联合的穷尽匹配，
// 未知类型在反序列化阶段即被拒绝，而不是运行期静默落空
type LayerSource interface {
	layerSource()
}

// KMLSource：直接可抓取的 KML 地址
type KMLSource struct {
	URL string `json:"url"`
}

// GeoRSSSource：直接可抓取的 GeoRSS/Atom 地址
type GeoRSSSource struct {
	URL string `json:"url"`
}

// TableSource：需经转换代理改写为 KML 流的表格型来源（CSV / 电子表格 / GeoJSON 共享字段集）
// 约束：字段为不可变值语义；Conditions 保持声明顺序
type TableSource struct {
	URL                 string   `json:"url"`
	LatitudeField       string   `json:"latitude_field"`
	LongitudeField      string   `json:"longitude_field"`
	IconURLTemplate     string   `json:"icon_url_template"`
	ColorTemplate       string   `json:"color_template"`
	HotspotTemplate     string   `json:"hotspot_template"`
	TitleTemplate       string   `json:"title_template"`
	DescriptionTemplate string   `json:"description_template"`
	Conditions          []string `json:"-"`
}

// CSVSource / SpreadsheetSource / GeoJSONSource：三种表格型来源各自独立成型，
// 以便解析与 URL 构造按变体穷尽匹配
type CSVSource struct{ TableSource }
type SpreadsheetSource struct{ TableSource }
type GeoJSONSource struct{ TableSource }

// MapsEngineSource：lite/pro 查看器地址，抓取前需改写为原始 KML 导出路径
type MapsEngineSource struct {
	URL string `json:"url"`
}

// PlacesSource：地点检索参数
type PlacesSource struct {
	Types string `json:"types"`
}

func (KMLSource) layerSource()         {}
func (GeoRSSSource) layerSource()      {}
func (CSVSource) layerSource()         {}
func (SpreadsheetSource) layerSource() {}
func (GeoJSONSource) layerSource()     {}
func (MapsEngineSource) layerSource()  {}
func (PlacesSource) layerSource()      {}

// Layer：命名的地理数据来源
type Layer struct {
	ID          string
	Type        string
	Attribution string
	Source      LayerSource
}

// 原始配置中图层的线格式：{"type": "...", "source": {"kml": {...}}}
type layerJSON struct {
	ID          string                     `json:"id"`
	Type        string                     `json:"type"`
	Attribution string                     `json:"attribution"`
	Source      map[string]json.RawMessage `json:"source"`
}

var errUnknownLayerType = errors.New("unknown layer type")

// UnmarshalJSON：把外部配置的字符串标签形态解码为封闭联合
// 约束：未知 type 返回错误而不是保留半成品图层；表格型来源的 conditionN 字段按序收集
func (l *Layer) UnmarshalJSON(b []byte) error {
	var raw layerJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	l.ID = raw.ID
	l.Type = raw.Type
	l.Attribution = raw.Attribution
	pick := func(keys ...string) json.RawMessage {
		for _, k := range keys {
			if v, ok := raw.Source[k]; ok {
				return v
			}
		}
		return nil
	}
	switch raw.Type {
	case LayerTypeKML:
		var s KMLSource
		if v := pick("kml"); v != nil {
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
		}
		l.Source = s
	case LayerTypeGeoRSS:
		var s GeoRSSSource
		if v := pick("georss"); v != nil {
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
		}
		l.Source = s
	case LayerTypeCSV:
		var t TableSource
		if err := decodeTable(pick("csv"), &t); err != nil {
			return err
		}
		l.Source = CSVSource{t}
	case LayerTypeSpreadsheet:
		var t TableSource
		if err := decodeTable(pick("google_spreadsheet"), &t); err != nil {
			return err
		}
		l.Source = SpreadsheetSource{t}
	case LayerTypeGeoJSON:
		var t TableSource
		if err := decodeTable(pick("geojson"), &t); err != nil {
			return err
		}
		l.Source = GeoJSONSource{t}
	case LayerTypeMapsEngine:
		var s MapsEngineSource
		if v := pick("kml", "google_maps_engine_lite_or_pro"); v != nil {
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
		}
		l.Source = s
	case LayerTypePlaces:
		var s PlacesSource
		if v := pick("google_places"); v != nil {
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
		}
		l.Source = s
	default:
		return errUnknownLayerType
	}
	return nil
}

// decodeTable：解码表格型来源并按 condition0..conditionN 顺序收集过滤条件
func decodeTable(v json.RawMessage, t *TableSource) error {
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(v, t); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(v, &all); err != nil {
		return err
	}
	for i := 0; ; i++ {
		c, ok := all["condition"+strconv.Itoa(i)].(string)
		if !ok || c == "" {
			break
		}
		t.Conditions = append(t.Conditions, c)
	}
	return nil
}
