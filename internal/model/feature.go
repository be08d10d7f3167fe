// 包 model：卡片领域的值对象定义，包括点要素、经纬度与地图配置；不承载任何网络或存储逻辑
package model

import "fmt"

// LatLng：WGS84 经纬度对
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// 图层类型标签：要素来源标识，随要素贯穿整个流水线
const (
	LayerTypeKML         = "KML"
	LayerTypeGeoRSS      = "GEORSS"
	LayerTypeCSV         = "CSV"
	LayerTypeSpreadsheet = "GOOGLE_SPREADSHEET"
	LayerTypeGeoJSON     = "GEOJSON"
	LayerTypeMapsEngine  = "GOOGLE_MAPS_ENGINE_LITE_OR_PRO"
	LayerTypePlaces      = "GOOGLE_PLACES"
)

// ReportView：挂在要素上的单条报告渲染结果
// 背景：合并引擎输出的原始报告摘要经过投影渲染后才对外展示；相对时间在投影时一次性格式化
type ReportView struct {
	ID            string  `json:"id"`
	Effective     string  `json:"effective"`
	AgeMinutes    int     `json:"age_minutes"`
	Text          string  `json:"text"`
	AnswerSummary string  `json:"answer_summary"`
	StatusColor   *string `json:"status_color"`
}

// Feature：一个兴趣点
// 约束：Name 必填；Location 可缺失（此时距离保持未定义，排序时落到末尾）；
// Distance 为米制权威值，km/mi 由其派生；HTMLAttrs 在提升为卡片级归因后置 nil
type Feature struct {
	Name            string
	DescriptionHTML string
	Location        *LatLng
	LayerID         string
	LayerType       string
	GPlaceID        string
	HTMLAttrs       []string

	Distance   *float64
	DistanceKm float64
	DistanceMi float64

	AnswerText   string
	AnswerTime   string
	AnswerSource string
	Answers      map[string]any
	StatusColor  string
	Reports      []ReportView
}

// SetDistance：写入米制距离并派生 km/mi
func (f *Feature) SetDistance(meters float64) {
	f.Distance = &meters
	f.DistanceKm = meters / 1000
	f.DistanceMi = meters / 1609.344
}

// RoundLatLng：按四位小数输出 "lat,lng"
// 背景：作为报告查询与缓存键的位置部分，避免浮点精度差异导致的键漂移
func RoundLatLng(p LatLng) string {
	return fmt.Sprintf("%.4f,%.4f", p.Lat, p.Lng)
}
