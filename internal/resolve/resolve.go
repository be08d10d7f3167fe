// 包 resolve：图层来源到抓取地址的纯函数映射
// 背景：KML/GeoRSS 直连地址原样透传；表格型来源改写为转换代理调用；
// lite/pro 查看器地址替换路径段为原始 KML 导出；地点检索图层不走本包（由 places 客户端处理）
package resolve

import (
	"errors"
	"net/url"
	"strings"

	"card-api/internal/model"
)

// 转换代理的挂载路径，相对服务根地址
const kmlifyPath = "/.kmlify"

var ErrNotFetchable = errors.New("layer source has no fetch url")

// FetchURL：对来源联合的穷尽匹配，产出具体抓取地址
// 约束：查询参数用标准编码（键按字典序稳定排列，cond 可重复）；
// PlacesSource 返回 ErrNotFetchable，由调用方改走地点检索路径
func FetchURL(rootURL string, layer *model.Layer) (string, error) {
	switch s := layer.Source.(type) {
	case model.KMLSource:
		return s.URL, nil
	case model.GeoRSSSource:
		return s.URL, nil
	case model.CSVSource:
		return kmlifyURL(rootURL, "csv", s.TableSource, true), nil
	case model.SpreadsheetSource:
		t := s.TableSource
		t.URL = spreadsheetExportURL(t.URL)
		return kmlifyURL(rootURL, "csv", t, true), nil
	case model.GeoJSONSource:
		return kmlifyURL(rootURL, "geojson", s.TableSource, false), nil
	case model.MapsEngineSource:
		return mapsEngineKMLURL(s.URL), nil
	case model.PlacesSource:
		return "", ErrNotFetchable
	}
	return "", ErrNotFetchable
}

// kmlifyURL：拼装转换代理调用
// withGeometry 为 false 时省略位置/图标/颜色/热点参数（GeoJSON 自带几何）
func kmlifyURL(rootURL, typ string, t model.TableSource, withGeometry bool) string {
	q := url.Values{}
	q.Set("url", t.URL)
	q.Set("type", typ)
	if withGeometry {
		if t.LatitudeField != "" && t.LatitudeField == t.LongitudeField {
			q.Set("loc", t.LatitudeField)
		} else if t.LatitudeField != "" || t.LongitudeField != "" {
			q.Set("loc", t.LatitudeField+","+t.LongitudeField)
		}
		setIfPresent(q, "icon", t.IconURLTemplate)
		setIfPresent(q, "color", t.ColorTemplate)
		setIfPresent(q, "hotspot", t.HotspotTemplate)
	}
	setIfPresent(q, "name", t.TitleTemplate)
	setIfPresent(q, "desc", t.DescriptionTemplate)
	for _, c := range t.Conditions {
		q.Add("cond", c)
	}
	return strings.TrimSuffix(rootURL, "/") + kmlifyPath + "?" + q.Encode()
}

func setIfPresent(q url.Values, key, val string) {
	if val != "" {
		q.Set(key, val)
	}
}

// spreadsheetExportURL：把电子表格的查看地址改写为 CSV 发布导出地址
// 规则：路径最后一段替换为 pub，仅保留 key 参数并追加 output=csv，丢弃片段
func spreadsheetExportURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	path := u.Path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[:i+1] + "pub"
	}
	q := url.Values{}
	if key := u.Query().Get("key"); key != "" {
		q.Set("key", key)
	}
	q.Set("output", "csv")
	u.Path = path
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}

// mapsEngineKMLURL：查看器地址的路径最后一段替换为 kml，查询参数原样保留
func mapsEngineKMLURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	path := u.Path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[:i+1] + "kml"
	}
	u.Path = path
	return u.String()
}
