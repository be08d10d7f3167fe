// 包 parse：多格式地理数据解析（KML / GeoRSS / Atom -> 要素列表）
// 背景：三种格式的要素载体分别是 Placemark、item、entry，字段名不同但结构同构，
// 统一用一个标记流游走器提取；任何畸形输入都按软失败处理，返回空列表
package parse

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"card-api/internal/logger"
	"card-api/internal/model"
	"card-api/internal/sanitize"
)

// 单个要素载体的同构字段集；KML 与 GeoRSS/Atom 的差异只在命名与坐标轴序
type placemarkXML struct {
	Name        string `xml:"name"`
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Summary     string `xml:"summary"`
	Content     string `xml:"content"`
	Coordinates string `xml:"Point>coordinates"` // KML：lon,lat[,alt]
	Point       string `xml:"point"`             // GeoRSS：lat lon [alt]
}

// Features：把原始字节解析为要素列表
// 约束：从不抛错——无法识别或畸形的输入返回空列表；
// layer 可为 nil（此时要素不携带图层出处与归因）
func Features(raw []byte, layer *model.Layer) []*model.Feature {
	var out []*model.Feature
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.L().Debug("parse_token_error", "err", err)
			return nil
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "Placemark", "item", "entry":
			var pm placemarkXML
			if err := dec.DecodeElement(&pm, &se); err != nil {
				logger.L().Debug("parse_element_error", "element", se.Name.Local, "err", err)
				return nil
			}
			out = append(out, pm.toFeature(layer))
		}
	}
	return out
}

// toFeature：把载体字段映射为统一要素
func (pm *placemarkXML) toFeature(layer *model.Layer) *model.Feature {
	f := &model.Feature{}
	f.Name = pm.Name
	if f.Name == "" {
		f.Name = pm.Title
	}
	desc := pm.Description
	if desc == "" {
		desc = pm.Summary
	}
	if desc == "" {
		desc = pm.Content
	}
	f.DescriptionHTML = sanitize.HTML(desc)
	if pm.Coordinates != "" {
		f.Location = parseKMLCoordinates(pm.Coordinates)
	} else if pm.Point != "" {
		f.Location = parseGeoRSSPoint(pm.Point)
	}
	f.HTMLAttrs = []string{}
	if layer != nil {
		f.LayerID = layer.ID
		f.LayerType = layer.Type
		if layer.Attribution != "" {
			f.HTMLAttrs = []string{layer.Attribution}
		}
	}
	return f
}

// parseKMLCoordinates：KML 坐标文本 "lon,lat[,alt]"，海拔忽略
func parseKMLCoordinates(s string) *model.LatLng {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) < 2 {
		return nil
	}
	lng, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	return &model.LatLng{Lat: lat, Lng: lng}
}

// parseGeoRSSPoint：GeoRSS 点文本 "lat lon [alt]"，空白分隔，轴序与 KML 相反
func parseGeoRSSPoint(s string) *model.LatLng {
	parts := strings.Fields(s)
	if len(parts) < 2 {
		return nil
	}
	lat, err1 := strconv.ParseFloat(parts[0], 64)
	lng, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	return &model.LatLng{Lat: lat, Lng: lng}
}
