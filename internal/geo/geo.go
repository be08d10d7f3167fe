// 包 geo：球面距离与要素的距离标注、排序、半径/数量过滤
package geo

import (
	"math"
	"sort"

	"card-api/internal/model"
)

// 球面近似半径（米）；取 6378000 使四分之一经线约为 10018538 米，与既有前端展示口径一致
const earthRadiusMeters = 6378000

// EarthDistance：两点间大圆距离（米），haversine 公式
// 约束：同点返回 0；对称
func EarthDistance(p1, p2 model.LatLng) float64 {
	lat1 := p1.Lat * math.Pi / 180
	lat2 := p2.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (p2.Lng - p1.Lng) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

// SetDistanceOnFeatures：以 center 为基准为每个要素标注距离
// 约束：无位置的要素不标注，距离保持未定义
func SetDistanceOnFeatures(features []*model.Feature, center model.LatLng) {
	for _, f := range features {
		if f.Location == nil {
			continue
		}
		f.SetDistance(EarthDistance(*f.Location, center))
	}
}

// SortByDistance：按距离升序稳定排序；未标注距离的要素排在末尾
func SortByDistance(features []*model.Feature) {
	sort.SliceStable(features, func(i, j int) bool {
		return distanceOrInf(features[i]) < distanceOrInf(features[j])
	})
}

func distanceOrInf(f *model.Feature) float64 {
	if f.Distance == nil {
		return math.Inf(1)
	}
	return *f.Distance
}

// FilterFeatures：先按距离升序排序，再裁掉半径之外的要素，最后截断到给定数量
// 约束：半径过滤先于数量截断；距离未定义的要素视为在半径之外
func FilterFeatures(features []*model.Feature, maxRadiusMeters float64, maxCount int) []*model.Feature {
	SortByDistance(features)
	kept := features[:0]
	for _, f := range features {
		if distanceOrInf(f) > maxRadiusMeters {
			continue
		}
		kept = append(kept, f)
	}
	if maxCount >= 0 && len(kept) > maxCount {
		kept = kept[:maxCount]
	}
	return kept
}
