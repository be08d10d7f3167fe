package card

import "strings"

// 使用英制里程的国家代码（ISO 3166-1 alpha-2）
var imperialUnitCountries = map[string]bool{"US": true, "LR": true, "MM": true}

// ChooseUnit：距离单位选择
// 规则：显式参数总是优先；无显式参数时按请求推断的国家取单位；兜底为 km
func ChooseUnit(explicit, countryCode string) string {
	switch strings.ToLower(strings.TrimSpace(explicit)) {
	case "km":
		return "km"
	case "mi":
		return "mi"
	}
	if imperialUnitCountries[strings.ToUpper(countryCode)] {
		return "mi"
	}
	return "km"
}
