package reports

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"card-api/internal/logger"
	"card-api/internal/model"
)

// 合并时自由文本使用的合成键
const TextKey = "_text"

// ReportSummary：单条报告对目标主题的原始贡献
// 约束：Answers 仅含命中 <map>.<topic>. 前缀、且已剥去前缀的键；
// 不受后续合并覆盖影响——它反映这条报告自己说了什么
type ReportSummary struct {
	ID        string
	Effective time.Time
	Text      string
	Answers   map[string]any
}

// Engine：按时效优先规则把报告切片折叠成合并答案
type Engine struct {
	Store Store
}

// GetAnswersAndReports：取位置/时间窗内的报告并折叠
// 规则：报告按最新在前处理；每个键首写即胜，因此整体上最近的非空值胜出；
// 合成键 _text 绑定报告自由文本，参与同一套首写规则；
// 摘要列表保持输入（时效降序）顺序，且包含无任何命中键的报告
func (e *Engine) GetAnswersAndReports(ctx context.Context, mapID, topicID string, loc model.LatLng, windowMinutes int) (map[string]any, map[string]time.Time, []ReportSummary, error) {
	rs, err := e.Store.QueryReportsNear(ctx, loc, windowMinutes)
	if err != nil {
		return nil, nil, nil, err
	}
	answers, times, summaries := Merge(rs, mapID, topicID)
	return answers, times, summaries, nil
}

// Merge：对已按时效降序排列的报告切片执行折叠；纯函数
func Merge(rs []model.CrowdReport, mapID, topicID string) (map[string]any, map[string]time.Time, []ReportSummary) {
	prefix := mapID + "." + topicID + "."
	answers := map[string]any{}
	times := map[string]time.Time{}
	summaries := make([]ReportSummary, 0, len(rs))
	for _, r := range rs {
		extracted := map[string]any{}
		if r.AnswersJSON != "" {
			var raw map[string]any
			if err := json.Unmarshal([]byte(r.AnswersJSON), &raw); err != nil {
				logger.L().Debug("report_answers_decode_error", "id", r.ID, "err", err)
			}
			for k, v := range raw {
				if strings.HasPrefix(k, prefix) {
					extracted[strings.TrimPrefix(k, prefix)] = v
				}
			}
		}
		record := func(key string, v any) {
			if emptyAnswer(v) {
				return
			}
			if _, seen := answers[key]; seen {
				return
			}
			answers[key] = v
			times[key] = r.Effective
		}
		for k, v := range extracted {
			record(k, v)
		}
		record(TextKey, r.Text)
		summaries = append(summaries, ReportSummary{
			ID:        r.ID,
			Effective: r.Effective,
			Text:      r.Text,
			Answers:   extracted,
		})
	}
	return answers, times, summaries
}

// emptyAnswer：空值不参与合并（nil、空串、零值数字、false）
func emptyAnswer(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case float64:
		return x == 0
	case bool:
		return !x
	}
	return false
}
