package card

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"card-api/internal/logger"
	"card-api/internal/model"
	"card-api/internal/reports"
)

// SetAnswersAndReportsOnFeatures：把众包答案与报告投影到每个要素上
// 规则：逐要素以其位置为键调用合并引擎，限定在关注的问题集合内；
// 无位置的要素跳过；报告库查询失败按该要素无答案处理，不影响其他要素
func SetAnswersAndReportsOnFeatures(ctx context.Context, features []*model.Feature, m *model.MapRoot, topicID string, questionIDs []string, engine *reports.Engine, windowMinutes int, now time.Time) {
	topic := m.TopicByID(topicID)
	if topic == nil || engine == nil {
		return
	}
	qidSet := map[string]bool{}
	for _, q := range questionIDs {
		qidSet[q] = true
	}
	for _, f := range features {
		if f.Location == nil {
			continue
		}
		answers, times, summaries, err := engine.GetAnswersAndReports(ctx, m.ID, topicID, *f.Location, windowMinutes)
		if err != nil {
			logger.L().Error("card_reports_error", "feature", f.Name, "err", err)
			continue
		}
		projectOnFeature(f, topic, qidSet, answers, times, summaries, now)
	}
}

// projectOnFeature：单个要素的答案/报告渲染
func projectOnFeature(f *model.Feature, topic *model.Topic, qidSet map[string]bool, answers map[string]any, times map[string]time.Time, summaries []reports.ReportSummary, now time.Time) {
	filtered := map[string]any{}
	var newest time.Time
	for k, v := range answers {
		if !qidSet[k] {
			continue
		}
		filtered[k] = v
		if k != reports.TextKey && times[k].After(newest) {
			newest = times[k]
		}
	}
	f.AnswerText, f.StatusColor = renderAnswers(topic, qidSet, filtered)
	f.Answers = map[string]any{}
	for k, v := range filtered {
		if k != reports.TextKey {
			f.Answers[k] = v
		}
	}
	if t, ok := filtered[reports.TextKey].(string); ok {
		f.AnswerSource = t
	}
	if !newest.IsZero() {
		f.AnswerTime = relativeAge(now, newest)
	}
	f.Reports = make([]model.ReportView, 0, len(summaries))
	for _, s := range summaries {
		summary, color := renderAnswers(topic, qidSet, s.Answers)
		var colorPtr *string
		if color != "" {
			c := color
			colorPtr = &c
		}
		f.Reports = append(f.Reports, model.ReportView{
			ID:            s.ID,
			Effective:     relativeAge(now, s.Effective),
			AgeMinutes:    ageMinutes(now, s.Effective),
			Text:          s.Text,
			AnswerSummary: summary,
			StatusColor:   colorPtr,
		})
	}
}

// renderAnswers：按问题模式声明顺序把答案渲染为句子摘要与代表色
// 规则：CHOICE 渲染命中选项的标签加句点，NUMBER 渲染 "标题: 值."；
// 子句以空格连接；代表色取声明序中第一个有命中答案的 CHOICE 选项颜色
func renderAnswers(topic *model.Topic, qidSet map[string]bool, answers map[string]any) (string, string) {
	var clauses []string
	color := ""
	for _, q := range topic.Questions {
		if !qidSet[q.ID] {
			continue
		}
		v, ok := answers[q.ID]
		if !ok {
			continue
		}
		switch q.Type {
		case model.QuestionTypeChoice:
			choice := findChoice(&q, fmt.Sprint(v))
			if choice == nil {
				continue
			}
			if color == "" {
				color = choice.Color
			}
			if choice.Label != "" {
				clauses = append(clauses, choice.Label+".")
			}
		case model.QuestionTypeNumber:
			clauses = append(clauses, q.Title+": "+formatAnswer(v)+".")
		}
	}
	return strings.Join(clauses, " "), color
}

func findChoice(q *model.Question, id string) *model.Choice {
	for i := range q.Choices {
		if q.Choices[i].ID == id {
			return &q.Choices[i]
		}
	}
	return nil
}

// formatAnswer：答案值的展示格式；JSON 数字统一走 float64 分支
func formatAnswer(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

// relativeAge：报告时效的相对时间描述
// 规则：不满 1 分钟为 "just now"，其余为 "<N>m ago"，N 向下取整
func relativeAge(now, t time.Time) string {
	mins := ageMinutes(now, t)
	if mins < 1 {
		return "just now"
	}
	return strconv.Itoa(mins) + "m ago"
}

func ageMinutes(now, t time.Time) int {
	mins := int(now.Sub(t).Minutes())
	if mins < 0 {
		return 0
	}
	return mins
}
