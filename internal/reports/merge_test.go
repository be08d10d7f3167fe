package reports

import (
	"context"
	"testing"
	"time"

	"card-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 三条报告按时效降序：r1 最新
func threeReports(now time.Time) []model.CrowdReport {
	return []model.CrowdReport{
		{ID: "r1", Effective: now, Text: "hello",
			AnswersJSON: `{"m1.t1.q1":"a1","m1.t1.q2":"a2"}`},
		{ID: "r2", Effective: now.Add(-time.Second), Text: "",
			AnswersJSON: `{"m1.t1.q1":"a1-superseded","m1.t1.q3":"a3"}`},
		{ID: "r3", Effective: now.Add(-2 * time.Second), Text: "",
			AnswersJSON: `{"m1.t2.q4":"other-topic","m2.t1.q5":"other-map"}`},
	}
}

func TestMerge(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	answers, times, summaries := Merge(threeReports(now), "m1", "t1")

	// 较新报告的值胜出，未被覆盖的键保留较旧值
	assert.Equal(t, map[string]any{
		"q1":    "a1",
		"q2":    "a2",
		"q3":    "a3",
		TextKey: "hello",
	}, answers)
	assert.Equal(t, map[string]time.Time{
		"q1":    now,
		"q2":    now,
		"q3":    now.Add(-time.Second),
		TextKey: now,
	}, times)

	// 摘要保持输入顺序，Answers 是各报告自己的贡献，不受覆盖影响
	require.Len(t, summaries, 3)
	assert.Equal(t, "r1", summaries[0].ID)
	assert.Equal(t, "hello", summaries[0].Text)
	assert.Equal(t, map[string]any{"q1": "a1", "q2": "a2"}, summaries[0].Answers)
	assert.Equal(t, map[string]any{"q1": "a1-superseded", "q3": "a3"}, summaries[1].Answers)
	// 无命中键的报告也进摘要
	assert.Equal(t, "r3", summaries[2].ID)
	assert.Empty(t, summaries[2].Answers)
}

func TestMergeSkipsEmptyValues(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rs := []model.CrowdReport{
		{ID: "new", Effective: now,
			AnswersJSON: `{"m1.t1.q1":"","m1.t1.q2":0,"m1.t1.q3":false,"m1.t1.q4":null}`},
		{ID: "old", Effective: now.Add(-time.Minute),
			AnswersJSON: `{"m1.t1.q1":"kept","m1.t1.q2":7}`},
	}
	answers, times, _ := Merge(rs, "m1", "t1")
	// 新报告的空值不占位，旧报告的实值透出
	assert.Equal(t, map[string]any{"q1": "kept", "q2": float64(7)}, answers)
	assert.Equal(t, now.Add(-time.Minute), times["q1"])
	// 两条报告文本均为空，合成键不出现
	_, ok := answers[TextKey]
	assert.False(t, ok)
}

func TestMergeMalformedAnswersJSON(t *testing.T) {
	now := time.Now()
	rs := []model.CrowdReport{
		{ID: "bad", Effective: now, Text: "still here", AnswersJSON: `{oops`},
	}
	answers, _, summaries := Merge(rs, "m1", "t1")
	// 解码失败只丢答案，文本照常参与合并
	assert.Equal(t, map[string]any{TextKey: "still here"}, answers)
	require.Len(t, summaries, 1)
	assert.Empty(t, summaries[0].Answers)
}

func TestMergeEmptyInput(t *testing.T) {
	answers, times, summaries := Merge(nil, "m1", "t1")
	assert.Empty(t, answers)
	assert.Empty(t, times)
	assert.Empty(t, summaries)
}

type stubStore struct {
	rs  []model.CrowdReport
	err error
}

func (s *stubStore) QueryReportsNear(ctx context.Context, loc model.LatLng, windowMinutes int) ([]model.CrowdReport, error) {
	return s.rs, s.err
}

func TestGetAnswersAndReports(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	e := &Engine{Store: &stubStore{rs: threeReports(now)}}
	answers, _, summaries, err := e.GetAnswersAndReports(context.Background(), "m1", "t1", model.LatLng{Lat: 1, Lng: 1}, 60)
	require.NoError(t, err)
	assert.Equal(t, "a1", answers["q1"])
	assert.Len(t, summaries, 3)
}

func TestGetAnswersAndReportsStoreError(t *testing.T) {
	e := &Engine{Store: &stubStore{err: assert.AnError}}
	_, _, _, err := e.GetAnswersAndReports(context.Background(), "m1", "t1", model.LatLng{}, 60)
	assert.ErrorIs(t, err, assert.AnError)
}
