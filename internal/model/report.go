package model

import "time"

// CrowdReport：外部报告库中的一条众包提交（只读）
// 约束：AnswersJSON 为扁平映射 "<map>.<topic>.<question>" -> 答案值 的 JSON 文本；
// 生命周期归外部库所有，核心只读取按位置与时间窗裁剪的切片
type CrowdReport struct {
	ID          string
	Text        string
	AnswersJSON string
	Effective   time.Time
}
