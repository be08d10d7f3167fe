// 包 reports：众包报告的只读访问与按时效优先的合并引擎
package reports

import (
	"context"
	"database/sql"
	"math"
	"time"

	"card-api/internal/logger"
	"card-api/internal/metrics"
	"card-api/internal/model"

	_ "github.com/lib/pq"
)

// 报告检索的位置边界（米）：以要素位置为中心的方形窗
const searchRadiusMeters = 100

// 每纬度一度的近似米数，用于把检索半径换算为边界框
const metersPerDegree = 111195

// Store：报告库契约
// 约束：返回结果必须已按 effective 降序排好（最新在前），合并引擎依赖该序
type Store interface {
	QueryReportsNear(ctx context.Context, loc model.LatLng, windowMinutes int) ([]model.CrowdReport, error)
}

// PGStore：PostgreSQL 实现
type PGStore struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *PGStore { return &PGStore{db: db} }

// EnsureSchema：首次运行自动创建报告表与索引
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _card_reports (
            id TEXT PRIMARY KEY,
            map_id TEXT NOT NULL DEFAULT '',
            text TEXT NOT NULL DEFAULT '',
            answers_json TEXT NOT NULL DEFAULT '',
            lat DOUBLE PRECISION NOT NULL,
            lng DOUBLE PRECISION NOT NULL,
            effective TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_card_reports_loc ON _card_reports(lat, lng)`,
		`CREATE INDEX IF NOT EXISTS idx_card_reports_effective ON _card_reports(effective DESC)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("reports_schema_ok")
	return nil
}

// QueryReportsNear：按边界框与时间窗取报告，effective 降序
func (s *PGStore) QueryReportsNear(ctx context.Context, loc model.LatLng, windowMinutes int) ([]model.CrowdReport, error) {
	t0 := time.Now()
	metrics.ReportQueryTotal.Inc()
	dLat := float64(searchRadiusMeters) / metersPerDegree
	dLng := dLat
	if c := math.Cos(loc.Lat * math.Pi / 180); c > 0.01 {
		dLng = dLat / c
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, answers_json, effective
           FROM _card_reports
          WHERE effective >= now() - make_interval(mins => $1)
            AND lat BETWEEN $2 AND $3
            AND lng BETWEEN $4 AND $5
          ORDER BY effective DESC`,
		windowMinutes, loc.Lat-dLat, loc.Lat+dLat, loc.Lng-dLng, loc.Lng+dLng)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.CrowdReport
	for rows.Next() {
		var r model.CrowdReport
		if err := rows.Scan(&r.ID, &r.Text, &r.AnswersJSON, &r.Effective); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	metrics.ReportQueryDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	logger.L().Debug("reports_query_done", "count", len(out), "lat", loc.Lat, "lng", loc.Lng)
	return out, nil
}
