package db

import (
	"database/sql"
	"sort"
	"time"
)

// Aggregates only count sessions that have a title
const titledSessions = `description != ''`

// DirCount is the number of titled sessions started in one working directory
type DirCount struct {
	Dir   string `json:"dir"`
	Count int    `json:"count"`
}

// DayCount is the number of titled sessions last active on one UTC date
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// SessionInsights summarizes the titled sessions in the store
type SessionInsights struct {
	TotalSessions  int        `json:"totalSessions"`
	MostActiveDirs []DirCount `json:"mostActiveDirs"`
	// AvgSessionDuration is in minutes, measured from first to last message
	AvgSessionDuration float64    `json:"avgSessionDuration"`
	RecentActivity     []DayCount `json:"recentActivity"`
}

// HeatmapCell counts sessions active on one weekday of one ISO week.
// Week is zero-based, Day is 0 for Sunday.
type HeatmapCell struct {
	Week  int `json:"week"`
	Day   int `json:"day"`
	Count int `json:"count"`
}

// GetSessionInsights returns totals, the three busiest working directories
// and the seven most recent active days
func (d *DB) GetSessionInsights() (*SessionInsights, error) {
	insights := &SessionInsights{
		MostActiveDirs: []DirCount{},
		RecentActivity: []DayCount{},
	}

	err := d.conn.QueryRow(`SELECT COUNT(*) FROM chat_sessions WHERE ` + titledSessions).Scan(&insights.TotalSessions)
	if err != nil {
		return nil, err
	}
	if insights.TotalSessions == 0 {
		return insights, nil
	}

	dirs, err := Select(d, `
		SELECT working_dir, COUNT(*) AS n FROM chat_sessions
		WHERE `+titledSessions+`
		GROUP BY working_dir
		ORDER BY n DESC, working_dir
		LIMIT 3`,
		nil,
		func(rows *sql.Rows) (DirCount, error) {
			var c DirCount
			err := rows.Scan(&c.Dir, &c.Count)
			return c, err
		},
	)
	if err != nil {
		return nil, err
	}
	insights.MostActiveDirs = append(insights.MostActiveDirs, dirs...)

	var totalMs int64
	err = d.conn.QueryRow(`
		SELECT COALESCE(SUM(span), 0) FROM (
			SELECT MAX(m.created_at) - MIN(m.created_at) AS span
			FROM chat_messages m
			JOIN chat_sessions s ON s.id = m.session_id
			WHERE s.` + titledSessions + `
			GROUP BY m.session_id
		)`).Scan(&totalMs)
	if err != nil {
		return nil, err
	}
	insights.AvgSessionDuration = float64(totalMs) / float64(time.Minute/time.Millisecond) / float64(insights.TotalSessions)

	days, err := Select(d, `
		SELECT date(updated_at / 1000, 'unixepoch') AS day, COUNT(*) FROM chat_sessions
		WHERE `+titledSessions+`
		GROUP BY day
		ORDER BY day DESC
		LIMIT 7`,
		nil,
		func(rows *sql.Rows) (DayCount, error) {
			var c DayCount
			err := rows.Scan(&c.Date, &c.Count)
			return c, err
		},
	)
	if err != nil {
		return nil, err
	}
	insights.RecentActivity = append(insights.RecentActivity, days...)

	return insights, nil
}

// GetActivityHeatmap buckets titled sessions by the UTC week and weekday of
// their last activity, ordered by week then day
func (d *DB) GetActivityHeatmap() ([]HeatmapCell, error) {
	stamps, err := Select(d,
		`SELECT updated_at FROM chat_sessions WHERE `+titledSessions,
		nil,
		func(rows *sql.Rows) (int64, error) {
			var ms int64
			err := rows.Scan(&ms)
			return ms, err
		},
	)
	if err != nil {
		return nil, err
	}

	type key struct{ week, day int }
	counts := make(map[key]int)
	for _, ms := range stamps {
		t := time.UnixMilli(ms).UTC()
		_, week := t.ISOWeek()
		counts[key{week: week - 1, day: int(t.Weekday())}]++
	}

	cells := make([]HeatmapCell, 0, len(counts))
	for k, n := range counts {
		cells = append(cells, HeatmapCell{Week: k.week, Day: k.day, Count: n})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Week != cells[j].Week {
			return cells[i].Week < cells[j].Week
		}
		return cells[i].Day < cells[j].Day
	})
	return cells, nil
}
