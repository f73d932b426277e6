package metrics

import (
	"database/sql"
	"strings"
	"time"
)

// UpdateDBStats publishes a sql.DBStats sample; other types are ignored
func (m *Metrics) UpdateDBStats(statsInterface interface{}) {
	m.safeExecute("UpdateDBStats", func() {
		stats, ok := statsInterface.(sql.DBStats)
		if !ok {
			return
		}
		m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
		m.DBConnectionsInUse.Set(float64(stats.InUse))
		m.DBConnectionsIdle.Set(float64(stats.Idle))
		m.DBConnectionsMax.Set(float64(stats.MaxOpenConnections))

		m.dbWaitMu.Lock()
		defer m.dbWaitMu.Unlock()
		// a reopened pool restarts its counters
		if stats.WaitCount < m.lastWaitCount || stats.WaitDuration < m.lastWaitDuration {
			m.lastWaitCount, m.lastWaitDuration = 0, 0
		}
		m.DBConnectionWaitTotal.Add(float64(stats.WaitCount - m.lastWaitCount))
		m.DBConnectionWaitDuration.Add((stats.WaitDuration - m.lastWaitDuration).Seconds())
		m.lastWaitCount = stats.WaitCount
		m.lastWaitDuration = stats.WaitDuration
	})
}

// RecordDBQuery observes one gorm statement; operation is select/insert/update/delete
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration, err error) {
	m.safeExecute("RecordDBQuery", func() {
		operation = strings.ToLower(operation)
		m.DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
		if err != nil {
			m.DBQueryErrors.WithLabelValues(operation, table).Inc()
		}
	})
}
