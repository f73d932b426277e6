package metrics

import "time"

// IncrementFormCreated increments the form creation counter
func (m *Metrics) IncrementFormCreated() {
	m.safeExecute("IncrementFormCreated", func() {
		m.FormCreatedTotal.Inc()
	})
}

// IncrementFormVersion counts a published schema version
func (m *Metrics) IncrementFormVersion() {
	m.safeExecute("IncrementFormVersion", func() {
		m.FormVersionsTotal.Inc()
	})
}

// IncrementSubmissionCreated increments the accepted submission counter
func (m *Metrics) IncrementSubmissionCreated() {
	m.safeExecute("IncrementSubmissionCreated", func() {
		m.SubmissionCreatedTotal.Inc()
	})
}

// IncrementSubmissionReviewed counts an approve or reject decision
func (m *Metrics) IncrementSubmissionReviewed(status string) {
	m.safeExecute("IncrementSubmissionReviewed", func() {
		m.SubmissionReviewedTotal.WithLabelValues(status).Inc()
	})
}

// IncrementWizardSubmitFailure counts a wizard submit that reached the server and failed
func (m *Metrics) IncrementWizardSubmitFailure() {
	m.safeExecute("IncrementWizardSubmitFailure", func() {
		m.WizardSubmitFailureTotal.Inc()
	})
}

// SetWizardSessions sets the active wizard session gauge
func (m *Metrics) SetWizardSessions(count int) {
	m.safeExecute("SetWizardSessions", func() {
		m.WizardSessionsActive.Set(float64(count))
	})
}

// IncrementNotificationSent counts a created notification by type
func (m *Metrics) IncrementNotificationSent(notificationType string) {
	m.safeExecute("IncrementNotificationSent", func() {
		m.NotificationsSentTotal.WithLabelValues(notificationType).Inc()
	})
}

// AddWebsocketConnections moves the open websocket gauge by delta
func (m *Metrics) AddWebsocketConnections(delta int) {
	m.safeExecute("AddWebsocketConnections", func() {
		m.WebsocketConnections.Add(float64(delta))
	})
}

// SetFormsTotal sets the total forms gauge
func (m *Metrics) SetFormsTotal(count int64) {
	m.safeExecute("SetFormsTotal", func() {
		m.FormsTotal.Set(float64(count))
	})
}

// SetSubmissionsTotal sets the submission gauge for one status
func (m *Metrics) SetSubmissionsTotal(status string, count int64) {
	m.safeExecute("SetSubmissionsTotal", func() {
		m.SubmissionsTotal.WithLabelValues(status).Set(float64(count))
	})
}

// RecordJobRun records one run of a scheduled job
func (m *Metrics) RecordJobRun(job string, duration time.Duration) {
	m.safeExecute("RecordJobRun", func() {
		m.JobRunsTotal.WithLabelValues(job).Inc()
		m.JobRunDuration.WithLabelValues(job).Observe(duration.Seconds())
	})
}
