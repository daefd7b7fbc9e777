package logger

import (
	"fmt"
	"time"
)

// LogRequest logs HTTP request information
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogCooldown logs a backoff decision
func LogCooldown(l Logger, packageID int, reason string, delay time.Duration) {
	l.WithFields(map[string]interface{}{
		"package_id": packageID,
		"reason":     reason,
		"delay":      delay,
	}).Warn(fmt.Sprintf("Retrying package %d in %.1f minutes", packageID, delay.Minutes()))
}

// LogRemovalProgress logs queue progress
func LogRemovalProgress(l Logger, index, total, removed int) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(index) / float64(total) * 100
	}

	l.WithFields(map[string]interface{}{
		"index":      index,
		"total":      total,
		"removed":    removed,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	}).Debug("Removal progress")
}
