// Package partials holds the small formatting helpers shared by the page templates
package partials

import (
	"fmt"
	"strings"
	"time"
)

// FormatFileSize formats a byte count for display
func FormatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatRelativeTime renders t relative to now, falling back to a date after a week
func FormatRelativeTime(t time.Time, now time.Time) string {
	duration := now.Sub(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("Jan 2, 2006")
	}
}

// FormatCell renders one record value for a table cell
func FormatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case *string:
		if val == nil || *val == "" {
			return "-"
		}
		return *val
	case string:
		if val == "" {
			return "-"
		}
		return val
	case []string:
		if len(val) == 0 {
			return "-"
		}
		return strings.Join(val, ", ")
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case time.Time:
		return val.Format("Jan 2, 2006")
	default:
		return fmt.Sprint(val)
	}
}

// ColumnTitle turns "college_organization" into "College Organization"
func ColumnTitle(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// StatusLabel turns "in discussion" into "In Discussion"
func StatusLabel(status string) string {
	return ColumnTitle(strings.ReplaceAll(status, " ", "_"))
}
