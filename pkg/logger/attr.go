package logger

import "log/slog"

// Typed attribute helpers keep log field names consistent across packages.

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

// ScheduleID records the schedule identifier under the key "schedule_id".
func ScheduleID(id string) slog.Attr {
	return slog.String("schedule_id", id)
}

// DeliveryID records the delivery identifier under the key "delivery_id".
func DeliveryID(id string) slog.Attr {
	return slog.String("delivery_id", id)
}

// Channel records the logical channel under the key "channel".
func Channel(ch string) slog.Attr {
	return slog.String("channel", ch)
}

// Provider records the provider adapter name under the key "provider".
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// NotificationType records the notification type under the key "type".
func NotificationType(t string) slog.Attr {
	return slog.String("type", t)
}

// EventType records the engagement event type under the key "event_type".
func EventType(e string) slog.Attr {
	return slog.String("event_type", e)
}
