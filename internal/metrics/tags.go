package metrics

import "fmt"

// Tag creates a formatted DataDog tag string in "key:value" format.
func Tag(key, value string) string {
	return fmt.Sprintf("%s:%s", key, value)
}

// TaskTag creates a task identifier tag.
func TaskTag(task string) string {
	return Tag("task", task)
}

// OperationTag creates an operation tag.
func OperationTag(op string) string {
	return Tag("operation", op)
}

// OutcomeTag creates an execution outcome tag (success/failure/panic).
func OutcomeTag(outcome string) string {
	return Tag("outcome", outcome)
}

// AttachTag creates an attach kind tag (flight/cached/snapshot).
func AttachTag(kind string) string {
	return Tag("attach", kind)
}

// StatusTag creates a status tag (healthy/degraded/unhealthy).
func StatusTag(status string) string {
	return Tag("status", status)
}
