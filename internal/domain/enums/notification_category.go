package enums

type NotificationCategory string

const (
	// CategoryGeneral notices are never filterable by admin preferences.
	CategoryGeneral            NotificationCategory = "general"
	CategoryFinancialAnomalies NotificationCategory = "financial_anomalies"
	CategoryCourseActivity     NotificationCategory = "course_activity"
	CategorySupport            NotificationCategory = "support"
)

// Filterable reports whether admins may opt out of the category.
func (c NotificationCategory) Filterable() bool {
	switch c {
	case CategoryFinancialAnomalies, CategoryCourseActivity, CategorySupport:
		return true
	default:
		return false
	}
}
