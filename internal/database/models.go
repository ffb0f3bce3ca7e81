package database

// Stats are the all-time totals shown to the admin.
type Stats struct {
	TotalUsers   int64 `json:"total_users"`
	TotalActions int64 `json:"total_actions"`
	ActiveDays   int64 `json:"active_days"`
}

// ActionCount is one row of the popular actions report.
type ActionCount struct {
	Action string `json:"action_type"`
	Count  int64  `json:"count"`
}

// DailyStat aggregates actions for one calendar day (YYYY-MM-DD in the
// store's reference timezone).
type DailyStat struct {
	Day         string `json:"date"`
	Actions     int64  `json:"actions_count"`
	UniqueUsers int64  `json:"unique_users"`
}

// User is a chat that has talked to the bot.
type User struct {
	ChatID    int64
	Username  string
	FirstName string
	LastName  string
}
