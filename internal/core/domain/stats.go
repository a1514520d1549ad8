package domain

// DailyAggregatePoint is the cross-habit completion rate of one calendar day.
type DailyAggregatePoint struct {
	Date           string  `json:"date"`
	CompletionRate float64 `json:"completion_rate"`
}

type PerHabitAggregate struct {
	HabitID        string         `json:"habit_id"`
	Title          string         `json:"title"`
	Frequency      Frequency      `json:"frequency"`
	CompletionRate float64        `json:"completion_rate"`
	Classification Classification `json:"classification"`
	CurrentStreak  int            `json:"current_streak"`
	LongestStreak  int            `json:"longest_streak"`
}

type AnalyticsSummary struct {
	TotalHabits     int     `json:"total_habits"`
	CompletionToday float64 `json:"completion_today"`
}

type AnalyticsReport struct {
	From     string                `json:"from"`
	To       string                `json:"to"`
	Daily    []DailyAggregatePoint `json:"daily"`
	PerHabit []PerHabitAggregate   `json:"per_habit"`
	Stats    AnalyticsSummary      `json:"stats"`
}

// HabitDay is a habit as seen on one calendar day: its recorded status for
// that day (nil when nothing was recorded) and its persisted streak.
type HabitDay struct {
	*Habit
	Status        *EntryStatus `json:"status"`
	CurrentStreak int          `json:"current_streak"`
	LongestStreak int          `json:"longest_streak"`
}
