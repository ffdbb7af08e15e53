package reminders

import "fmt"

// minEveryMinutes floors the @every fallback so irregular intervals
// cannot drive the scheduler harder than twice an hour.
const minEveryMinutes = 30

// CronSpec converts a sweep interval in minutes into a spec accepted by
// robfig/cron. Sub-hour intervals and whole-hour intervals up to a day
// map onto standard cron fields; anything irregular falls back to an
// @every duration floored at minEveryMinutes.
func CronSpec(intervalMinutes int) string {
	switch {
	case intervalMinutes <= 0:
		return fmt.Sprintf("@every %dm", minEveryMinutes)
	case intervalMinutes < 60:
		return fmt.Sprintf("*/%d * * * *", intervalMinutes)
	case intervalMinutes%60 == 0 && intervalMinutes/60 <= 24:
		return fmt.Sprintf("0 */%d * * *", intervalMinutes/60)
	default:
		return fmt.Sprintf("@every %dm", intervalMinutes)
	}
}
