package datehelper

import "time"

// DaysAgo returns the instant n days before now.
func DaysAgo(n int) time.Time {
	return time.Now().AddDate(0, 0, -n)
}

func Yesterday() time.Time {
	return DaysAgo(1)
}
