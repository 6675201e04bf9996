package world

import "fmt"

const minutesPerDay = 24 * 60

// Clock is the in-game time for a session: a day counter plus minutes
// since midnight.
type Clock struct {
	Day     int `json:"day"`
	Minutes int `json:"minutes"`
}

// Advance returns the clock moved forward by the given number of minutes.
// Negative amounts are ignored.
func (c Clock) Advance(mins int) Clock {
	if mins <= 0 {
		return c
	}
	total := c.Minutes + mins
	c.Day += total / minutesPerDay
	c.Minutes = total % minutesPerDay
	return c
}

// Period returns the named part of day for prompt context.
func (c Clock) Period() string {
	switch {
	case c.Minutes < 6*60:
		return "night"
	case c.Minutes < 12*60:
		return "morning"
	case c.Minutes < 18*60:
		return "afternoon"
	case c.Minutes < 22*60:
		return "evening"
	default:
		return "night"
	}
}

func (c Clock) String() string {
	return fmt.Sprintf("day %d, %02d:%02d", c.Day, c.Minutes/60, c.Minutes%60)
}
