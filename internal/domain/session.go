package domain

import "time"

// SessionTTL is the fixed lifetime of a session channel. The deadline is
// set once at creation and never extended.
const SessionTTL = time.Hour

// Session describes one session channel between a pair of participants as
// recorded by the registry.
type Session struct {
	Participants [2]Address `json:"participants"`
	Channel      Address    `json:"channel"`
	CreatedAt    int64      `json:"created_at"`
	Deadline     int64      `json:"deadline"`
	Active       bool       `json:"active"`
	Seq          uint64     `json:"seq"`
}

// Live reports whether the session accepts messages at now: still marked
// active and its deadline not yet reached.
func (s Session) Live(now int64) bool {
	return s.Active && now < s.Deadline
}
