package timesource

import "time"

// Local formats the host clock shifted by a fixed UTC offset, without NTP.
type Local struct {
	UTCOffset time.Duration
}

func (l Local) NowFormatted() string {
	return time.Now().UTC().Add(l.UTCOffset).Format(Layout)
}
