package types

import (
	"errors"
	"fmt"
	"time"
)

var ErrUnknownInterval = errors.New("unknown interval")

type Interval string

const (
	OneMinute      Interval = "1m"
	FiveMinutes    Interval = "5m"
	FifteenMinutes Interval = "15m"
	ThirtyMinutes  Interval = "30m"
	Hour           Interval = "1h"
	FourHours      Interval = "4h"
	Day            Interval = "1d"
	Week           Interval = "1wk"
	Month          Interval = "1mo"
)

// IntervalToTime has no entry for Month, its length varies.
var IntervalToTime = map[Interval]time.Duration{
	OneMinute:      time.Minute,
	FiveMinutes:    time.Minute * 5,
	FifteenMinutes: time.Minute * 15,
	ThirtyMinutes:  time.Minute * 30,
	Hour:           time.Hour,
	FourHours:      time.Hour * 4,
	Day:            time.Hour * 24,
	Week:           time.Hour * 24 * 7,
}

var convertInterval = map[string]Interval{
	"1m":  OneMinute,
	"5m":  FiveMinutes,
	"15m": FifteenMinutes,
	"30m": ThirtyMinutes,
	"1h":  Hour,
	"60m": Hour,
	"4h":  FourHours,
	"1d":  Day,
	"1wk": Week,
	"1w":  Week,
	"1mo": Month,
}

// ParseInterval accepts the interval spellings used by market data vendors ("1d", "1h", "5m", ...).
func ParseInterval(s string) (Interval, error) {
	if s == "" {
		return Day, nil
	}
	iv, ok := convertInterval[s]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownInterval, s)
	}
	return iv, nil
}
