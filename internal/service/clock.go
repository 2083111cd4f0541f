package service

import "time"

// Clock — источник текущего времени для проверки сроков действия
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
