package service

import "time"

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// Option настройка сервиса
type Option func(*options)

type options struct {
	now               func() time.Time
	reseedEachRequest bool
}

func defaultOptions() options {
	return options{now: time.Now}
}

// WithClock подменяет источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithReseedEachRequest перечитывать активные бронирования репетитора при каждом запросе
func WithReseedEachRequest(enabled bool) Option {
	return func(o *options) {
		o.reseedEachRequest = enabled
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// normalizePage приводит параметры пагинации к допустимым значениям
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}
