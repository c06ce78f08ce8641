package biz

import (
	"github.com/vearne/lwsniffer/config"
	"golang.org/x/time/rate"
)

func NewRateLimit(settings *config.AppSettings) Limiter {
	if settings.Sniffer.RateLimitQPS > 0 {
		value := settings.Sniffer.RateLimitQPS
		return rate.NewLimiter(rate.Limit(value), value)
	}
	return nil
}
