package postgres

import "time"

type Option func(*Postgres)

func MaxPoolSize(size int) Option {
	return func(p *Postgres) {
		if size > 0 {
			p.maxPoolSize = size
		}
	}
}

func ConnAttempts(attempts int) Option {
	return func(p *Postgres) {
		if attempts > 0 {
			p.connAttempts = attempts
		}
	}
}

func BaseRetryDelay(delay time.Duration) Option {
	return func(p *Postgres) {
		if delay > 0 {
			p.baseRetryDelay = delay
		}
	}
}

func MaxRetryDelay(delay time.Duration) Option {
	return func(p *Postgres) {
		if delay > 0 {
			p.maxRetryDelay = delay
		}
	}
}
