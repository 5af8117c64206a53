package config

import "time"

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN,optional"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"30m"`
}

type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLED" envDefault:"false"`
	Addr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string        `env:"REDIS_PASSWORD,optional"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL time.Duration `env:"REDIS_CACHE_TTL" envDefault:"5m"`
}

// GemsConfig carries the gemstone economy amounts. Defaults match the
// shipped app: 3 starter gemstones, 5 per daily grant, 3 per watched ad.
type GemsConfig struct {
	InitialBalance   int64         `env:"GEMS_INITIAL_BALANCE" envDefault:"3"`
	DailyGrantAmount int64         `env:"GEMS_DAILY_GRANT" envDefault:"5"`
	AdRewardAmount   int64         `env:"GEMS_AD_REWARD" envDefault:"3"`
	GrantInterval    time.Duration `env:"GEMS_GRANT_INTERVAL" envDefault:"24h"`
}

// RateLimitConfig throttles the earn endpoints per user.
type RateLimitConfig struct {
	EarnPerSecond float64 `env:"RATE_EARN_PER_SECOND" envDefault:"1"`
	EarnBurst     int     `env:"RATE_EARN_BURST" envDefault:"5"`
}
