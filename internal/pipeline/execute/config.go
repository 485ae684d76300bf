package execute

import "time"

type Config struct {
	Timeout       time.Duration
	MaxResultRows int
	MaxRetries    int
	CacheEnabled  bool
	CacheTTL      time.Duration
}
