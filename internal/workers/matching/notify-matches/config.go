// internal/workers/matching/notify-matches/config.go
package notifymatches

import "time"

type Config struct {
	Timeout   time.Duration
	AWSRegion string

	EmailEnabled bool
	FromEmail    string

	SMSEnabled bool
	// SMSMinMatchPercentage gates SMS to runs whose top match is strong
	// enough to be worth an immediate ping.
	SMSMinMatchPercentage float64
}

func LoadConfig() *Config {
	return &Config{
		Timeout:               30 * time.Second,
		AWSRegion:             "ap-south-1",
		EmailEnabled:          true,
		SMSEnabled:            false,
		SMSMinMatchPercentage: 80,
	}
}
