// Package config holds the default rate limit profile table.
package config

import (
	"time"

	"veritrail/internal/ratelimit/models"
)

// DefaultProfiles returns the named profiles shipped by default. Callers may
// overwrite any of them via RegisterProfile.
func DefaultProfiles() map[string]models.Profile {
	return map[string]models.Profile{
		"api":     {MaxTokens: 100, RefillRate: 10, RefillInterval: 6 * time.Second},
		"auth":    {MaxTokens: 5, RefillRate: 1, RefillInterval: 12 * time.Second, Persistent: true},
		"form":    {MaxTokens: 10, RefillRate: 1, RefillInterval: 6 * time.Second},
		"upload":  {MaxTokens: 20, RefillRate: 2, RefillInterval: 10 * time.Second, Persistent: true},
		"search":  {MaxTokens: 30, RefillRate: 5, RefillInterval: 5 * time.Second},
		"export":  {MaxTokens: 5, RefillRate: 1, RefillInterval: time.Minute, Persistent: true},
		"webhook": {MaxTokens: 60, RefillRate: 10, RefillInterval: 10 * time.Second},
	}
}
