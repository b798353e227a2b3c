package env

import "os"

const Prefix = "BAKERY_"

// Get returns BAKERY_<key>, then <key>, then fallback.
func Get(key, fallback string) string {
	if val := os.Getenv(Prefix + key); val != "" {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
