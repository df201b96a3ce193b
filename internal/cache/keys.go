package cache

import "fmt"

func QualityScoreKey(contentHash string) string {
	return fmt.Sprintf("quality:score:%s", contentHash)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
