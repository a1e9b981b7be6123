package cache

import (
	"crypto/md5"
	"fmt"
	"strconv"
	"strings"
)

// KeyPrefix is shared by every recommendation cache key
const KeyPrefix = "recommendations_"

// KeyFor builds the cache key for a (subject, provider, count) triple.
// The subject goes last so arbitrary subject strings cannot collide with
// the fixed-format provider and count segments.
func KeyFor(subjectID, provider string, count int) string {
	return KeyPrefix + provider + "_" + strconv.Itoa(count) + "_" + subjectID
}

// sanitizeForFilename makes a key safe for use as a filename
func sanitizeForFilename(key string) string {
	if len(key) > 200 {
		hash := md5.Sum([]byte(key))
		return fmt.Sprintf("long_%x.json", hash)
	}

	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		"#", "_",
		"&", "_",
		"=", "_",
		" ", "_",
		"..", "_",
	)
	result := replacer.Replace(key)

	// Two keys may sanitize to the same name, so altered keys get a hash suffix
	if result != key {
		hash := md5.Sum([]byte(key))
		result = fmt.Sprintf("%s_%x", result, hash[:4])
	}

	return result + ".json"
}
