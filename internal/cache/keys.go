package cache

import "fmt"

// A link is cached under two independent keys, one per lookup
// dimension. Both must be invalidated whenever the row mutates.

// CodeKey is the cache key for lookup by short code.
func CodeKey(code string) string {
	return fmt.Sprintf("link-by-code:%s", code)
}

// IDKey is the cache key for lookup by numeric id.
func IDKey(id int64) string {
	return fmt.Sprintf("link-by-id:%d", id)
}
