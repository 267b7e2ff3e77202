package redis

import (
	"fmt"
	"strings"
)

const (
	// KeyPrefixBookmark is the prefix for bookmark documents
	KeyPrefixBookmark = "keepmark:bookmark:"
	// KeyPrefixOwner is the prefix for per-owner indexes
	KeyPrefixOwner = "keepmark:owner:"

	suffixBookmarks = ":bookmarks"
	suffixURLs      = ":urls"
)

// BookmarkKey returns the Redis key for a bookmark document by ID
func BookmarkKey(id string) string {
	return KeyPrefixBookmark + id
}

// OwnerBookmarksKey returns the sorted set of an owner's bookmark IDs,
// scored by creation time
func OwnerBookmarksKey(owner string) string {
	return KeyPrefixOwner + owner + suffixBookmarks
}

// OwnerURLsKey returns the hash of an owner's url -> bookmark ID
func OwnerURLsKey(owner string) string {
	return KeyPrefixOwner + owner + suffixURLs
}

// OwnerBookmarksPattern matches every owner's sorted set for SCAN
func OwnerBookmarksPattern() string {
	return KeyPrefixOwner + "*" + suffixBookmarks
}

// ExtractOwner extracts the owner from an OwnerBookmarksKey
func ExtractOwner(key string) (string, error) {
	if !strings.HasPrefix(key, KeyPrefixOwner) || !strings.HasSuffix(key, suffixBookmarks) ||
		len(key) <= len(KeyPrefixOwner)+len(suffixBookmarks) {
		return "", fmt.Errorf("invalid owner key: %s", key)
	}
	return key[len(KeyPrefixOwner) : len(key)-len(suffixBookmarks)], nil
}
