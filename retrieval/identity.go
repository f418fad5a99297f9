package retrieval

import (
	"encoding/hex"
	"strings"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/attest/core"
)

// identityKey returns the grouping key of a hit: its document id when the
// source supplied one, otherwise a hash of its URL, title or content.
func identityKey(r *core.RawResult) string {
	if id := strings.TrimSpace(r.DocumentID); id != "" {
		return "id:" + id
	}
	if u := normalizeURL(r.URL); u != "" {
		return "url:" + hashKey(u)
	}
	if title := core.NormalizeEntityName(r.Title); title != "" {
		return "title:" + hashKey(title)
	}
	return "content:" + hashKey(strings.Join(strings.Fields(r.Content), " "))
}

// documentID is the id reported for a fused document.
func documentID(key string, r *core.RawResult) string {
	if id := strings.TrimSpace(r.DocumentID); id != "" {
		return id
	}
	return key
}

func normalizeURL(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	return strings.TrimRight(u, "/")
}

func hashKey(s string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}
