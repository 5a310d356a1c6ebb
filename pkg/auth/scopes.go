package auth

import (
	"strings"

	"github.com/samber/lo"
)

// Forge scopes.
const (
	ScopeDataRead        = "data:read"
	ScopeDataWrite       = "data:write"
	ScopeDataCreate      = "data:create"
	ScopeDataSearch      = "data:search"
	ScopeBucketCreate    = "bucket:create"
	ScopeBucketRead      = "bucket:read"
	ScopeBucketUpdate    = "bucket:update"
	ScopeBucketDelete    = "bucket:delete"
	ScopeCodeAll         = "code:all"
	ScopeAccountRead     = "account:read"
	ScopeAccountWrite    = "account:write"
	ScopeUserProfileRead = "user-profile:read"
	ScopeViewablesRead   = "viewables:read"
)

// NormalizeScopes trims every scope, drops empty ones and removes duplicates
// while keeping first-seen order.
func NormalizeScopes(scopes []string) []string {
	trimmed := lo.Map(scopes, func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
	return lo.Uniq(lo.Compact(trimmed))
}
