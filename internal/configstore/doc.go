// Package configstore resolves configuration keys across layered sources.
//
// A ConfigStore owns an ordered set of named sources (environment variables,
// developer secrets, settings files ...). Each source has a priority where a
// lower number means higher precedence, and precedence is decided per key:
// the first source defining a key wins, while lower-precedence sources still
// contribute sibling keys. Keys are case-insensitive and accept ':' or '.' as
// segment delimiters, so "Jwt:Key" and "jwt.key" address the same value.
//
// The store is read-mostly. Lookups never lock; ReloadSource publishes a
// freshly built snapshot with a single atomic swap, so readers observe either
// the old or the new entry set of a source and never a mix of both.
package configstore
