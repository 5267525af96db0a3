// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package gate

import "strings"

// RequireAuth reports whether the path requires authentication given the
// exempt patterns. A pattern ending in '*' matches by prefix; any other
// pattern matches exactly after trailing-slash normalization on both sides,
// so "/login" and "/login/" are equivalent. An empty exemption list exempts
// nothing.
func RequireAuth(path string, exemptPatterns []string) bool {
	if path == "" || len(exemptPatterns) == 0 {
		return true
	}

	path = strings.TrimRight(path, "/")

	for _, pattern := range exemptPatterns {
		pattern = strings.TrimRight(pattern, "/")
		if prefix, found := strings.CutSuffix(pattern, "*"); found {
			if strings.HasPrefix(path, prefix) {
				return false
			}
		} else if path == pattern {
			return false
		}
	}

	return true
}
