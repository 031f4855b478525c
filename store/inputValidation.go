// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package store

import "regexp"

// IdentifierFormatRegexSource describes identifiers that may be used as store keys.
const IdentifierFormatRegexSource = "^[A-Za-z0-9_-]{1,128}$"

var identifierFormatRegex = regexp.MustCompile(IdentifierFormatRegexSource)

// ValidIdentifier reports whether id can be looked up in a store. Identifiers
// failing this check are never sent to a backend.
func ValidIdentifier(id string) bool {
	return identifierFormatRegex.MatchString(id)
}
