// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidIdentifier(t *testing.T) {
	type test struct {
		Name     string
		ID       string
		Expected bool
	}

	tcs := []test{
		{Name: "Empty", ID: "", Expected: false},
		{Name: "CharacterOver", ID: strings.Repeat("a", 129), Expected: false},
		{Name: "Dot", ID: "abc.def", Expected: false},
		{Name: "Space", ID: "abc def", Expected: false},
		{Name: "Encoded", ID: "abc%2F", Expected: false},
		{Name: "MaxLength", ID: strings.Repeat("a", 128), Expected: true},
		{Name: "ShortID", ID: "abc123", Expected: true},
		{Name: "UserID", ID: "Xy9_kLm-42", Expected: true},
	}

	for _, tc := range tcs {
		t.Run(tc.Name, func(t *testing.T) {
			assert := assert.New(t)
			assert.Equal(tc.Expected, ValidIdentifier(tc.ID))
		})
	}
}
