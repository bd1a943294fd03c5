// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"io"
)

// MaxResponseSize bounds every HTTP response body read by the client.
const MaxResponseSize = 10 * 1024 * 1024

// ReadLimited reads r up to max bytes.
// A body of max bytes or more is rejected rather than silently truncated.
func ReadLimited(r io.Reader, max int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, max))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == max {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", max)
	}
	return body, nil
}
