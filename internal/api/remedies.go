// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sproutai/sprout-tui/internal/model"
)

// SearchRemedies queries the remedies knowledge base.
// The search parameter is always sent, empty for "list everything".
func (c *Client) SearchRemedies(ctx context.Context, query string) ([]model.Remedy, error) {
	var remedies []model.Remedy
	q := url.Values{"search": {query}}
	if err := c.do(ctx, http.MethodGet, "/remedies", q, nil, &remedies); err != nil {
		return nil, err
	}
	return remedies, nil
}
