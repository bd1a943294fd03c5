// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sproutai/sprout-tui/internal/model"
)

// ListEmergencies returns emergency records. Staff roles only.
func (c *Client) ListEmergencies(ctx context.Context) ([]model.Emergency, error) {
	var emergencies []model.Emergency
	if err := c.do(ctx, http.MethodGet, "/emergencies", nil, nil, &emergencies); err != nil {
		return nil, err
	}
	return emergencies, nil
}

// UpdateEmergencyStatus sets an emergency's status.
func (c *Client) UpdateEmergencyStatus(ctx context.Context, id string, status model.EmergencyStatus) error {
	in := map[string]model.EmergencyStatus{"status": status}
	return c.do(ctx, http.MethodPatch, "/emergencies/"+url.PathEscape(id)+"/status", nil, in, nil)
}

// ListUsers returns registered users. Staff roles only.
func (c *Client) ListUsers(ctx context.Context) ([]model.UserProfile, error) {
	var users []model.UserProfile
	if err := c.do(ctx, http.MethodGet, "/auth/users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}
