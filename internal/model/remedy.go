// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Remedy is an entry in the natural-remedies knowledge base.
type Remedy struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Ingredients      []string `json:"ingredients"`
	Benefits         string   `json:"benefits"`
	PreparationSteps string   `json:"preparation_steps"`
	Warnings         string   `json:"warnings"`
}
