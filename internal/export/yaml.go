// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLExporter writes a readable structured transcript. Multi-line replies
// come out as literal blocks.
type YAMLExporter struct{}

// NewYAMLExporter creates a new YAML exporter.
func NewYAMLExporter() *YAMLExporter {
	return &YAMLExporter{}
}

type yamlTranscript struct {
	Session    yamlSession   `yaml:"session"`
	Messages   []yamlMessage `yaml:"messages"`
	ExportedAt time.Time     `yaml:"exported_at"`
}

type yamlSession struct {
	ID        string    `yaml:"id"`
	Title     string    `yaml:"title"`
	Pinned    bool      `yaml:"pinned,omitempty"`
	CreatedAt time.Time `yaml:"created_at,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

type yamlMessage struct {
	ID        string    `yaml:"id,omitempty"`
	Sender    string    `yaml:"sender"`
	Content   string    `yaml:"content"`
	CreatedAt time.Time `yaml:"created_at,omitempty"`
	Emergency bool      `yaml:"emergency,omitempty"`
	Severity  string    `yaml:"severity,omitempty"`
}

// Export converts a transcript to YAML.
func (e *YAMLExporter) Export(t *Transcript) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("transcript is nil")
	}

	doc := yamlTranscript{
		Session: yamlSession{
			ID:        t.Session.ID,
			Title:     t.Title(),
			Pinned:    t.Session.IsPinned,
			CreatedAt: t.Session.CreatedAt,
			UpdatedAt: t.Session.UpdatedAt,
		},
		Messages:   make([]yamlMessage, 0, len(t.Messages)),
		ExportedAt: t.ExportedAt,
	}
	for _, m := range t.Messages {
		doc.Messages = append(doc.Messages, yamlMessage{
			ID:        m.ID,
			Sender:    string(m.SenderRole),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
			Emergency: m.IsEmergency(),
			Severity:  string(m.Severity()),
		})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileExtension returns the file extension for YAML.
func (e *YAMLExporter) FileExtension() string {
	return ".yaml"
}
