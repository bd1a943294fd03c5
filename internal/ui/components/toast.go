// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the sprout TUI.
//
// This file implements the toast queue. Toasts are non-blocking notices that
// stack in the bottom-right corner and dismiss themselves, so the user keeps
// working while feedback is shown.
package components

import (
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/sproutai/sprout-tui/internal/ui/styles"
)

// =============================================================================
// TOAST TYPES
// =============================================================================

// ToastKind represents the type of toast notification.
type ToastKind int

const (
	// ToastInfo is an informational toast (cyan)
	ToastInfo ToastKind = iota
	// ToastSuccess is a success toast (emerald)
	ToastSuccess
	// ToastError is an error toast (rose)
	ToastError
)

// String returns the kind name.
func (k ToastKind) String() string {
	switch k {
	case ToastSuccess:
		return "success"
	case ToastError:
		return "error"
	default:
		return "info"
	}
}

// ParseToastKind maps "success", "error" and "info"; anything else is info.
func ParseToastKind(s string) ToastKind {
	switch strings.ToLower(s) {
	case "success":
		return ToastSuccess
	case "error":
		return ToastError
	default:
		return ToastInfo
	}
}

// DefaultToastDuration is how long a toast stays before auto-dismiss.
const DefaultToastDuration = 4000 * time.Millisecond

// Toast is a single notification.
type Toast struct {
	ID        string
	Kind      ToastKind
	Message   string
	CreatedAt time.Time
	Duration  time.Duration
}

// TimeRemaining returns how much time is left before auto-dismiss.
func (t Toast) TimeRemaining(now time.Time) time.Duration {
	remaining := t.Duration - now.Sub(t.CreatedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// =============================================================================
// TOAST QUEUE
// =============================================================================

// scheduleFunc runs fn after d and returns a function cancelling it.
type scheduleFunc func(d time.Duration, fn func()) (cancel func())

func afterFunc(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// ToastQueue holds the visible toasts in arrival order.
//
// Every toast owns a timer whose cancel handle is kept here; Remove cancels
// one, Close cancels all. It is safe for concurrent use.
type ToastQueue struct {
	mu       sync.Mutex
	toasts   []Toast
	cancels  map[string]func()
	duration time.Duration
	onChange func()
	closed   bool
	schedule scheduleFunc
	now      func() time.Time
}

// NewToastQueue creates a queue whose toasts last d (DefaultToastDuration
// when d is not positive).
func NewToastQueue(d time.Duration) *ToastQueue {
	if d <= 0 {
		d = DefaultToastDuration
	}
	return &ToastQueue{
		cancels:  make(map[string]func()),
		duration: d,
		schedule: afterFunc,
		now:      time.Now,
	}
}

// OnChange registers fn to run after any toast is added or removed,
// including on timer expiry. It replaces any previous callback.
func (q *ToastQueue) OnChange(fn func()) {
	q.mu.Lock()
	q.onChange = fn
	q.mu.Unlock()
}

// Add appends a toast and returns its id.
func (q *ToastQueue) Add(message string, kind ToastKind) string {
	id := newToastID()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return id
	}
	q.toasts = append(q.toasts, Toast{
		ID:        id,
		Kind:      kind,
		Message:   message,
		CreatedAt: q.now(),
		Duration:  q.duration,
	})
	q.cancels[id] = q.schedule(q.duration, func() { q.expire(id) })
	fn := q.onChange
	q.mu.Unlock()

	log.Printf("TOAST_ADD | id=%s kind=%s", id, kind)
	if fn != nil {
		fn()
	}
	return id
}

// Success adds a success toast.
func (q *ToastQueue) Success(message string) string { return q.Add(message, ToastSuccess) }

// Error adds an error toast.
func (q *ToastQueue) Error(message string) string { return q.Add(message, ToastError) }

// Info adds an info toast.
func (q *ToastQueue) Info(message string) string { return q.Add(message, ToastInfo) }

// Remove dismisses a toast. Unknown ids are ignored.
func (q *ToastQueue) Remove(id string) {
	if q.remove(id, true) {
		q.changed()
	}
}

func (q *ToastQueue) expire(id string) {
	if q.remove(id, false) {
		q.changed()
	}
}

func (q *ToastQueue) remove(id string, cancel bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if stop, ok := q.cancels[id]; ok {
		if cancel {
			stop()
		}
		delete(q.cancels, id)
	}
	for i, t := range q.toasts {
		if t.ID == id {
			q.toasts = append(q.toasts[:i], q.toasts[i+1:]...)
			return true
		}
	}
	return false
}

func (q *ToastQueue) changed() {
	q.mu.Lock()
	fn := q.onChange
	q.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Toasts returns a copy of the visible toasts, oldest first.
func (q *ToastQueue) Toasts() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := make([]Toast, len(q.toasts))
	copy(result, q.toasts)
	return result
}

// Len returns the number of visible toasts.
func (q *ToastQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.toasts)
}

// Pending returns the number of live timers.
func (q *ToastQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cancels)
}

// Close cancels every timer and drops all toasts. Later Adds are ignored.
func (q *ToastQueue) Close() {
	q.mu.Lock()
	for id, stop := range q.cancels {
		stop()
		delete(q.cancels, id)
	}
	q.toasts = nil
	q.closed = true
	q.mu.Unlock()
}

// newToastID returns a time-ordered unique id.
func newToastID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// =============================================================================
// TOAST RENDERING
// =============================================================================

// RenderToast renders a single toast notification.
func RenderToast(toast Toast, width int, now time.Time) string {
	maxWidth := 60
	if width > 0 && width-8 < maxWidth {
		maxWidth = width - 8
	}
	if maxWidth < 30 {
		maxWidth = 30
	}

	var color lipgloss.AdaptiveColor
	var icon string
	switch toast.Kind {
	case ToastError:
		color = styles.Rose
		icon = styles.StatusIndicators.Error
	case ToastSuccess:
		color = styles.Emerald
		icon = styles.StatusIndicators.Success
	default:
		color = styles.Cyan
		icon = styles.StatusIndicators.Info
	}

	iconStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	messageStyle := lipgloss.NewStyle().Foreground(styles.TextPrimary).Width(maxWidth - 8)
	hintStyle := lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)

	content := iconStyle.Render(icon+" ") + messageStyle.Render(wrapToastText(toast.Message, maxWidth-10))

	hints := "C-x dismiss"
	if secs := int(toast.TimeRemaining(now).Seconds()); secs > 0 {
		hints += "  " + strconv.Itoa(secs) + "s"
	}
	content += "\n" + hintStyle.Render(hints)

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 2).
		MaxWidth(maxWidth).
		Render(content)
}

// RenderToastStack renders toasts stacked vertically, newest at the bottom.
func RenderToastStack(toasts []Toast, width int, now time.Time) string {
	if len(toasts) == 0 {
		return ""
	}

	rendered := make([]string, 0, len(toasts))
	for _, toast := range toasts {
		rendered = append(rendered, RenderToast(toast, width, now))
	}

	stack := lipgloss.JoinVertical(lipgloss.Right, rendered...)
	return lipgloss.NewStyle().MarginRight(2).Render(stack)
}

// wrapToastText performs simple word wrapping for toast messages.
func wrapToastText(text string, maxWidth int) string {
	if maxWidth <= 0 || len(text) <= maxWidth {
		return text
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	var lines []string
	var current strings.Builder
	for _, word := range words {
		switch {
		case current.Len() == 0:
			current.WriteString(word)
		case current.Len()+1+len(word) <= maxWidth:
			current.WriteString(" ")
			current.WriteString(word)
		default:
			lines = append(lines, current.String())
			current.Reset()
			current.WriteString(word)
		}
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return strings.Join(lines, "\n")
}
