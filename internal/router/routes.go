// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/sproutai/sprout-tui/internal/auth"
	"github.com/sproutai/sprout-tui/internal/model"
)

// Well-known paths.
const (
	PathLogin     = "/login"
	PathRegister  = "/register"
	PathHome      = "/"
	PathChat      = "/chat"
	PathRemedies  = "/remedies"
	PathDashboard = "/dashboard"
)

// maxRedirects bounds Resolve. The table needs at most three hops.
const maxRedirects = 8

// ErrRedirectLoop is returned when Resolve exceeds maxRedirects.
var ErrRedirectLoop = errors.New("too many redirects")

// ChatPath returns the path of a chat session.
func ChatPath(sessionID string) string {
	if sessionID == "" {
		return PathChat
	}
	return PathChat + "/" + sessionID
}

// ============================================================================
// ROUTE TABLE
// ============================================================================

// Route is one entry of the route table.
type Route struct {
	// Pattern is a path where segments starting with ':' capture a parameter.
	Pattern string
	Page    Page
	// Redirect, when set, sends the route elsewhere after guards pass.
	Redirect string
	// Protected routes require a principal.
	Protected bool
	// Allowed restricts a protected route to these roles; empty means any.
	Allowed []model.Role
}

// Routes is the application route table. Unmatched paths redirect home.
var Routes = []Route{
	{Pattern: PathLogin, Page: PageLogin},
	{Pattern: PathRegister, Page: PageRegister},
	{Pattern: PathHome, Redirect: PathChat, Protected: true},
	{Pattern: PathChat, Page: PageChat, Protected: true},
	{Pattern: PathChat + "/:sessionId", Page: PageChat, Protected: true},
	{Pattern: PathRemedies, Page: PageRemedies, Protected: true},
	{Pattern: PathDashboard, Page: PageDashboard, Protected: true, Allowed: model.StaffRoles},
}

// Match finds the route for path and extracts its parameters.
func Match(path string) (*Route, map[string]string, bool) {
	path = cleanPath(path)
	segments := splitPath(path)

	for i := range Routes {
		route := &Routes[i]
		pattern := splitPath(route.Pattern)
		if len(pattern) != len(segments) {
			continue
		}

		params := map[string]string{}
		ok := true
		for j, seg := range pattern {
			if strings.HasPrefix(seg, ":") {
				if segments[j] == "" {
					ok = false
					break
				}
				params[seg[1:]] = segments[j]
				continue
			}
			if seg != segments[j] {
				ok = false
				break
			}
		}
		if ok {
			return route, params, true
		}
	}
	return nil, nil, false
}

// ============================================================================
// RESOLUTION
// ============================================================================

// Resolution is where a path finally lands.
type Resolution struct {
	// Path is the final path after redirects.
	Path string
	// Page is PageNone while Loading.
	Page   Page
	Params map[string]string
	// Loading is set when auth state has not settled yet.
	Loading bool
	// Redirected is set when Path differs from the requested path. Every
	// redirect in the table replaces the history entry.
	Redirected bool
}

// SessionID returns the :sessionId parameter, if any.
func (r Resolution) SessionID() string {
	return r.Params["sessionId"]
}

// Resolve follows guards and redirects from path until a screen renders.
func Resolve(path string, state auth.State) (Resolution, error) {
	requested := cleanPath(path)
	current := requested

	for hop := 0; hop < maxRedirects; hop++ {
		route, params, ok := Match(current)
		if !ok {
			current = PathHome
			continue
		}

		if route.Protected {
			decision := Guard(state, route.Allowed)
			switch decision.Outcome {
			case OutcomeLoading:
				return Resolution{Path: current, Loading: true, Redirected: current != requested}, nil
			case OutcomeRedirect:
				current = decision.To
				continue
			}
		}

		if route.Redirect != "" {
			current = route.Redirect
			continue
		}

		return Resolution{
			Path:       current,
			Page:       route.Page,
			Params:     params,
			Redirected: current != requested,
		}, nil
	}

	log.Printf("ROUTER_REDIRECT_LOOP | path=%s", requested)
	return Resolution{}, fmt.Errorf("%w: %s", ErrRedirectLoop, requested)
}

func cleanPath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
