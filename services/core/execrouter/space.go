// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package execrouter

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SpaceViolation describes a working directory outside the workspace root.
// Blocked is true only for autonomous authority; human-originated requests
// are warned and allowed. This asymmetry is the core privilege boundary.
type SpaceViolation struct {
	Path      string
	Space     string
	Authority Authority
	Blocked   bool
	Message   string
}

// checkSpace returns nil when the request respects the workspace boundary.
// Only terminal requests with an explicit cwd are checked.
func (r *Router) checkSpace(req Request) *SpaceViolation {
	if req.Backend != BackendTerminal || req.Cwd == "" {
		return nil
	}
	if PathInSpace(req.Cwd, r.space) {
		return nil
	}
	blocked := req.Authority == AuthorityAvatar
	var message string
	if blocked {
		message = fmt.Sprintf("Avatar Space violation: %s is outside Avatar Space %s", req.Cwd, r.space)
	} else {
		message = fmt.Sprintf("Warning: %s is outside Avatar Space %s", req.Cwd, r.space)
	}
	return &SpaceViolation{
		Path:      req.Cwd,
		Space:     r.space,
		Authority: req.Authority,
		Blocked:   blocked,
		Message:   message,
	}
}

// PathInSpace reports whether path resolves to space or a descendant of it.
func PathInSpace(path, space string) bool {
	if path == "" || space == "" {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absSpace, err := filepath.Abs(space)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	absSpace = filepath.Clean(absSpace)
	if absPath == absSpace {
		return true
	}
	return strings.HasPrefix(absPath, absSpace+string(filepath.Separator))
}
