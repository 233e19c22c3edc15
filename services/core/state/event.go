// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package state

import "encoding/json"

// Event is one line of the append-only event log. Fields are flattened into
// the top-level JSON object next to time and type, matching the on-disk
// format consumed by the console.
type Event struct {
	Time   string
	Type   string
	Fields map[string]any
}

// MarshalJSON flattens Fields into the top-level object.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+2)
	for k, v := range e.Fields {
		out[k] = v
	}
	out["time"] = e.Time
	out["type"] = e.Type
	return json.Marshal(out)
}

// UnmarshalJSON lifts time and type out of the flat object and keeps the
// remainder as Fields.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if t, ok := raw["time"].(string); ok {
		e.Time = t
	}
	if t, ok := raw["type"].(string); ok {
		e.Type = t
	}
	delete(raw, "time")
	delete(raw, "type")
	e.Fields = raw
	return nil
}
