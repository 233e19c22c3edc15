// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cognition

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	// rawQuoteLimit bounds how much of the invalid output is quoted back
	// to the provider in the repair instruction.
	rawQuoteLimit = 2000
	// rawPreviewLimit bounds the raw excerpt attached to llm_error events.
	rawPreviewLimit = 500
)

// ContractError reports that both attempts of the JSON negotiation failed.
// The caller must surface it to a human phase, never proceed with a
// malformed decision.
type ContractError struct {
	Stage      string
	RawPreview string
	RawLen     int
	Err        error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("cognition contract failed at %s: %v", e.Stage, e.Err)
}

func (e *ContractError) Unwrap() error { return e.Err }

// Negotiate submits prompt and requires a single JSON object matching T.
// On a parse or validation failure it appends one repair instruction quoting
// the invalid output (truncated) and retries exactly once. A second failure
// returns a *ContractError carrying a raw preview for the llm_error event.
// track, when non-nil, is called for every billed reply.
func Negotiate[T any](ctx context.Context, client Client, chat *Chat, stage, prompt, schema string, opts Options, track func(Reply), check func(*T) error) (*T, error) {
	message := prompt
	var raw string
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		raw = ""
		reply, err := client.Complete(ctx, chat, message, opts)
		if err != nil {
			lastErr = err
		} else {
			if track != nil {
				track(reply)
			}
			raw = reply.Text
			out := new(T)
			if err := json.Unmarshal([]byte(raw), out); err != nil {
				lastErr = fmt.Errorf("invalid JSON: %w", err)
			} else if check != nil {
				if err := check(out); err != nil {
					lastErr = err
				} else {
					return out, nil
				}
			} else {
				return out, nil
			}
		}

		if attempt == 0 {
			message = repairPrompt(schema, raw)
		}
	}

	return nil, &ContractError{
		Stage:      stage,
		RawPreview: truncate(raw, rawPreviewLimit),
		RawLen:     len(raw),
		Err:        lastErr,
	}
}

func repairPrompt(schema, raw string) string {
	quoted := truncate(raw, rawQuoteLimit)
	if quoted == "" {
		quoted = "(empty)"
	}
	return "The previous output was not valid JSON. Strictly follow these rules:\n" +
		"- exactly one JSON object, nothing before or after\n" +
		"- double quotes only, no trailing commas\n" +
		"- no markdown, no code fences, no commentary\n" +
		"Schema: " + schema + "\n" +
		"Previous output:\n" + quoted
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
