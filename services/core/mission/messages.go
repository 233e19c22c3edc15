// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mission

// The console speaks the operator's configured language. Fixed strings keep
// a ja/en pair; free-form cognition output is passed through untranslated.

func (m *Machine) language() string {
	return m.cfg.Get().User.Language
}

// msg picks the fixed string for the configured language.
func (m *Machine) msg(ja, en string) string {
	if m.language() == "en" {
		return en
	}
	return ja
}

func (m *Machine) avatarName() string {
	name := m.cfg.Get().Avatar.Name
	if name == "" {
		return "Avatar"
	}
	return name
}

func (m *Machine) userName() string {
	name := m.cfg.Get().User.Name
	if name == "" {
		return "User"
	}
	return name
}
