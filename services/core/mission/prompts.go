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

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// JSON schemas quoted in proposal and repair prompts.
const (
	goalsSchema   = `{"goals": [{"name": "goal name"}]}`
	tasksSchema   = `{"tasks": [{"name": "task name", "trigger": "condition (if)", "response": "action (then)"}]}`
	commandSchema = `{"command": "bash command or null", "summary": "one-line summary"}`
	judgeSchema   = `{"achieved": true, "reason": "one-line reason"}`
)

// SystemPrompt renders the persona and operating principles, including the
// runtime environment and the current plan. Injected into every new chat.
func (m *Machine) SystemPrompt() string {
	cfg := m.cfg.Get()
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.\n", m.avatarName())
	fmt.Fprintf(&b, "You think and act autonomously to achieve the purpose set by %s.\n\n", m.userName())
	b.WriteString("## Operating principles\n")
	b.WriteString("1. Keep the purpose in mind and work toward it\n")
	b.WriteString("2. If there is no goal, derive goals from the purpose\n")
	b.WriteString("3. If there are no tasks, derive tasks from the goal\n")
	b.WriteString("4. Decide the next single move and carry it out\n")
	b.WriteString("5. Any action beyond conversation requires approval\n\n")
	b.WriteString(m.envContext())
	b.WriteString("\n\n")
	b.WriteString(m.stateContext())
	b.WriteString("\n\n## Base configuration\n")
	b.WriteString(cfg.SystemPrompt)
	b.WriteString("\n")
	return b.String()
}

// envContext describes the host the avatar operates on.
func (m *Machine) envContext() string {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "unknown"
	}
	return fmt.Sprintf("## Runtime Environment\n- OS: %s/%s\n- Shell: %s\n- CWD: %s",
		runtime.GOOS, runtime.GOARCH, shell, m.cfg.Get().WorkspaceRoot())
}

// stateContext renders the current plan tree for prompt injection.
func (m *Machine) stateContext() string {
	snap := m.state.Snapshot()

	unset := "(unset)"
	purpose := snap.Mission.Purpose
	if purpose == "" {
		purpose = unset
	}
	purposeType := string(snap.Mission.PurposeType)
	if purposeType == "" {
		purposeType = unset
	}

	var goals strings.Builder
	if len(snap.Mission.Goals) == 0 {
		goals.WriteString("(none)")
	} else {
		for _, g := range snap.Mission.Goals {
			fmt.Fprintf(&goals, "- %s: %s (%s)\n", g.ID, g.Name, g.Status)
			for _, t := range g.Tasks {
				fmt.Fprintf(&goals, "  - %s: %s (%s)\n", t.ID, t.Name, t.Status)
			}
		}
	}

	return fmt.Sprintf("[Current State]\nPurpose: %s\nPurpose Type: %s\nGoals & Tasks:\n%s",
		purpose, purposeType, strings.TrimRight(goals.String(), "\n"))
}

// goalProposalPrompt asks for a goal list under the standing constraints.
func goalProposalPrompt(purpose string, existingNames []string, feedback string) string {
	var b strings.Builder
	b.WriteString("[Goal generation]\n")
	b.WriteString("Propose a necessary and sufficient set of goals for the purpose below.\n")
	b.WriteString("[Constraints]\n")
	b.WriteString("- Goals must be simple and actionable\n")
	b.WriteString("- Each goal must decompose into at least 2 tasks\n")
	b.WriteString("- Work that fits in a single cycle is a task, not a goal\n")
	b.WriteString("- Security scanning, network attacks and system intrusion are forbidden\n")
	b.WriteString("- File operations only inside the working directory\n")
	b.WriteString("[Output]\n")
	b.WriteString("- Exactly one JSON object, no surrounding text or code fences\n")
	b.WriteString("- Double quotes only, the only key is goals, no trailing commas\n")
	b.WriteString("- Self-check JSON validity before answering\n")
	if len(existingNames) > 0 {
		fmt.Fprintf(&b, "Existing goals: %s\nPropose new goals distinct from these.\n", strings.Join(existingNames, ", "))
	}
	if feedback != "" {
		fmt.Fprintf(&b, "Operator revision request: %s\n", feedback)
	}
	fmt.Fprintf(&b, "Answer in JSON: %s\n", goalsSchema)
	fmt.Fprintf(&b, "Purpose: %s", purpose)
	return b.String()
}

// taskProposalPrompt asks for a task list for one goal.
func taskProposalPrompt(purpose, goalName string, completedNames []string, feedback string) string {
	var b strings.Builder
	b.WriteString("[Task generation]\n")
	b.WriteString("Propose a necessary and sufficient set of tasks for the goal below.\n")
	b.WriteString("[Constraints]\n")
	b.WriteString("- One task must be completable in a single cycle\n")
	b.WriteString("- Tasks must be simple and actionable\n")
	b.WriteString("- Propose at least 2 tasks\n")
	b.WriteString("- Security scanning and network attack tools (nmap, nikto, ...) are forbidden\n")
	b.WriteString("- File operations only inside the working directory\n")
	b.WriteString("- Do not repeat completed tasks\n")
	b.WriteString("[Output]\n")
	b.WriteString("- Exactly one JSON object, no surrounding text or code fences\n")
	b.WriteString("- Double quotes only, the only key is tasks, no trailing commas\n")
	b.WriteString("- Self-check JSON validity before answering\n")
	if len(completedNames) > 0 {
		fmt.Fprintf(&b, "Completed tasks: %s\n", strings.Join(completedNames, ", "))
	}
	if feedback != "" {
		fmt.Fprintf(&b, "Operator revision request: %s\n", feedback)
	}
	fmt.Fprintf(&b, "Answer in JSON: %s\n", tasksSchema)
	fmt.Fprintf(&b, "Purpose: %s\nGoal: %s\nPropose the tasks needed to achieve this goal.", purpose, goalName)
	return b.String()
}

// commandPrompt asks how to execute one task.
func commandPrompt(envContext, stateContext, taskName, feedback string) string {
	var b strings.Builder
	b.WriteString(envContext)
	b.WriteString("\n\n")
	b.WriteString(stateContext)
	b.WriteString("\n\n[Task execution]\n")
	b.WriteString("Propose the command that executes the task below.\n")
	fmt.Fprintf(&b, "Answer in JSON: %s\n", commandSchema)
	b.WriteString(`For a task completed by conversation alone answer: {"command": null, "summary": "reason"}` + "\n")
	b.WriteString("Exactly one JSON object, no surrounding text, markdown or comments\n")
	fmt.Fprintf(&b, "Task: %s", taskName)
	if feedback != "" {
		fmt.Fprintf(&b, "\nAdditional context: %s", feedback)
	}
	return b.String()
}

// goalJudgePrompt asks whether a goal is achieved, for the auto completion
// strategy.
func goalJudgePrompt(goalName string, taskLines []string) string {
	var b strings.Builder
	b.WriteString("[Goal completion check]\n")
	fmt.Fprintf(&b, "Goal: %s\n", goalName)
	b.WriteString("Task outcomes:\n")
	for _, line := range taskLines {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	fmt.Fprintf(&b, "Judge whether the goal has been achieved. Answer in JSON: %s\n", judgeSchema)
	b.WriteString("Exactly one JSON object, no surrounding text.")
	return b.String()
}
