// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath string
	dataDir    string
	portFlag   int

	rootCmd = &cobra.Command{
		Use:   "avatarcore",
		Short: "The AvatarCore autonomous avatar orchestrator",
		Long: `AvatarCore runs the avatar's cognitive core: a mission state
				machine, an autonomous loop and the HTTP surface the console
				and game channels talk to.`,
		Run: runServe, // Defined in main.go
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the core HTTP server and the autonomous loop",
		Run:   runServe,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml",
		"Path to the core configuration file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "data",
		"Directory for durable mission state and event logs")
	rootCmd.PersistentFlags().IntVar(&portFlag, "port", 0,
		"Listen port override (defaults to the configured server.port)")

	rootCmd.AddCommand(serveCmd)
}
