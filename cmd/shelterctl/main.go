// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shelterops/bedhold/internal/bed"
	"github.com/shelterops/bedhold/internal/intent"
	"github.com/shelterops/bedhold/internal/reservation"
	"github.com/shelterops/bedhold/internal/service"
	"github.com/shelterops/bedhold/internal/session"
	"github.com/shelterops/bedhold/internal/telephony"
	"github.com/shelterops/bedhold/internal/telephony/sim"
	"github.com/shelterops/bedhold/pkg/config"
	"github.com/shelterops/bedhold/pkg/metrics"
	"github.com/spf13/cobra"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = ""
	Commit    = ""

	// Global flags
	serverAddr string
	staffToken string
	outputFmt  string

	rootCmd = &cobra.Command{
		Use:     "shelterctl",
		Short:   "Operator CLI for the shelter bed allocation engine",
		Long:    `A command-line interface for staff to inspect and manage bed allocation, reservations, and the expiration sweep.`,
		Version: Version,
	}
)

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime)

	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", envOrDefault("SHELTER_ADDR", "http://localhost:8080"), "sheltersrv base URL (env: SHELTER_ADDR)")
	rootCmd.PersistentFlags().StringVar(&staffToken, "token", os.Getenv("SHELTER_STAFF_TOKEN"), "staff bearer token (env: SHELTER_STAFF_TOKEN)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "output format: table, json")

	rootCmd.AddCommand(bedsCmd, reservationsCmd, expireCmd, simulateCallCmd, versionCmd, docsCmd)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func client() *apiClient {
	return newAPIClient(serverAddr, staffToken)
}

func printOutput(data any) error {
	if outputFmt == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("shelterctl version %s\n", Version)
		if BuildTime != "" {
			fmt.Printf("Build Time: %s\n", BuildTime)
		}
		if Commit != "" {
			fmt.Printf("Commit:     %s\n", Commit)
		}
	},
}

// Beds command

var bedsCmd = &cobra.Command{
	Use:   "beds",
	Short: "Inspect bed inventory",
}

var bedsSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Show bed status counts",
	Run: func(cmd *cobra.Command, args []string) {
		summary, err := client().BedSummary()
		if err != nil {
			log.Fatal(err)
		}
		if outputFmt == "table" {
			fmt.Printf("Available: %d\n", summary.Available)
			fmt.Printf("Held:      %d\n", summary.Held)
			fmt.Printf("Occupied:  %d\n", summary.Occupied)
			fmt.Printf("Total:     %d\n", summary.Total)
			return
		}
		_ = printOutput(summary)
	},
}

var bedsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every bed and its status",
	Run: func(cmd *cobra.Command, args []string) {
		beds, err := client().BedList()
		if err != nil {
			log.Fatal(err)
		}
		if outputFmt == "table" {
			fmt.Printf("%-6s %-10s\n", "BED", "STATUS")
			fmt.Println(strings.Repeat("-", 18))
			for _, b := range beds {
				fmt.Printf("%-6d %-10s\n", b.ID, b.Status)
			}
			return
		}
		_ = printOutput(beds)
	},
}

func init() {
	bedsCmd.AddCommand(bedsSnapshotCmd, bedsListCmd)
}

// Reservations command

var reservationsCmd = &cobra.Command{
	Use:   "reservations",
	Short: "Inspect and manage reservations",
}

var reservationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active reservations",
	Run: func(cmd *cobra.Command, args []string) {
		active, err := client().ActiveReservations()
		if err != nil {
			log.Fatal(err)
		}
		if outputFmt == "table" {
			fmt.Printf("%-12s %-6s %-20s %-10s %-25s\n", "CODE", "BED", "CALLER", "STATUS", "EXPIRES")
			fmt.Println(strings.Repeat("-", 80))
			for _, r := range active.Reservations {
				fmt.Printf("%-12s %-6d %-20s %-10s %-25s\n",
					r.Code, r.BedID, r.CallerName, r.Status, r.ExpiresAt.Format(time.RFC3339))
			}
			fmt.Printf("\nTotal: %d active, as of %s\n", len(active.Reservations), active.AsOf.Format(time.RFC3339))
			return
		}
		_ = printOutput(active)
	},
}

var reservationsCancelCmd = &cobra.Command{
	Use:   "cancel RESERVATION_CODE",
	Short: "Cancel a reservation and free its bed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := client().CancelReservation(args[0]); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Reservation %s cancelled\n", args[0])
	},
}

func init() {
	reservationsCmd.AddCommand(reservationsListCmd, reservationsCancelCmd)
}

// Expire command

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Run the expiration sweep on demand",
}

var expireSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Trigger an immediate expiration sweep",
	Run: func(cmd *cobra.Command, args []string) {
		expired, err := client().ExpireSweep()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Swept %d expired reservation(s)\n", expired)
	},
}

func init() {
	expireCmd.AddCommand(expireSweepCmd)
}

// simulate-call command drives a call session entirely in-process
// against a fresh, isolated inventory — it never talks to a running
// sheltersrv, since exercising a voice flow doesn't need one.

var (
	simulateTotalBeds int
	simulateScript    string
	simulateLanguage  string
)

var simulateCallCmd = &cobra.Command{
	Use:   "simulate-call",
	Short: "Run a scripted call through the session state machine",
	Long: `Drives internal/session.Session with a scripted or interactive
line of caller utterances against an isolated in-memory bed inventory,
printing every phrase the session speaks back. Useful for exercising
the call flow without a phone bridge.`,
	Run: func(cmd *cobra.Command, args []string) {
		script, err := loadScript(simulateScript)
		if err != nil {
			log.Fatal(err)
		}

		registry := bed.NewRegistry(simulateTotalBeds)
		registry.Initialize()
		store := reservation.NewMemStore()
		guard := &sync.Mutex{}
		svc := service.New(registry, store, guard, 3, nil, metrics.NoOpCollector{})
		chapelSlots := config.NewDefault().ChapelTimeSlots
		chapel := service.NewChapelBook(chapelSlots)
		volunteers := service.NewVolunteerBook()
		tools := intent.NewTools(svc, chapel, volunteers, 3*time.Hour)
		router := intent.NewRouter(config.DefaultCrisisKeywords())
		sess := session.New("simulate-call", router, tools, 10*time.Second, 1)

		transport := sim.New(sim.Call{ID: "simulate-call", Language: simulateLanguage}, script)
		ctx := cmd.Context()
		if err := telephony.Drive(ctx, transport, sess, simulateLanguage); err != nil {
			log.Fatal(err)
		}

		for i, line := range script {
			fmt.Printf("CALLER: %s\n", line)
			if i < len(transport.Transcript()) {
				fmt.Printf("AGENT:  %s\n", transport.Transcript()[i])
			}
		}
	},
}

func init() {
	simulateCallCmd.Flags().IntVar(&simulateTotalBeds, "beds", 10, "total beds in the simulated inventory")
	simulateCallCmd.Flags().StringVar(&simulateScript, "script", "", "path to a newline-delimited utterance script (default: read from stdin)")
	simulateCallCmd.Flags().StringVar(&simulateLanguage, "language", "en", "caller's detected language (BCP-47-ish code)")
}

func loadScript(path string) ([]string, error) {
	var scanner *bufio.Scanner
	if path == "" {
		scanner = bufio.NewScanner(os.Stdin)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		scanner = bufio.NewScanner(f)
	}

	var lines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
