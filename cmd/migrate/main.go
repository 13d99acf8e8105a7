package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lukeswagga/discord-auction-bot/internal/app/config"
	"github.com/lukeswagga/discord-auction-bot/internal/database"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// Colors for output
const (
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
	colorNC     = "\033[0m"
)

const configPath = "configs"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "up":
		withMigrator(func(m *database.Migrator) error {
			printInfo("Applying pending migrations...")
			return m.Up()
		})
	case "down":
		steps := parseIntArg(2, "number of migrations to roll back")
		withMigrator(func(m *database.Migrator) error {
			printWarning(fmt.Sprintf("Rolling back %d migration(s)...", steps))
			return m.Down(steps)
		})
	case "force":
		version := parseIntArg(2, "version number")
		if !confirmAction(fmt.Sprintf("Force schema version to %d? (y/N): ", version)) {
			printWarning("Operation cancelled")
			return
		}
		withMigrator(func(m *database.Migrator) error {
			return m.Force(version)
		})
	case "version", "status":
		withMigrator(showVersion)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Listing store migrations")
	fmt.Println("")
	fmt.Println("Usage: migrate <command> [arguments]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  up                    - Apply all pending migrations")
	fmt.Println("  down <n>              - Roll back n migrations")
	fmt.Println("  force <version>       - Force the recorded schema version")
	fmt.Println("  version               - Show the applied schema version")
	fmt.Println("")
	fmt.Println("The database URL comes from DATABASE_URL or db_url in configs/config.yaml.")
}

func withMigrator(fn func(m *database.Migrator) error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fatalError("Failed to load config: " + err.Error())
	}
	if cfg.DBURL == "" {
		fatalError("Database URL is not configured")
	}

	printInfo("Migrations: " + cfg.MigrationsPath)

	m, err := database.NewMigrator(cfg.MigrationsPath, cfg.DBURL, logger.NewNop())
	if err != nil {
		fatalError(err.Error())
	}
	defer m.Close()

	if err := fn(m); err != nil {
		fatalError(err.Error())
	}
	printSuccess("Done")
}

func showVersion(m *database.Migrator) error {
	version, dirty, ok, err := m.Version()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("No migrations have been applied yet")
		return nil
	}

	fmt.Printf("Version: %d\n", version)
	if dirty {
		printWarning("Database is in a dirty state, fix the failed migration and use force")
	}
	return nil
}

func printError(message string) {
	fmt.Printf("%s%s%s\n", colorRed, message, colorNC)
}

func printSuccess(message string) {
	fmt.Printf("%s%s%s\n", colorGreen, message, colorNC)
}

func printWarning(message string) {
	fmt.Printf("%s%s%s\n", colorYellow, message, colorNC)
}

func printInfo(message string) {
	fmt.Printf("%s%s%s\n", colorBlue, message, colorNC)
}

func confirmAction(prompt string) bool {
	fmt.Print(prompt)
	response, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func fatalError(message string) {
	printError(message)
	os.Exit(1)
}

func parseIntArg(argIndex int, argName string) int {
	if len(os.Args) <= argIndex {
		fatalError("Please specify the " + argName)
	}

	value, err := strconv.Atoi(os.Args[argIndex])
	if err != nil || value < 0 {
		fatalError(fmt.Sprintf("Invalid %s: %s", argName, os.Args[argIndex]))
	}
	return value
}
