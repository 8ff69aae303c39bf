package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"oamdma/emu"
)

func main() {
	cfg := parseArgs(os.Args[1:])

	switch cfg.mode {
	case runMode:
		runMain(cfg.Run)
	case sweepMode:
		sweepMain(cfg.Sweep)
	case configMode:
		ecfg := loadConfig(cfg.Config.ConfigPath)
		checkf(emu.WriteConfig(os.Stdout, ecfg), "failed to write configuration")
	case sessionsMode:
		infos, err := emu.Sessions(cfg.Sessions.DB)
		checkf(err, "failed to list sessions")
		printSessions(os.Stdout, infos)
	case versionMode:
		printVersion()
	}
}

// loadConfig loads the configuration file at path, or returns the default
// configuration if path is empty.
func loadConfig(path string) emu.Config {
	if path == "" {
		return emu.DefaultConfig()
	}
	cfg, err := emu.LoadConfig(path)
	checkf(err, "failed to load configuration")
	return cfg
}

func printVersion() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		fmt.Println("oamdma (unknown version)")
		return
	}
	fmt.Println("oamdma", bi.Main.Version, bi.GoVersion)
}
