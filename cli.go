package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"oamdma/emu/log"
)

type mode byte

const (
	runMode     mode = iota // Run a single transfer
	sweepMode               // Transfer many pages
	configMode              // Print configuration
	sessionsMode            // List recorded sessions
	versionMode             // Show version
)

type (
	CLI struct {
		Run      Run         `cmd:"" help:"Run an OAM DMA transfer." default:"withargs"`
		Sweep    Sweep       `cmd:"" help:"Transfer a range of pages, each on its own system."`
		Config   PrintConfig `cmd:"" help:"Print the effective configuration."`
		Sessions Sessions    `cmd:"" help:"List the sessions recorded in a database."`
		Version  Version     `cmd:"" help:"Show version."`

		Log logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`

		mode mode
	}

	Run struct {
		Page       hexByte       `name:"page" help:"Page to transfer (hex)." default:"02"`
		ConfigPath string        `name:"config" help:"${config_help}" type:"existingfile"`
		Load       string        `name:"load" help:"Binary file loaded into memory before the transfer." type:"existingfile"`
		LoadAddr   hexAddr       `name:"load-addr" help:"Address at which --load is loaded (hex). Defaults to the start of the page."`
		Trace      *outfile      `name:"trace" help:"Write cycle trace." placeholder:"FILE|stdout|stderr"`
		Format     string        `name:"trace-format" help:"Trace format, overrides the configuration."`
		Record     string        `name:"record" help:"Record cycles into a SQLite database." type:"path"`
		Timeout    time.Duration `name:"timeout" help:"Abort the transfer after this duration (0 means no timeout)." default:"0s"`
		DumpOAM    bool          `name:"dump-oam" help:"Print the OAM contents after the transfer."`
		Restore    string        `name:"restore" help:"Restore a system snapshot before the transfer." type:"existingfile"`
		SaveState  string        `name:"save-state" help:"Write a system snapshot after the transfer." type:"path"`
	}

	Sweep struct {
		ConfigPath string  `name:"config" help:"${config_help}" type:"existingfile"`
		From       hexByte `name:"from" help:"First page (hex)." default:"00"`
		To         hexByte `name:"to" help:"Last page (hex)." default:"FF"`
		Jobs       int     `name:"jobs" short:"j" help:"Number of concurrent systems, overrides the configuration."`
	}

	PrintConfig struct {
		ConfigPath string `name:"config" help:"${config_help}" type:"existingfile"`
	}

	Sessions struct {
		DB string `arg:"" name:"db" help:"Database written by run --record." type:"existingfile"`
	}

	Version struct{}
)

var vars = kong.Vars{
	"log_help":    "Enable logging for specified modules.",
	"config_help": "TOML configuration file. Defaults are used if not set.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("oamdma"),
		kong.Description("Cycle-accurate OAM DMA transfer simulator."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	// Commands with positional arguments are reported as "name <arg>".
	switch cmd, _, _ := strings.Cut(ctx.Command(), " "); cmd {
	case "sweep":
		cfg.mode = sweepMode
	case "config":
		cfg.mode = configMode
	case "sessions":
		cfg.mode = sessionsMode
	case "version":
		cfg.mode = versionMode
	default:
		cfg.mode = runMode
	}
	return cfg
}

// printHelp appends the list of log modules to kong's usage.
func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	w := ctx.Stdout
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Log modules (--log takes a comma-separated list):")
	for _, name := range log.ModuleNames() {
		fmt.Fprintf(w, "  %s\n", name)
	}
	fmt.Fprintln(w, "  all    every module")
	fmt.Fprintln(w, "  no     disable logging entirely")
	return nil
}

// logModMask enables debug logs for the modules listed on the command line.
type logModMask log.ModuleMask

func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	var list string
	if err := ctx.Scan.PopValueInto("modules", &list); err != nil {
		return err
	}
	names := strings.Split(list, ",")
	switch {
	case slices.Contains(names, "no"):
		if len(names) > 1 {
			return fmt.Errorf("--log=no cannot be combined with %q", list)
		}
		log.Disable()
		return nil
	case slices.Contains(names, "all"):
		log.EnableDebugModules(log.ModuleMaskAll)
		return nil
	}

	var mask log.ModuleMask
	for _, name := range names {
		mod, ok := log.ModuleByName(name)
		if !ok {
			return fmt.Errorf("unknown log module %q", name)
		}
		mask |= mod.Mask()
	}
	log.EnableDebugModules(mask)
	return nil
}

// hexByte is a byte given in hexadecimal, with an optional $ or 0x prefix.
type hexByte uint8

// Implements kong.MapperValue interface.
func (h *hexByte) Decode(ctx *kong.DecodeContext) error {
	var s string
	if err := ctx.Scan.PopValueInto("page", &s); err != nil {
		return err
	}
	v, err := parseHex(s, 8)
	if err != nil {
		return err
	}
	*h = hexByte(v)
	return nil
}

// hexAddr is a 16-bit address given in hexadecimal, with an optional $ or 0x
// prefix.
type hexAddr struct {
	addr uint16
	set  bool
}

// Implements kong.MapperValue interface.
func (h *hexAddr) Decode(ctx *kong.DecodeContext) error {
	var s string
	if err := ctx.Scan.PopValueInto("address", &s); err != nil {
		return err
	}
	v, err := parseHex(s, 16)
	if err != nil {
		return err
	}
	h.addr, h.set = uint16(v), true
	return nil
}

func parseHex(s string, bits int) (uint64, error) {
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	v, err := strconv.ParseUint(s, 16, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid %d-bit hex value %q", bits, s)
	}
	return v, nil
}

// outfile is an output file argument; stdout and stderr are recognized.
type outfile struct {
	io.Writer
	name string
}

func (f *outfile) Decode(ctx *kong.DecodeContext) error {
	if err := ctx.Scan.PopValueInto("file", &f.name); err != nil {
		return err
	}
	switch f.name {
	case "stdout":
		f.Writer = os.Stdout
	case "stderr":
		f.Writer = os.Stderr
	default:
		fd, err := os.Create(f.name)
		if err != nil {
			return err
		}
		f.Writer = fd
	}
	return nil
}

func (f *outfile) String() string { return f.name }

// Close closes the underlying file, unless it's a standard stream.
func (f *outfile) Close() error {
	if fd, ok := f.Writer.(*os.File); ok && fd != os.Stdout && fd != os.Stderr {
		return fd.Close()
	}
	return nil
}

func checkf(err error, format string, args ...any) {
	if err != nil {
		fatalf("%s: %v", fmt.Sprintf(format, args...), err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "oamdma: "+format+"\n", args...)
	os.Exit(1)
}
