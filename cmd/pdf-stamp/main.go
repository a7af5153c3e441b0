package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/pdf-stamp/internal/config"
	"github.com/ironsheep/pdf-stamp/internal/host"
	"github.com/ironsheep/pdf-stamp/internal/httpapi"
	"github.com/ironsheep/pdf-stamp/internal/pipeline"
	"github.com/ironsheep/pdf-stamp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cmd := "mcp"
	args := []string{}
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}

	switch cmd {
	case "--version", "-v", "version":
		fmt.Printf("pdf-stamp %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case "--help", "-h", "help":
		printUsage(os.Stdout)
		return
	}

	var err error
	switch cmd {
	case "mcp":
		err = runMCP(args)
	case "serve":
		err = runServe(args)
	case "stamp":
		err = runStamp(args, os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		printUsage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdf-stamp: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "pdf-stamp - place an approval stamp on every page of a PDF")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: pdf-stamp [command] [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  mcp              Serve MCP tools over stdin/stdout (default)")
	fmt.Fprintln(w, "  serve            Serve the HTTP upload API")
	fmt.Fprintln(w, "  stamp            Stamp a file from the command line")
	fmt.Fprintln(w, "  version          Print version information")
	fmt.Fprintln(w, "  help             Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Stamp options:")
	fmt.Fprintln(w, "  -in FILE         PDF to stamp")
	fmt.Fprintln(w, "  -identity NAME   Name printed on the stamp")
	fmt.Fprintln(w, "  -out FILE        Output path (default <name>_approved.pdf next to the input)")
	fmt.Fprintln(w, "  -preview FILE    Also write the stamp as PNG")
	fmt.Fprintln(w, "  -config FILE     TOML configuration file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintf(w, "  %s=FILE     TOML configuration file\n", config.EnvConfigFile)
	fmt.Fprintf(w, "  %s=8080       HTTP port for serve\n", config.EnvPort)
	fmt.Fprintf(w, "  %s=BYTES   Upload size limit\n", config.EnvMaxFileSize)
	fmt.Fprintf(w, "  %s=debug  Log level (debug, info, warn, error)\n", config.EnvLogLevel)
}

// loadConfig reads the configuration from the environment; a non-empty path
// replaces the file named by the environment.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.FromEnv()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// newLogger returns a logger writing to stderr; stdout belongs to MCP.
func newLogger(level string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(lvl)
	return logger, nil
}

// setup loads the configuration and builds the shared pipeline.
func setup(configPath string) (*config.Config, *logrus.Logger, *pipeline.Stamper, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, pipeline.New(cfg, host.NewSystem(), logger), nil
}

func runMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	configPath := fs.String("config", "", "TOML configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, logger, stamper, err := setup(*configPath)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
	}).Debug("MCP server starting")

	server.Version = Version
	return server.New(stamper, logger).Run()
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "TOML configuration file")
	port := fs.String("port", "", "HTTP port (overrides configuration)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, stamper, err := setup(*configPath)
	if err != nil {
		return err
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	logger.WithField("max_file_size", cfg.Server.MaxFileSize).Info("HTTP API configured")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return httpapi.Serve(ctx, ":"+cfg.Server.Port, httpapi.NewRouter(stamper, logger), logger)
}

func runStamp(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("stamp", flag.ContinueOnError)
	in := fs.String("in", "", "PDF to stamp")
	identity := fs.String("identity", "", "name printed on the stamp")
	out := fs.String("out", "", "output path")
	preview := fs.String("preview", "", "write the stamp as PNG")
	configPath := fs.String("config", "", "TOML configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" && *preview == "" {
		return fmt.Errorf("stamp needs -in or -preview")
	}

	_, _, stamper, err := setup(*configPath)
	if err != nil {
		return err
	}
	return stampFile(stamper, *in, *identity, *out, *preview, stdout)
}

// stampFile stamps in (when set) and writes the stamp image to preview (when set).
func stampFile(stamper *pipeline.Stamper, in, identity, out, preview string, stdout io.Writer) error {
	if in == "" {
		st, err := stamper.Preview(identity)
		if err != nil {
			return err
		}
		if err := imgio.Save(preview, st.Image, imgio.PNGEncoder()); err != nil {
			return fmt.Errorf("failed to write preview: %w", err)
		}
		fmt.Fprintf(stdout, "Preview written to %s\n", preview)
		return nil
	}

	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", in, err)
	}
	res, err := stamper.Process(pipeline.Request{
		Document: data,
		FileName: filepath.Base(in),
		Identity: identity,
	})
	if err != nil {
		return err
	}

	if out == "" {
		out = filepath.Join(filepath.Dir(in), res.FileName)
	}
	if err := os.WriteFile(out, res.Document, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	if preview != "" {
		if err := imgio.Save(preview, res.Stamp.Image, imgio.PNGEncoder()); err != nil {
			return fmt.Errorf("failed to write preview: %w", err)
		}
	}

	fmt.Fprintf(stdout, "Stamped %d page(s) -> %s\n", res.PageCount, out)
	fmt.Fprintf(stdout, "Placement: %s at x=%d y=%d\n", res.Placement.Kind, res.Placement.X, res.Placement.Y)
	return nil
}
