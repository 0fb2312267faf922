// Command flatbible converts nested Bible JSON (book → chapter → verse)
// into the flat array structure loaded by the mobile app.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/FocuswithJustin/flatbible/core/canon"
	"github.com/FocuswithJustin/flatbible/core/errors"
	"github.com/FocuswithJustin/flatbible/core/flatten"
	"github.com/FocuswithJustin/flatbible/internal/config"
	"github.com/FocuswithJustin/flatbible/internal/export"
	"github.com/FocuswithJustin/flatbible/internal/loader"
	"github.com/FocuswithJustin/flatbible/internal/logging"
	"github.com/FocuswithJustin/flatbible/internal/report"
	"github.com/FocuswithJustin/flatbible/internal/sqlite"
	"github.com/FocuswithJustin/flatbible/internal/storage"
	"github.com/FocuswithJustin/flatbible/internal/writer"
)

const version = "0.1.0"

// exitCancelled is the status used when the run is interrupted.
const exitCancelled = 130

// CLI defines the command-line interface for flatbible.
type CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" default:"${log_level}" enum:"debug,info,warn,error"`
	LogFormat string `name:"log-format" help:"Log format (json, text)" default:"${log_format}" enum:"json,text"`

	Convert ConvertCmd `cmd:"" default:"withargs" help:"Convert nested Bible JSON to the flat array format"`
	Books   BooksCmd   `cmd:"" help:"Print the canonical book list"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// Globals carries process-wide dependencies into command Run methods.
type Globals struct {
	Ctx    context.Context
	Stdout io.Writer
	Config *config.Config
	// NewUploader creates the object storage client used by --publish.
	NewUploader func(ctx context.Context, cfg storage.Config) (storage.Uploader, error)
}

func defaultUploader(ctx context.Context, cfg storage.Config) (storage.Uploader, error) {
	return storage.NewClient(ctx, cfg)
}

// ConvertCmd runs a conversion.
type ConvertCmd struct {
	Input   string `short:"i" help:"Nested input JSON (.json or .json.xz)" default:"${input}"`
	Output  string `short:"o" help:"Flat output JSON (.json or .json.xz)" default:"${output}"`
	Name    string `short:"n" help:"Translation name written to the output" default:"${name}"`
	Minify  bool   `help:"Write compact JSON without whitespace" default:"${minify}"`
	SQLite  string `name:"sqlite" help:"Also write an SQLite database to this path" default:"${sqlite}"`
	Publish string `help:"Upload written files to s3://bucket/prefix" placeholder:"URL"`
	Quiet   bool   `short:"q" help:"Suppress the progress report"`

	S3Region    string `name:"s3-region" help:"Object storage region" default:"${s3_region}" group:"Publish"`
	S3Endpoint  string `name:"s3-endpoint" help:"Object storage endpoint for S3-compatible services" default:"${s3_endpoint}" group:"Publish"`
	S3PathStyle bool   `name:"s3-path-style" negatable:"" help:"Use path-style bucket addressing" default:"${s3_path_style}" group:"Publish"`
}

func (c *ConvertCmd) Run(g *Globals) error {
	ctx := logging.WithRunID(g.Ctx, uuid.NewString())
	if err := c.run(ctx, g); err != nil {
		logging.ErrorContext(ctx, "conversion_failed", "input", c.Input, "error", err)
		return err
	}
	return nil
}

func (c *ConvertCmd) run(ctx context.Context, g *Globals) error {
	start := time.Now()

	var publisher *storage.Publisher
	if c.Publish != "" {
		dest, err := storage.ParseDestination(c.Publish)
		if err != nil {
			return err
		}
		client, err := g.NewUploader(ctx, storage.Config{
			Region:    c.S3Region,
			Endpoint:  c.S3Endpoint,
			AccessKey: g.Config.S3.AccessKey,
			SecretKey: g.Config.S3.SecretKey,
			PathStyle: c.S3PathStyle,
		})
		if err != nil {
			return err
		}
		publisher = storage.NewPublisher(client, dest)
		logging.InfoContext(ctx, "publish_enabled", "destination", dest.String(), "region", c.S3Region)
	}

	out := g.Stdout
	if c.Quiet {
		out = io.Discard
	}
	console := report.NewConsole(out)
	console.Banner("BIBLE JSON CONVERTER")

	logging.ConversionStarted(ctx, c.Name, c.Input, "output", c.Output, "minify", c.Minify)
	console.Loading(c.Input)
	in, err := loader.Load(c.Input)
	if err != nil {
		return err
	}
	console.Loaded(in)

	doc, stats, err := flatten.Flatten(in, c.Name, flatten.WithReporter(report.Multi{console, report.Log{}}))
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := writer.Write(doc, c.Output, writer.Options{Minify: c.Minify})
	if err != nil {
		return err
	}
	logging.ArtifactWritten(ctx, "json", res.Path, res.Bytes, "blake3", res.BLAKE3, "compressed", res.Compressed)
	console.Saved(res.Path, res.Bytes, res.BLAKE3)
	artifacts := []string{res.Path}

	if c.SQLite != "" {
		exp, err := export.Export(ctx, doc, c.SQLite)
		if err != nil {
			return err
		}
		for _, r := range exp.Renumbered {
			logging.WarnContext(ctx, "book_renumbered", "book", r.Name, "from", r.From, "to", r.To, "path", exp.Path)
		}
		digest, err := writer.Digest(exp.Path)
		if err != nil {
			return err
		}
		logging.ArtifactWritten(ctx, "sqlite", exp.Path, exp.Bytes,
			"blake3", digest,
			"export_id", exp.ExportID,
			"driver", sqlite.DriverName(),
		)
		console.Saved(exp.Path, exp.Bytes, digest)
		artifacts = append(artifacts, exp.Path)
	}

	if publisher != nil {
		for _, path := range artifacts {
			obj, err := publisher.Publish(ctx, path)
			if err != nil {
				return err
			}
			logging.ArtifactPublished(ctx, obj.Bucket, obj.Key, obj.Size, "content_type", obj.ContentType)
			console.Published("s3://"+obj.Bucket+"/"+obj.Key, obj.Size)
		}
	}

	logging.ConversionFinished(ctx, stats.Books, stats.Chapters, stats.Verses, time.Since(start),
		"normalized", stats.Normalized,
		"unrecognized", len(stats.Unrecognized),
	)
	fmt.Fprintln(out)
	console.Sample(doc)
	return nil
}

// BooksCmd prints the canonical registry.
type BooksCmd struct {
	Aliases bool `help:"Also print accepted alternate names"`
}

func (c *BooksCmd) Run(g *Globals) error {
	console := report.NewConsole(g.Stdout)
	console.Books(canon.Books())

	if c.Aliases {
		aliases := canon.Aliases()
		keys := make([]string, 0, len(aliases))
		for k := range aliases {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintln(g.Stdout)
		for _, k := range keys {
			fmt.Fprintf(g.Stdout, "%-22s -> %s\n", k, aliases[k])
		}
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	info := sqlite.GetInfo()
	fmt.Fprintf(g.Stdout, "flatbible version %s\n", version)
	fmt.Fprintf(g.Stdout, "  sqlite driver: %s (%s, %s)\n", info.DriverName, info.DriverType, info.Package)
	return nil
}

func newParser(cli *CLI, cfg *config.Config, options ...kong.Option) (*kong.Kong, error) {
	opts := []kong.Option{
		kong.Name("flatbible"),
		kong.Description("Flatten nested Bible JSON for mobile databases"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars(cfg.Vars()),
	}
	return kong.New(cli, append(opts, options...)...)
}

// initLogging configures the global logger from the parsed flags.
func initLogging(cli *CLI) error {
	level, err := logging.ParseLevel(cli.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(cli.LogFormat)
	if err != nil {
		return err
	}
	logging.InitLogger(level, format)
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Error("config_load_failed", "error", err)
		fmt.Fprintf(os.Stderr, "flatbible: error: %v\n", err)
		os.Exit(1)
	}

	var cli CLI
	parser, err := newParser(&cli, cfg)
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	ctx.FatalIfErrorf(initLogging(&cli))

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = ctx.Run(&Globals{
		Ctx:         sigCtx,
		Stdout:      os.Stdout,
		Config:      cfg,
		NewUploader: defaultUploader,
	})
	stop()

	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "\nCancelled by user")
		os.Exit(exitCancelled)
	}
	ctx.FatalIfErrorf(err)
}
