// Package main is the entry point for the tencos CLI.
// tencos is a command-line client for Tencent Cloud Object Storage (COS),
// covering bucket and object operations plus temporary credential issuance.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/tencos/cos"
	"github.com/prn-tf/tencos/internal/config"
	"github.com/prn-tf/tencos/sts"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "version":
		fmt.Printf("tencos\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		return

	case "help", "-h", "--help":
		printUsage()
		return
	}

	cfg := config.MustLoad(os.Getenv("TENCOS_CONFIG"))
	logger := newLogger(cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.COS.Timeout)
	defer cancel()

	var err error
	switch command {
	case "mb":
		err = runMakeBucket(ctx, cfg, logger)
	case "rb":
		err = runRemoveBucket(ctx, cfg, logger)
	case "ls":
		err = runList(ctx, cfg, logger, args)
	case "put":
		err = runPut(ctx, cfg, logger, args)
	case "get":
		err = runGet(ctx, cfg, logger, args)
	case "head":
		err = runHead(ctx, cfg, logger, args)
	case "rm":
		err = runRemove(ctx, cfg, logger, args)
	case "sts":
		err = runSTS(ctx, cfg, logger, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error().Err(err).Str("command", command).Msg("command failed")
		os.Exit(1)
	}
}

// newLogger builds the root logger from the logging section.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: cfg.TimeFormat})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// newCOSClient builds a data-plane client from the cos section.
func newCOSClient(cfg *config.Config, logger zerolog.Logger) (*cos.Client, error) {
	c := cos.NewConfig(cfg.COS.SecretID, cfg.COS.SecretKey, cfg.COS.Region, cfg.COS.Bucket).
		WithTimeout(cfg.COS.Timeout)
	if cfg.COS.SessionToken != "" {
		c = c.WithCredentials(cos.NewSessionCredentials(cfg.COS.SecretID, cfg.COS.SecretKey, cfg.COS.SessionToken))
	}
	if cfg.COS.UseHTTP {
		c = c.WithHTTP()
	}
	if cfg.COS.Domain != "" {
		c = c.WithDomain(cfg.COS.Domain)
	}

	return cos.NewClient(c, cos.WithLogger(logger))
}

func runMakeBucket(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	client, err := newCOSClient(cfg, logger)
	if err != nil {
		return err
	}
	if err := client.CreateBucket(ctx, cos.ACLPrivate); err != nil {
		return err
	}
	fmt.Printf("created bucket %s\n", cfg.COS.Bucket)
	return nil
}

func runRemoveBucket(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	client, err := newCOSClient(cfg, logger)
	if err != nil {
		return err
	}
	if err := client.DeleteBucket(ctx); err != nil {
		return err
	}
	fmt.Printf("removed bucket %s\n", cfg.COS.Bucket)
	return nil
}

func runList(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	prefix := fs.String("prefix", "", "only list keys under this prefix")
	delimiter := fs.String("delimiter", "", "collapse keys at this delimiter")
	maxKeys := fs.Int("max-keys", 1000, "maximum number of keys to return")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newCOSClient(cfg, logger)
	if err != nil {
		return err
	}

	out, err := client.ListObjects(ctx, cos.ListObjectsOptions{
		Prefix:    *prefix,
		Delimiter: *delimiter,
		MaxKeys:   *maxKeys,
	})
	if err != nil {
		return err
	}

	for _, p := range out.CommonPrefixes {
		fmt.Printf("%12s  %s\n", "PRE", p.Prefix)
	}
	for _, o := range out.Contents {
		fmt.Printf("%12d  %s\n", o.Size, o.Key)
	}
	if out.IsTruncated {
		fmt.Printf("(truncated, next marker: %s)\n", out.NextMarker)
	}
	return nil
}

func runPut(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("put", flag.ExitOnError)
	contentType := fs.String("content-type", "", "override the detected content type")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: tencos put [flags] <local-file> <key>")
	}

	client, err := newCOSClient(cfg, logger)
	if err != nil {
		return err
	}

	out, err := client.PutObjectFromFile(ctx, fs.Arg(1), fs.Arg(0), *contentType)
	if err != nil {
		return err
	}
	fmt.Printf("uploaded %s etag=%s\n", fs.Arg(1), out.ETag)
	return nil
}

func runGet(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: tencos get <key> <local-file>")
	}

	client, err := newCOSClient(cfg, logger)
	if err != nil {
		return err
	}

	if err := client.GetObjectToFile(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("downloaded %s to %s\n", args[0], args[1])
	return nil
}

func runHead(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tencos head <key>")
	}

	client, err := newCOSClient(cfg, logger)
	if err != nil {
		return err
	}

	out, err := client.HeadObject(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("key:            %s\n", args[0])
	fmt.Printf("content-length: %d\n", out.ContentLength)
	fmt.Printf("content-type:   %s\n", out.ContentType)
	fmt.Printf("etag:           %s\n", out.ETag)
	fmt.Printf("last-modified:  %s\n", out.LastModified)
	return nil
}

func runRemove(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tencos rm <key> [key...]")
	}

	client, err := newCOSClient(cfg, logger)
	if err != nil {
		return err
	}

	if len(args) == 1 {
		if _, err := client.DeleteObject(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("removed %s\n", args[0])
		return nil
	}

	out, err := client.DeleteObjects(ctx, args)
	if err != nil {
		return err
	}
	for _, d := range out.Deleted {
		fmt.Printf("removed %s\n", d.Key)
	}
	for _, e := range out.Errors {
		fmt.Fprintf(os.Stderr, "failed %s: %s %s\n", e.Key, e.Code, e.Message)
	}
	return nil
}

func runSTS(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("sts", flag.ExitOnError)
	mode := fs.String("allow", "read-write", "permission scope: upload, download, delete or read-write")
	prefix := fs.String("prefix", "", "restrict the issued credentials to keys under this prefix")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var policy sts.Policy
	switch *mode {
	case "upload":
		policy = sts.AllowPutObject(cfg.COS.Bucket, *prefix)
	case "download":
		policy = sts.AllowGetObject(cfg.COS.Bucket, *prefix)
	case "delete":
		policy = sts.AllowDeleteObject(cfg.COS.Bucket, *prefix)
	case "read-write":
		policy = sts.AllowReadWrite(cfg.COS.Bucket, *prefix)
	default:
		return fmt.Errorf("unknown -allow value %q", *mode)
	}

	opts := []sts.Option{sts.WithLogger(logger)}
	if cfg.STS.Host != "" {
		opts = append(opts, sts.WithHost(cfg.STS.Host))
	}

	client, err := sts.NewClient(cfg.COS.SecretID, cfg.COS.SecretKey, cfg.COS.Region, opts...)
	if err != nil {
		return err
	}

	creds, err := client.GetCredentials(ctx, sts.GetCredentialsRequest{
		Policy:          policy,
		DurationSeconds: cfg.STS.DurationSeconds,
		Name:            cfg.STS.SessionName,
	})
	if err != nil {
		return err
	}

	fmt.Printf("tmp_secret_id:  %s\n", creds.TmpSecretID)
	fmt.Printf("tmp_secret_key: %s\n", creds.TmpSecretKey)
	fmt.Printf("token:          %s\n", creds.Token)
	fmt.Printf("expires:        %s\n", time.Unix(creds.ExpiredTime, 0).UTC().Format(time.RFC3339))
	return nil
}

func printUsage() {
	fmt.Println(`tencos - Tencent COS command-line client

Usage:
  tencos <command> [arguments]

Commands:
  mb          Create the configured bucket
  rb          Remove the configured bucket
  ls          List objects (-prefix, -delimiter, -max-keys)
  put         Upload a local file (-content-type) <local-file> <key>
  get         Download an object <key> <local-file>
  head        Show object metadata <key>
  rm          Remove one or more objects <key> [key...]
  sts         Issue temporary credentials (-allow, -prefix)
  version     Print version information
  help        Show this help message

Configuration is read from config.yaml (current directory, ~/.tencos or
/etc/tencos), the file named by TENCOS_CONFIG, and TENCOS_* environment
variables such as TENCOS_COS_SECRET_ID.

Examples:
  tencos put ./report.pdf reports/2026/report.pdf
  tencos ls -prefix reports/ -delimiter /
  tencos sts -allow upload -prefix incoming/`)
}
