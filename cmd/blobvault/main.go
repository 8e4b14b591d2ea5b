// Command blobvault is the operator CLI for a blobvault store.
//
// It loads the configuration (file, BLOBVAULT_* environment, defaults),
// opens the configured backend and runs one subcommand against it:
//
//	blobvault [--config path] <command> [flags] [args]
//
// Commands:
//
//	put <name>        create a record (or replace with --replace)
//	get <name>        write record content to stdout
//	stat <name>       print record metadata as JSON
//	rm <name>         delete a record
//	ls                list record names
//	find              print the search projection as JSON
//	meta get <key>    read an instance meta entry
//	meta set <key> <value>
//	check             probe the backend
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"regexp"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/blobvault/blobvault/internal/logger"
	"github.com/blobvault/blobvault/pkg/config"
	"github.com/blobvault/blobvault/pkg/store"
)

func main() {
	globals := pflag.NewFlagSet("blobvault", pflag.ExitOnError)
	configPath := globals.StringP("config", "c", "", "Path to config file")
	globals.Usage = usage

	// Split args at the first non-flag token so global flags can precede
	// the subcommand: blobvault --config x put name
	if err := globals.Parse(os.Args[1:]); err != nil {
		fatalf("%v", err)
	}
	args := globals.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("loading configuration: %v", err)
	}
	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		fatalf("configuring logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := config.CreateStore(ctx, cfg)
	if err != nil {
		fatalf("opening store: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("closing store: %v", err)
		}
	}()

	if err := dispatch(ctx, st, args[0], args[1:]); err != nil {
		fatalf("%v", err)
	}
}

func dispatch(ctx context.Context, st store.Store, command string, args []string) error {
	switch command {
	case "put":
		return cmdPut(ctx, st, args)
	case "get":
		return cmdGet(ctx, st, args)
	case "stat":
		return cmdStat(ctx, st, args)
	case "rm":
		return cmdRm(ctx, st, args)
	case "ls":
		return cmdLs(ctx, st, args)
	case "find":
		return cmdFind(ctx, st, args)
	case "meta":
		return cmdMeta(ctx, st, args)
	case "check":
		return cmdCheck(ctx, st)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func cmdPut(ctx context.Context, st store.Store, args []string) error {
	flags := pflag.NewFlagSet("put", pflag.ExitOnError)
	file := flags.StringP("file", "f", "", "Read content from file instead of stdin")
	replace := flags.Bool("replace", false, "Replace an existing record")
	metadataOnly := flags.Bool("metadata-only", false, "Update metadata without touching content (implies --replace)")
	etag := flags.String("etag", "", "Require the current version to match this etag")
	mime := flags.String("mime", "", "MIME type")
	encoding := flags.String("encoding", "", "Content encoding")
	description := flags.String("description", "", "Free-form description")
	tag := flags.String("tag", "", "First tag slot")
	tag2 := flags.String("tag2", "", "Second tag slot")
	tag3 := flags.String("tag3", "", "Third tag slot")
	data := flags.StringToString("data", nil, "Extension attributes as key=value pairs")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("put: exactly one record name is required")
	}
	name := flags.Arg(0)

	// Only flags the operator actually set become part of the update, so
	// an omitted flag keeps the field's current value.
	updateFromFlags := func() store.Update {
		var upd store.Update
		if flags.Changed("data") {
			upd.Data = *data
		}
		flags.Visit(func(f *pflag.Flag) {
			switch f.Name {
			case "mime":
				upd.MIME = store.String(*mime)
			case "encoding":
				upd.Encoding = store.String(*encoding)
			case "description":
				upd.Description = store.String(*description)
			case "tag":
				upd.Tag = store.String(*tag)
			case "tag2":
				upd.Tag2 = store.String(*tag2)
			case "tag3":
				upd.Tag3 = store.String(*tag3)
			}
		})
		return upd
	}

	if *metadataOnly {
		rec, err := st.UpdateMetadata(ctx, name, *etag, updateFromFlags())
		if err != nil {
			return err
		}
		return printVersion(rec)
	}

	content, err := readContent(*file)
	if err != nil {
		return err
	}

	if *replace {
		rec, err := st.Replace(ctx, name, content, *etag, updateFromFlags())
		if err != nil {
			return err
		}
		return printVersion(rec)
	}

	rec, err := st.Create(ctx, name, content, store.Attributes{
		MIME:        *mime,
		Encoding:    *encoding,
		Description: *description,
		Tag:         *tag,
		Tag2:        *tag2,
		Tag3:        *tag3,
		Data:        *data,
	})
	if err != nil {
		return err
	}
	return printVersion(rec)
}

func cmdGet(ctx context.Context, st store.Store, args []string) error {
	if len(args) != 1 {
		return errors.New("get: exactly one record name is required")
	}

	rec, err := st.Get(ctx, args[0])
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(rec.Content)
	return err
}

func cmdStat(ctx context.Context, st store.Store, args []string) error {
	if len(args) != 1 {
		return errors.New("stat: exactly one record name is required")
	}

	md, err := st.GetMetadata(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(md)
}

func cmdRm(ctx context.Context, st store.Store, args []string) error {
	flags := pflag.NewFlagSet("rm", pflag.ExitOnError)
	etag := flags.String("etag", "", "Require the current version to match this etag")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("rm: exactly one record name is required")
	}

	return st.Delete(ctx, flags.Arg(0), *etag)
}

func cmdLs(ctx context.Context, st store.Store, args []string) error {
	flags := pflag.NewFlagSet("ls", pflag.ExitOnError)
	long := flags.BoolP("long", "l", false, "Show size, modification time and etag")
	filter, err := parseFilter(flags, args)
	if err != nil {
		return err
	}

	it := st.List(ctx, filter)
	defer it.Close()

	for it.Next() {
		md := it.Metadata()
		if *long {
			fmt.Printf("%10d  %s  %-10s  %s\n",
				md.Size, md.Modified.Format(time.RFC3339), md.ETag, md.Name)
		} else {
			fmt.Println(md.Name)
		}
	}
	return it.Err()
}

func cmdFind(ctx context.Context, st store.Store, args []string) error {
	flags := pflag.NewFlagSet("find", pflag.ExitOnError)
	filter, err := parseFilter(flags, args)
	if err != nil {
		return err
	}

	entries, err := st.Find(ctx, filter)
	if err != nil {
		return err
	}
	return printJSON(entries)
}

func cmdMeta(ctx context.Context, st store.Store, args []string) error {
	if len(args) == 0 {
		return errors.New("meta: expected 'get <key>' or 'set <key> <value>'")
	}

	switch args[0] {
	case "get":
		if len(args) != 2 {
			return errors.New("meta get: exactly one key is required")
		}
		value, err := st.GetMeta(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	case "set":
		if len(args) != 3 {
			return errors.New("meta set: a key and a value are required")
		}
		return st.SetMeta(ctx, args[1], args[2])
	default:
		return fmt.Errorf("meta: unknown subcommand %q", args[0])
	}
}

func cmdCheck(ctx context.Context, st store.Store) error {
	if err := st.Check(ctx); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

// parseFilter builds a store.Filter from the shared ls/find flags.
func parseFilter(flags *pflag.FlagSet, args []string) (store.Filter, error) {
	prefix := flags.String("prefix", "", "Restrict to names with this prefix")
	nameGlob := flags.String("name", "", "Match names against a glob pattern ('*' does not cross '/')")
	nameRe := flags.String("name-re", "", "Match names against a regular expression")
	size := flags.Int64("size", 0, "Match content size exactly (bytes)")
	sizeGt := flags.Int64("size-gt", 0, "Match content size greater than (bytes, exclusive)")
	sizeLt := flags.Int64("size-lt", 0, "Match content size less than (bytes, exclusive)")
	mime := flags.String("mime", "", "Match MIME type")
	encoding := flags.String("encoding", "", "Match content encoding")
	tag := flags.String("tag", "", "Match any tag slot")
	tag1 := flags.String("tag1", "", "Match the first tag slot")
	tag2 := flags.String("tag2", "", "Match the second tag slot")
	tag3 := flags.String("tag3", "", "Match the third tag slot")
	after := flags.String("modified-after", "", "Modified after this RFC3339 time (exclusive)")
	before := flags.String("modified-before", "", "Modified before this RFC3339 time (exclusive)")
	if err := flags.Parse(args); err != nil {
		return store.Filter{}, err
	}

	filter := store.Filter{
		Prefix:   *prefix,
		NameGlob: *nameGlob,
		MIME:     *mime,
		Encoding: *encoding,
		Tag:      *tag,
		Tag1:     *tag1,
		Tag2:     *tag2,
		Tag3:     *tag3,
	}
	if *nameGlob != "" {
		if _, err := path.Match(*nameGlob, ""); err != nil {
			return store.Filter{}, fmt.Errorf("invalid --name pattern: %w", err)
		}
	}
	if *nameRe != "" {
		re, err := regexp.Compile(*nameRe)
		if err != nil {
			return store.Filter{}, fmt.Errorf("invalid --name-re: %w", err)
		}
		filter.NameRegexp = re
	}
	if flags.Changed("size") {
		filter.Size = store.Int64(*size)
	}
	if flags.Changed("size-gt") {
		filter.SizeGreater = store.Int64(*sizeGt)
	}
	if flags.Changed("size-lt") {
		filter.SizeLess = store.Int64(*sizeLt)
	}
	if *after != "" {
		t, err := time.Parse(time.RFC3339, *after)
		if err != nil {
			return store.Filter{}, fmt.Errorf("invalid --modified-after: %w", err)
		}
		filter.ModifiedAfter = t
	}
	if *before != "" {
		t, err := time.Parse(time.RFC3339, *before)
		if err != nil {
			return store.Filter{}, fmt.Errorf("invalid --modified-before: %w", err)
		}
		filter.ModifiedBefore = t
	}
	return filter, nil
}

// readContent reads record content from a file, or stdin when path is empty.
func readContent(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// printVersion reports the new version of a record after a mutation.
func printVersion(rec *store.Record) error {
	fmt.Printf("%s %s\n", rec.Name, rec.ETag)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fatalf(format string, v ...any) {
	fmt.Fprintf(os.Stderr, "blobvault: "+format+"\n", v...)
	os.Exit(1)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: blobvault [--config path] <command> [flags] [args]

Commands:
  put <name>              create a record from stdin or --file
  get <name>              write record content to stdout
  stat <name>             print record metadata as JSON
  rm <name>               delete a record
  ls                      list record names
  find                    print the search projection as JSON
  meta get <key>          read an instance meta entry
  meta set <key> <value>  write an instance meta entry
  check                   probe the backend

Run 'blobvault <command> --help' for command flags.
`)
}
