// Command sgs-fetch is a small CLI over the SGS client library: it
// resolves and lists catalog series, fetches single or multiple series
// as text or JSON, and administers the local cache.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/redis/go-redis/v9"

	"github.com/bacendata/sgs-client/pkg/cache"
	"github.com/bacendata/sgs-client/pkg/catalog"
	"github.com/bacendata/sgs-client/pkg/client"
	"github.com/bacendata/sgs-client/pkg/logging"
	"github.com/bacendata/sgs-client/pkg/series"
)

const usage = `Usage: sgs-fetch [flags] <command> [args]

Commands:
  list                       print the series catalog
  fetch <series>             fetch one series by code or name
  multi <label=series> ...   fetch several series as a joined table
  meta <series>              print series metadata
  purge                      remove every cached entry
  purge-expired              remove expired cached entries

Flags:
`

func main() {
	fs := flag.NewFlagSet("sgs-fetch", flag.ExitOnError)
	var (
		configPath = fs.String("config", "", "path to YAML config file")
		startFlag  = fs.String("start", "", "range start (YYYY-MM-DD or DD/MM/YYYY)")
		endFlag    = fs.String("end", "", "range end (YYYY-MM-DD or DD/MM/YYYY)")
		lastFlag   = fs.Int("last", 0, "fetch the N most recent observations instead of a range")
		noCache    = fs.Bool("no-cache", false, "skip the cache for this run")
		jsonOut    = fs.Bool("json", false, "print JSON instead of a text table")
		verbose    = fs.Bool("v", false, "debug logging")
	)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}

	logCfg := logging.Config{Level: logging.LogLevel(cfg.Log.Level), Pretty: cfg.Log.Pretty}
	if *verbose {
		logCfg.Level = logging.LevelDebug
	}
	logging.Setup(logCfg)

	mgr := cache.NewManager(nil)
	if !*noCache {
		if err := activateCache(mgr, cfg); err != nil {
			fatal(err)
		}
		defer mgr.Deactivate()
	}

	svc := series.NewService(client.New(cfg.clientConfig()), mgr, nil, series.Config{
		MaxConcurrent: cfg.MaxConcurrent,
	})

	opts, err := parseOptions(*startFlag, *endFlag, *lastFlag)
	if err != nil {
		fatal(err)
	}

	ctx := context.Background()
	switch cmd, args := fs.Arg(0), fs.Args()[1:]; cmd {
	case "list":
		err = runList(svc, *jsonOut)
	case "fetch":
		err = runFetch(ctx, svc, args, opts, *jsonOut)
	case "multi":
		err = runMulti(ctx, svc, args, opts, *jsonOut)
	case "meta":
		err = runMeta(ctx, svc, args)
	case "purge":
		err = svc.Cache().Purge(ctx)
	case "purge-expired":
		var n int
		if n, err = svc.Cache().PurgeExpired(ctx); err == nil {
			fmt.Printf("removed %d expired entries\n", n)
		}
	default:
		fs.Usage()
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "sgs-fetch:", err)
	os.Exit(1)
}

func activateCache(mgr *cache.Manager, cfg fileConfig) error {
	switch cfg.Cache.Backend {
	case "off":
		return nil
	case "redis":
		rc := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		if err := rc.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
		mgr.Activate(cache.NewRedisStore(rc))
	default:
		store, err := cache.OpenSQLite(cfg.Cache.Path)
		if err != nil {
			return err
		}
		mgr.Activate(store)
	}
	return nil
}

func parseOptions(start, end string, last int) (series.Options, error) {
	var s, e any
	if start != "" {
		s = start
	}
	if end != "" {
		e = end
	}
	return series.OptionsFrom(s, e, last)
}

// parseRef turns a CLI argument into a catalog reference: numeric
// arguments are codes, everything else is a catalog name or alias.
func parseRef(arg string) catalog.Ref {
	if code, err := strconv.Atoi(arg); err == nil {
		return catalog.ByCode(code)
	}
	return catalog.ByName(arg)
}

func runList(svc *series.Service, jsonOut bool) error {
	list := svc.Catalog().List()
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(list)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tPERIODICITY\tUNIT\tALIASES")
	for _, s := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			s.Code, s.Name, s.Periodicity, s.Unit, strings.Join(s.Aliases, ", "))
	}
	return w.Flush()
}

func runFetch(ctx context.Context, svc *series.Service, args []string, opts series.Options, jsonOut bool) error {
	if len(args) != 1 {
		return fmt.Errorf("fetch takes exactly one series argument")
	}

	points, err := svc.Fetch(ctx, parseRef(args[0]), opts)
	if err != nil {
		return err
	}
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(points)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tVALUE")
	for _, p := range points {
		if p.Missing {
			fmt.Fprintf(w, "%s\t-\n", p.Date)
			continue
		}
		fmt.Fprintf(w, "%s\t%g\n", p.Date, p.Value)
	}
	return w.Flush()
}

func runMulti(ctx context.Context, svc *series.Service, args []string, opts series.Options, jsonOut bool) error {
	if len(args) == 0 {
		return fmt.Errorf("multi takes label=series arguments")
	}

	refs := make(map[string]catalog.Ref, len(args))
	for _, arg := range args {
		label, ref, ok := strings.Cut(arg, "=")
		if !ok {
			// A bare argument names both the label and the series.
			label, ref = arg, arg
		}
		refs[label] = parseRef(ref)
	}

	table, err := svc.FetchMultiple(ctx, refs, opts)
	if err != nil {
		return err
	}
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(table)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "DATE\t%s\n", strings.Join(table.Labels, "\t"))
	for _, row := range table.Rows {
		cells := make([]string, len(table.Labels))
		for i, label := range table.Labels {
			if v, ok := row.Value(label); ok {
				cells[i] = strconv.FormatFloat(v, 'g', -1, 64)
			} else {
				cells[i] = "-"
			}
		}
		fmt.Fprintf(w, "%s\t%s\n", row.Date, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

func runMeta(ctx context.Context, svc *series.Service, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("meta takes exactly one series argument")
	}

	meta, err := svc.Metadata(ctx, parseRef(args[0]))
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(meta)
}
