// Command outputcache inspects and seeds an output cache from the command line.
//
// Usage:
//
//	outputcache --location data/outputs --backend badger put --txid <hex> --index 0 --value 1000 --script <hex>
//	outputcache --store sqlite:///outputcache get --txhash <txid> --index 0
//	outputcache health
//
// Without --store or --location the outputcache_store setting is used.
package main

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	safeconversion "github.com/bsv-blockchain/go-safe-conversion"
	"github.com/bsv-blockchain/outputcache/errors"
	"github.com/bsv-blockchain/outputcache/settings"
	"github.com/bsv-blockchain/outputcache/stores/outputcache"
	"github.com/bsv-blockchain/outputcache/stores/outputcache/factory"
	"github.com/bsv-blockchain/outputcache/ulogger"
	healthcheck "github.com/bsv-blockchain/outputcache/util/health"
	"github.com/bsv-blockchain/outputcache/util/retry"
	"github.com/urfave/cli/v2"
)

const progname = "outputcache"

// Version & commit strings injected at build with -ldflags -X...
var (
	version = "dev"
	commit  string
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", progname, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	outputFlags := []cli.Flag{
		&cli.StringFlag{Name: "txid", Usage: "transaction id as raw hex bytes"},
		&cli.StringFlag{Name: "txhash", Usage: "transaction id in the usual reversed display order"},
		&cli.Uint64Flag{Name: "index", Usage: "output index", Required: true},
	}

	return &cli.App{
		Name:    progname,
		Usage:   "read and write classified transaction outputs",
		Version: fmt.Sprintf("%s %s", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "store", Usage: "store URL, e.g. sqlite:///outputcache or badgermemory:///"},
			&cli.StringFlag{Name: "location", Usage: "store location, a path or :memory:"},
			&cli.StringFlag{Name: "backend", Usage: "backend used with --location (sqlite, badger, leveldb, memory, null)"},
			&cli.StringFlag{Name: "log-level", Usage: "DEBUG, INFO, WARN or ERROR"},
			&cli.IntFlag{Name: "open-attempts", Usage: "attempts to open a store that is unavailable, e.g. locked by another process", Value: 1},
			&cli.DurationFlag{Name: "open-backoff", Usage: "wait between open attempts", Value: 500 * time.Millisecond},
		},
		Commands: []*cli.Command{
			{
				Name:  "put",
				Usage: "store and commit one output",
				Flags: append(outputFlags,
					&cli.Uint64Flag{Name: "value", Usage: "satoshis", Required: true},
					&cli.StringFlag{Name: "script", Usage: "locking script as hex"},
					&cli.StringFlag{Name: "asset-address", Usage: "asset address as hex, omit for no asset"},
					&cli.Uint64Flag{Name: "quantity", Usage: "asset quantity"},
					&cli.StringFlag{Name: "type", Usage: "uncolored, marker_output, issuance or transfer", Value: outputcache.OutputTypeUncolored.String()},
				),
				Action: withStore(put),
			},
			{
				Name:   "get",
				Usage:  "print one output",
				Flags:  outputFlags,
				Action: withStore(get),
			},
			{
				Name:   "health",
				Usage:  "report the health of the store",
				Action: withStore(health),
			},
		},
	}
}

type storeAction func(c *cli.Context, store outputcache.Store) error

// withStore opens the configured store for the duration of a command.
func withStore(action storeAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		store, err := openStore(c)
		if err != nil {
			return err
		}

		actionErr := action(c, store)

		if err = store.Close(c.Context); err != nil && actionErr == nil {
			return err
		}

		return actionErr
	}
}

func openStore(c *cli.Context) (outputcache.Store, error) {
	tSettings := settings.NewSettings()

	if level := c.String("log-level"); level != "" {
		tSettings.LogLevel = level
	}

	logger := ulogger.New(progname,
		ulogger.WithLevel(tSettings.LogLevel),
		ulogger.WithLoggerType(tSettings.LoggerType),
		ulogger.WithWriter(c.App.ErrWriter),
	)

	return retry.Retry(c.Context, logger, func() (outputcache.Store, error) {
		return openOnce(c, logger, tSettings)
	},
		retry.WithRetryCount(c.Int("open-attempts")),
		retry.WithBackoffMultiplier(0),
		retry.WithBackoffDurationType(c.Duration("open-backoff")),
		retry.WithMessage("[OutputCache] store unavailable"),
	)
}

func openOnce(c *cli.Context, logger ulogger.Logger, tSettings *settings.Settings) (outputcache.Store, error) {
	ctx := c.Context

	if loc := c.String("location"); loc != "" {
		location, err := outputcache.ParseLocation(loc)
		if err != nil {
			return nil, err
		}

		if backend := c.String("backend"); backend != "" {
			tSettings.OutputCache.Backend = backend
		}

		return factory.Open(ctx, logger, tSettings, location)
	}

	if storeURL := c.String("store"); storeURL != "" {
		u, err := url.Parse(storeURL)
		if err != nil {
			return nil, errors.NewConfigurationError("invalid store URL %q", storeURL, err)
		}

		return factory.NewStore(ctx, logger, tSettings, u)
	}

	return factory.NewStoreFromSettings(ctx, logger, tSettings)
}

func txIDFromFlags(c *cli.Context) ([]byte, error) {
	switch {
	case c.IsSet("txhash"):
		hash, err := chainhash.NewHashFromStr(c.String("txhash"))
		if err != nil {
			return nil, errors.NewInvalidArgumentError("invalid txhash", err)
		}

		return hash.CloneBytes(), nil
	case c.IsSet("txid"):
		txID, err := hex.DecodeString(c.String("txid"))
		if err != nil {
			return nil, errors.NewInvalidArgumentError("invalid txid", err)
		}

		return txID, nil
	default:
		return nil, errors.NewInvalidArgumentError("one of --txid or --txhash is required")
	}
}

// keyString echoes the key in the form the transaction id was given in.
func keyString(c *cli.Context, key outputcache.OutputKey) string {
	if c.IsSet("txhash") {
		return key.DisplayString()
	}

	return key.String()
}

func outputIndex(c *cli.Context) (uint32, error) {
	index, err := safeconversion.Uint64ToUint32(c.Uint64("index"))
	if err != nil {
		return 0, errors.NewInvalidArgumentError("invalid index", err)
	}

	return index, nil
}

func put(c *cli.Context, store outputcache.Store) error {
	txID, err := txIDFromFlags(c)
	if err != nil {
		return err
	}

	index, err := outputIndex(c)
	if err != nil {
		return err
	}

	script, err := bscript.NewFromHexString(c.String("script"))
	if err != nil {
		return errors.NewInvalidArgumentError("invalid script", err)
	}

	outputType, err := outputcache.OutputTypeFromString(c.String("type"))
	if err != nil {
		return err
	}

	out := &bt.Output{Satoshis: c.Uint64("value"), LockingScript: script}

	var cached *outputcache.CachedOutput

	if c.IsSet("asset-address") {
		address, err := hex.DecodeString(c.String("asset-address"))
		if err != nil {
			return errors.NewInvalidArgumentError("invalid asset-address", err)
		}

		cached = outputcache.NewColoredOutput(out, address, c.Uint64("quantity"), outputType)
	} else {
		cached = outputcache.NewUncoloredOutput(out)
		cached.AssetQuantity = c.Uint64("quantity")
		cached.OutputType = outputType
	}

	if err = store.Put(c.Context, txID, index, cached); err != nil {
		return err
	}

	if err = store.Commit(c.Context); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(c.App.Writer, "stored %s\n", keyString(c, outputcache.NewOutputKey(txID, index)))

	return nil
}

func get(c *cli.Context, store outputcache.Store) error {
	txID, err := txIDFromFlags(c)
	if err != nil {
		return err
	}

	index, err := outputIndex(c)
	if err != nil {
		return err
	}

	cached, found, err := store.Get(c.Context, txID, index)
	if err != nil {
		return err
	}

	key := keyString(c, outputcache.NewOutputKey(txID, index))

	if !found {
		_, _ = fmt.Fprintf(c.App.Writer, "%s not found\n", key)
		return nil
	}

	_, _ = fmt.Fprintf(c.App.Writer, "%s %s\n", key, cached)
	_, _ = fmt.Fprintf(c.App.Writer, "script %x\n", cached.ScriptBytes())

	return nil
}

func health(c *cli.Context, store outputcache.Store) error {
	status, details, err := healthcheck.CheckAll(c.Context, []healthcheck.Check{
		{Name: "OutputCache", Check: store.Health},
	})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(c.App.Writer, "%d %s\n", status, details)

	if status != http.StatusOK {
		return errors.NewStorageUnavailableError("output cache is unhealthy")
	}

	return nil
}
