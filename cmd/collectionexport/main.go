// Command collectionexport pages through or exports one remote collection:
// the trades of an order, the balance changes of a vault, or the orders of an
// orderbook narrowed by owner and state.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/illmade-knight/go-querycache/pkg/export"
	"github.com/illmade-knight/go-querycache/pkg/filter"
	"github.com/illmade-knight/go-querycache/pkg/paging"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// Config is read from the environment; the collection and target come from flags.
type Config struct {
	ProjectID       string `env:"PROJECT_ID,required"`
	DatasetID       string `env:"BQ_DATASET" envDefault:"indexer"`
	CredentialsFile string `env:"CREDENTIALS_FILE"`
	PageSize        int    `env:"PAGE_SIZE" envDefault:"50"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
}

type row = map[string]bigquery.Value

// collections maps a collection name to its table and parent column.
var collections = map[string]paging.BigQueryTableConfig{
	"trades":          {TableID: "order_trades", ParentColumn: "order_hash", OrderBy: "block_timestamp DESC"},
	"balance-changes": {TableID: "vault_balance_changes", ParentColumn: "vault_id", OrderBy: "block_timestamp DESC"},
	"orders":          {TableID: "orders", ParentColumn: "orderbook", OrderBy: "added_at DESC"},
}

type flags struct {
	collection  string
	parent      string
	page        int
	destination string
	owners      string
	active      string
}

func parseFlags(args []string) (*flags, error) {
	fs := flag.NewFlagSet("collectionexport", flag.ContinueOnError)
	f := &flags{}
	fs.StringVar(&f.collection, "collection", "trades", "trades | balance-changes | orders")
	fs.StringVar(&f.parent, "parent", "", "order hash, vault id or orderbook address")
	fs.IntVar(&f.page, "page", 0, "zero-indexed page to print")
	fs.StringVar(&f.destination, "export", "", "export everything to a path or gs://bucket/object instead of printing a page")
	fs.StringVar(&f.owners, "owners", "", "comma separated owner addresses (orders only)")
	fs.StringVar(&f.active, "active", "", "true or false (orders only)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if _, ok := collections[f.collection]; !ok {
		return nil, fmt.Errorf("unknown collection %q", f.collection)
	}
	if f.parent == "" {
		return nil, fmt.Errorf("-parent is required")
	}
	return f, nil
}

// ordersFilter builds the order criteria from the command line flags.
func ordersFilter(f *flags) (filter.Orders, error) {
	b := filter.NewOrdersBuilder(filter.Orders{})
	if f.owners != "" {
		var owners []common.Address
		for _, s := range strings.Split(f.owners, ",") {
			s = strings.TrimSpace(s)
			if !common.IsHexAddress(s) {
				return filter.Orders{}, fmt.Errorf("invalid owner address %q", s)
			}
			owners = append(owners, common.HexToAddress(s))
		}
		b.SetOwners(owners)
	}
	switch f.active {
	case "":
	case "true", "false":
		active := f.active == "true"
		b.SetActive(&active)
	default:
		return filter.Orders{}, fmt.Errorf("-active must be true or false")
	}
	return b.Build(), nil
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration.")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid arguments.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, f, logger); err != nil {
		logger.Fatal().Err(err).Msg("collectionexport failed.")
	}
}

func run(ctx context.Context, cfg *Config, f *flags, logger zerolog.Logger) error {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	bq, err := paging.NewProductionBigQueryClient(ctx, cfg.ProjectID, cfg.CredentialsFile, logger)
	if err != nil {
		return err
	}
	defer bq.Close()

	var opener *export.Opener
	if f.destination != "" {
		var gcs export.GCSClient
		if strings.HasPrefix(f.destination, "gs://") {
			sc, err := storage.NewClient(ctx, opts...)
			if err != nil {
				return fmt.Errorf("storage.NewClient: %w", err)
			}
			defer sc.Close()
			gcs = export.NewGCSClientAdapter(sc)
		}
		opener = export.NewOpener(gcs, logger)
	}

	table := collections[f.collection]
	table.ProjectID = cfg.ProjectID
	table.DatasetID = cfg.DatasetID

	var cond paging.Condition
	if f.collection == "orders" {
		criteria, err := ordersFilter(f)
		if err != nil {
			return err
		}
		cond = paging.OrdersCondition(criteria)
	}

	src, err := paging.NewBigQuerySource[row](paging.NewBigQueryRunner(bq), table, f.parent, cond, opener, logger)
	if err != nil {
		return err
	}
	collection, err := paging.NewFromSource(src, cfg.PageSize, logger)
	if err != nil {
		return err
	}

	if f.destination != "" {
		return collection.ExportAll(ctx, f.destination)
	}
	rows, err := collection.List(ctx, f.page)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
