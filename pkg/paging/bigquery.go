package paging

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/illmade-knight/go-querycache/pkg/export"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// RowIterator yields query rows. *bigquery.RowIterator satisfies it.
type RowIterator interface {
	Next(dst any) error
}

// QueryRunner executes a parameterised query.
type QueryRunner interface {
	Run(ctx context.Context, sql string, params []bigquery.QueryParameter) (RowIterator, error)
}

type bigQueryRunner struct {
	client *bigquery.Client
}

// NewBigQueryRunner adapts client to QueryRunner.
func NewBigQueryRunner(client *bigquery.Client) QueryRunner {
	if client == nil {
		return nil
	}
	return &bigQueryRunner{client: client}
}

func (r *bigQueryRunner) Run(ctx context.Context, sql string, params []bigquery.QueryParameter) (RowIterator, error) {
	q := r.client.Query(sql)
	q.Parameters = params
	it, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	return it, nil
}

// NewProductionBigQueryClient creates a BigQuery client, using credentialsFile
// when set and Application Default Credentials otherwise.
func NewProductionBigQueryClient(ctx context.Context, projectID, credentialsFile string, logger zerolog.Logger) (*bigquery.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}
	logger.Info().Str("project_id", projectID).Bool("adc", credentialsFile == "").Msg("BigQuery client created.")
	return client, nil
}

// BigQueryTableConfig names the table behind a collection and how it is keyed.
type BigQueryTableConfig struct {
	ProjectID    string
	DatasetID    string
	TableID      string
	ParentColumn string // e.g. "order_hash" or "vault_id"
	OrderBy      string // e.g. "block_timestamp DESC"
}

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	orderByPattern    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*( (ASC|DESC))?$`)
	tablePartPattern  = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)
)

func (c BigQueryTableConfig) validate() error {
	for name, v := range map[string]string{"project": c.ProjectID, "dataset": c.DatasetID, "table": c.TableID} {
		if !tablePartPattern.MatchString(v) {
			return fmt.Errorf("invalid %s id %q", name, v)
		}
	}
	if !identifierPattern.MatchString(c.ParentColumn) {
		return fmt.Errorf("invalid parent column %q", c.ParentColumn)
	}
	if c.OrderBy != "" && !orderByPattern.MatchString(c.OrderBy) {
		return fmt.Errorf("invalid order by clause %q", c.OrderBy)
	}
	return nil
}

// BigQuerySource reads the rows of one parent (one order, one vault) from a
// BigQuery table.
type BigQuerySource[T any] struct {
	runner    QueryRunner
	table     BigQueryTableConfig
	parentID  string
	condition Condition
	opener    *export.Opener
	logger    zerolog.Logger
}

// NewBigQuerySource binds a source to parentID. condition narrows the rows
// further and may be the zero value. opener may be nil, in which case
// ExportAll returns ErrExportUnsupported.
func NewBigQuerySource[T any](
	runner QueryRunner,
	table BigQueryTableConfig,
	parentID string,
	condition Condition,
	opener *export.Opener,
	logger zerolog.Logger,
) (*BigQuerySource[T], error) {
	if runner == nil {
		return nil, errors.New("query runner cannot be nil")
	}
	if err := table.validate(); err != nil {
		return nil, err
	}
	if parentID == "" {
		return nil, errors.New("parent id cannot be empty")
	}
	return &BigQuerySource[T]{
		runner:    runner,
		table:     table,
		parentID:  parentID,
		condition: condition,
		opener:    opener,
		logger: logger.With().
			Str("component", "BigQuerySource").
			Str("table", table.TableID).
			Str("parent", parentID).
			Logger(),
	}, nil
}

func (s *BigQuerySource[T]) baseQuery() (string, []bigquery.QueryParameter) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT * FROM `%s.%s.%s` WHERE %s = @parent",
		s.table.ProjectID, s.table.DatasetID, s.table.TableID, s.table.ParentColumn)
	params := []bigquery.QueryParameter{{Name: "parent", Value: s.parentID}}
	if s.condition.SQL != "" {
		sb.WriteString(" AND (")
		sb.WriteString(s.condition.SQL)
		sb.WriteString(")")
		params = append(params, s.condition.Params...)
	}
	if s.table.OrderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(s.table.OrderBy)
	}
	return sb.String(), params
}

// Page fetches the one-indexed page of pageSize rows.
func (s *BigQuerySource[T]) Page(ctx context.Context, page, pageSize int) ([]T, error) {
	if page < 1 {
		return nil, fmt.Errorf("page must be one-indexed, got %d", page)
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", pageSize)
	}
	sql, params := s.baseQuery()
	sql += " LIMIT @limit OFFSET @offset"
	params = append(params,
		bigquery.QueryParameter{Name: "limit", Value: int64(pageSize)},
		bigquery.QueryParameter{Name: "offset", Value: int64((page - 1) * pageSize)},
	)

	it, err := s.runner.Run(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("query page %d: %w", page, err)
	}
	items := make([]T, 0, pageSize)
	for {
		var row T
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", page, err)
		}
		items = append(items, row)
	}
	s.logger.Debug().Int("page", page).Int("rows", len(items)).Msg("Fetched page.")
	return items, nil
}

// ExportAll streams every row of the parent to destination as JSON lines.
// A failed export leaves nothing at the destination.
func (s *BigQuerySource[T]) ExportAll(ctx context.Context, destination string) error {
	if s.opener == nil {
		return ErrExportUnsupported
	}
	sql, params := s.baseQuery()
	it, err := s.runner.Run(ctx, sql, params)
	if err != nil {
		return fmt.Errorf("query export rows: %w", err)
	}
	sink, err := s.opener.Open(ctx, destination)
	if err != nil {
		return err
	}
	n, err := export.WriteRows(ctx, sink, func(dst *T) error { return it.Next(dst) })
	if err != nil {
		if abortErr := sink.Abort(); abortErr != nil {
			s.logger.Error().Err(abortErr).Str("destination", sink.Name()).Msg("Failed to discard partial export.")
		}
		return err
	}
	if err := sink.Close(); err != nil {
		return err
	}
	s.logger.Info().Str("destination", sink.Name()).Int("rows", n).Msg("Export complete.")
	return nil
}
