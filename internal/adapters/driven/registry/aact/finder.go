// Package aact queries the AACT registry database for trial identifiers.
package aact

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
	"github.com/custodia-labs/trialdex/internal/logger"
)

// Ensure Finder implements the interface.
var _ driven.TrialFinder = (*Finder)(nil)

// completedPhase3 is the population every finder query draws from.
const completedPhase3 = `
FROM studies s
LEFT JOIN conditions c ON s.nct_id = c.nct_id
LEFT JOIN outcome_analyses oa ON s.nct_id = oa.nct_id
WHERE s.study_type = 'Interventional'
  AND s.phase = 'Phase 3'
  AND s.overall_status = 'Completed'
  AND oa.p_value IS NOT NULL
  AND s.source = $1`

const (
	sponsorQuery = `SELECT DISTINCT s.nct_id` + completedPhase3 + `
ORDER BY s.nct_id`

	conditionQuery = `SELECT DISTINCT s.nct_id, s.brief_title` + completedPhase3 + `
  AND (c.downcase_name LIKE $2 ESCAPE '\' OR lower(s.brief_title) LIKE $2 ESCAPE '\')
ORDER BY s.nct_id DESC
LIMIT $3`
)

// Finder runs trial queries against AACT through a connection pool.
type Finder struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// New opens a pool for the configured AACT database and checks it responds.
func New(ctx context.Context, settings domain.FinderSettings) (*Finder, error) {
	if !settings.IsConfigured() {
		return nil, domain.ErrFinderUnavailable
	}

	cfg, err := pgxpool.ParseConfig(DSN(settings))
	if err != nil {
		return nil, fmt.Errorf("parse aact config: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect aact: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping aact: %w", err)
	}

	return &Finder{pool: pool, log: logger.Named("aact")}, nil
}

// DSN builds a connection URL from finder settings. Credentials are escaped.
func DSN(settings domain.FinderSettings) string {
	port := settings.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(settings.User, settings.Password),
		Host:   net.JoinHostPort(settings.Host, strconv.Itoa(port)),
		Path:   "/" + settings.Database,
	}
	q := u.Query()
	q.Set("sslmode", "prefer")
	u.RawQuery = q.Encode()
	return u.String()
}

// CompletedPhase3 returns the NCT IDs of completed phase 3 trials with a
// reported p-value led by sponsor.
func (f *Finder) CompletedPhase3(ctx context.Context, sponsor string) ([]string, error) {
	rows, err := f.pool.Query(ctx, sponsorQuery, sponsor)
	if err != nil {
		return nil, fmt.Errorf("query sponsor trials: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan sponsor trials: %w", err)
	}
	f.log.Debug("%d completed phase 3 trials for %s", len(ids), sponsor)
	return ids, nil
}

// MostRecentByCondition returns trials mentioning condition, newest NCT ID first.
func (f *Finder) MostRecentByCondition(ctx context.Context, sponsor, condition string, limit int) ([]domain.TrialSummary, error) {
	rows, err := f.pool.Query(ctx, conditionQuery, sponsor, ContainsPattern(condition), limit)
	if err != nil {
		return nil, fmt.Errorf("query trials by condition: %w", err)
	}

	trials, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TrialSummary, error) {
		var t domain.TrialSummary
		err := row.Scan(&t.NCTID, &t.BriefTitle)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan trials by condition: %w", err)
	}
	return trials, nil
}

// ContainsPattern turns text into a lower-case LIKE pattern matching it
// anywhere. LIKE wildcards in text match literally.
func ContainsPattern(text string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(strings.TrimSpace(text)))
	return "%" + escaped + "%"
}

// Close releases the connection pool.
func (f *Finder) Close() error {
	f.pool.Close()
	return nil
}
