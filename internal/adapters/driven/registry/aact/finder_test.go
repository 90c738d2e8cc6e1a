package aact

import (
	"context"
	"net/url"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/trialdex/internal/core/domain"
)

func TestDSN(t *testing.T) {
	dsn := DSN(domain.FinderSettings{
		Host:     "aact-db.ctti-clinicaltrials.org",
		Database: "aact",
		User:     "reader",
		Password: "p@ss/word",
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "aact-db.ctti-clinicaltrials.org:5432", u.Host)
	assert.Equal(t, "/aact", u.Path)
	assert.Equal(t, "reader", u.User.Username())
	password, _ := u.User.Password()
	assert.Equal(t, "p@ss/word", password)
}

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Asthma", "%asthma%"},
		{"  heart failure ", "%heart failure%"},
		{"100%", `%100\%%`},
		{"a_b", `%a\_b%`},
		{`c:\x`, `%c:\\x%`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ContainsPattern(tt.in), tt.in)
	}
}

func TestNew_Unconfigured(t *testing.T) {
	_, err := New(context.Background(), domain.FinderSettings{Host: "localhost"})
	assert.ErrorIs(t, err, domain.ErrFinderUnavailable)
}

// TestFinder_Integration runs against a live AACT mirror when
// TRIALDEX_TEST_AACT_PASSWORD is set.
func TestFinder_Integration(t *testing.T) {
	password := os.Getenv("TRIALDEX_TEST_AACT_PASSWORD")
	if password == "" {
		t.Skip("TRIALDEX_TEST_AACT_PASSWORD not set")
	}

	settings := domain.DefaultAppSettings().Finder
	settings.User = os.Getenv("TRIALDEX_TEST_AACT_USER")
	settings.Password = password

	ctx := context.Background()
	finder, err := New(ctx, settings)
	require.NoError(t, err)
	defer finder.Close()

	ids, err := finder.CompletedPhase3(ctx, settings.Sponsor)
	require.NoError(t, err)
	assert.NotEmpty(t, ids)

	trials, err := finder.MostRecentByCondition(ctx, settings.Sponsor, "pain", 3)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(trials), 3)
}
