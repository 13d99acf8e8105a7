package listingRepository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukeswagga/discord-auction-bot/internal/pkg/listing"
	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *time.Time:
			*p = r.values[i].(time.Time)
		case *int:
			*p = r.values[i].(int)
		}
	}
	return nil
}

type fakeQuerier struct {
	execSQL  string
	execArgs []any
	execErr  error
	row      fakeRow
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.execSQL = sql
	q.execArgs = args
	return pgconn.NewCommandTag("INSERT 0 1"), q.execErr
}

func (q *fakeQuerier) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return q.row
}

func TestScrapeStatsRecord(t *testing.T) {
	q := &fakeQuerier{}
	repo := NewScrapeStatsRepository(q, logger.NewNop())

	err := repo.Record(context.Background(), listing.ScrapeStats{
		TotalFound: 120, QualityFiltered: 14, SentToDiscord: 9, ErrorsCount: 1, KeywordsSearched: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, insertScrapeStatsQuery, q.execSQL)
	assert.Equal(t, []any{120, 14, 9, 1, 30}, q.execArgs)
}

func TestScrapeStatsRecordError(t *testing.T) {
	q := &fakeQuerier{execErr: errors.New("pool closed")}
	repo := NewScrapeStatsRepository(q, logger.NewNop())

	err := repo.Record(context.Background(), listing.ScrapeStats{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool closed")
}

func TestScrapeStatsLatest(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		row     fakeRow
		want    *listing.ScrapeStats
		wantErr bool
	}{
		{
			name: "row present",
			row:  fakeRow{values: []any{ts, 50, 5, 4, 0, 12}},
			want: &listing.ScrapeStats{
				Timestamp: ts, TotalFound: 50, QualityFiltered: 5, SentToDiscord: 4, KeywordsSearched: 12,
			},
		},
		{
			name: "no cycles yet",
			row:  fakeRow{err: pgx.ErrNoRows},
		},
		{
			name:    "query failure",
			row:     fakeRow{err: errors.New("timeout")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewScrapeStatsRepository(&fakeQuerier{row: tt.row}, logger.NewNop())

			got, err := repo.Latest(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
