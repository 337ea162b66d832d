package service

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/libradesk/library-service/internal/errs"
)

func TestParseBookRecords(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		input := strings.Join([]string{
			`(1,cs,db,mit,2019,wjk,2.35,3)`,
			`  ( 2,cs,"algorithms, vol 1",mit,2020,rs,10.00,1 )  `,
			``,
			`3,novel,dune,ace,1965,herbert,5.99,2`,
		}, "\n")

		books, err := parseBookRecords(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, books, 3)

		require.Equal(t, "1", books[0].ID)
		require.Equal(t, "db", books[0].Title)
		require.Equal(t, 2019, books[0].Year)
		require.True(t, decimal.RequireFromString("2.35").Equal(books[0].Price))
		require.Equal(t, 3, books[0].Total)
		// stock starts out equal to total
		require.Equal(t, 3, books[0].Stock)

		require.Equal(t, "algorithms, vol 1", books[1].Title)
		require.Equal(t, 1, books[1].Stock)

		require.Equal(t, "dune", books[2].Title)
		require.Equal(t, 2, books[2].Stock)
	})

	t.Run("err. wrong field count", func(t *testing.T) {
		t.Parallel()
		_, err := parseBookRecords(strings.NewReader(`(1,cs,db,mit,2019,wjk,2.35)`))
		require.ErrorIs(t, err, errs.ErrInvalidInput)
	})

	t.Run("err. malformed price", func(t *testing.T) {
		t.Parallel()
		_, err := parseBookRecords(strings.NewReader(`(1,cs,db,mit,2019,wjk,cheap,3)`))
		require.ErrorIs(t, err, errs.ErrInvalidInput)
	})

	t.Run("err. malformed year", func(t *testing.T) {
		t.Parallel()
		_, err := parseBookRecords(strings.NewReader(`(1,cs,db,mit,MMXIX,wjk,2.35,3)`))
		require.ErrorIs(t, err, errs.ErrInvalidInput)
	})

	t.Run("ok. empty year defaults to zero", func(t *testing.T) {
		t.Parallel()
		books, err := parseBookRecords(strings.NewReader(`(1,cs,db,mit,,wjk,2.35,3)`))
		require.NoError(t, err)
		require.Equal(t, 0, books[0].Year)
	})
}
