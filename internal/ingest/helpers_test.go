package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlexplainer/backend/internal/table"
)

func mustTable(t *testing.T, csv string) *table.Table {
	t.Helper()
	tbl, err := table.Read(strings.NewReader(csv))
	require.NoError(t, err)
	return tbl
}
