// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sorlineage/internal/engine"
	"github.com/leapstack-labs/sorlineage/internal/loader"
	"github.com/leapstack-labs/sorlineage/internal/testutil"
	"github.com/leapstack-labs/sorlineage/internal/ui/notifier"
)

// TestWorkbook is a small workbook with two sheets. orders_out has two
// records; empty_sheet has none.
const TestWorkbook = `
inputs:
  customers: [id, name]
  orders: [order_id, amount]
outputs:
  orders_out:
    - Output_columns: cust_name
      Sor_id: 1
      Input_table_col_name: customers.name
      Tranformation_rule: direct copy
      Sample_examples: Alice
    - Output_columns: total
      Sor_id: 1
      Input_table_col_name: orders.amount
      Tranformation_rule: sum of <amount>
    - Output_columns: cust_id
      Sor_id: 2
      Input_table_col_name: customers.id
  empty_sheet: []
`

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Engine       *engine.Engine
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore
	// WorkbookPath is the YAML file the engine reads.
	WorkbookPath string
}

// SetupTestFixture writes the workbook to a temp dir and returns a fixture
// whose engine has loaded it. An empty workbook uses TestWorkbook.
func SetupTestFixture(t *testing.T, workbook string) *TestFixture {
	t.Helper()
	if workbook == "" {
		workbook = TestWorkbook
	}

	path := filepath.Join(t.TempDir(), "lineage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(workbook), 0o600))

	fixture := SetupUnloadedFixture(t, path)
	_, _, err := fixture.Engine.Reload(context.Background())
	require.NoError(t, err)
	return fixture
}

// SetupUnloadedFixture returns a fixture whose engine has not loaded yet.
func SetupUnloadedFixture(t *testing.T, path string) *TestFixture {
	t.Helper()

	eng, err := engine.New(engine.Config{
		Source: &loader.YAMLSource{Path: path},
		Logger: testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	return &TestFixture{
		Engine:       eng,
		Notifier:     notifier.New(),
		SessionStore: NewTestSessionStore(),
		WorkbookPath: path,
	}
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}
