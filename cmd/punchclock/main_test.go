package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestHashPassword(t *testing.T) {
	out, err := run(t, "s3cret\n", "hash-password")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))

	_, err = run(t, "\n", "hash-password")
	assert.Error(t, err)
}

func TestImportThenExport(t *testing.T) {
	// GIVEN: an empty database and an employee file
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PAYROLL_TEMPLATE", "")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "punch.db"))

	csv := filepath.Join(dir, "staff.csv")
	require.NoError(t, os.WriteFile(csv, []byte("id,name,area,default_break\n1,Mei,kitchen,1\n2,Kai,bar,0\nx,Bad,bar,0\n"), 0o600))

	// WHEN: importing
	out, err := run(t, "", "import-employees", csv)

	// THEN: a result per row
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 of 3 rows")
	assert.Contains(t, out, "invalid row")

	// WHEN: exporting both workbooks
	payroll := filepath.Join(dir, "payroll.xlsx")
	_, err = run(t, "", "export", "payroll", "--month", "2025-03", "--out", payroll)
	require.NoError(t, err)
	cards := filepath.Join(dir, "cards.xlsx")
	_, err = run(t, "", "export", "punch-cards", "--month", "2025-03", "--out", cards)
	require.NoError(t, err)

	// THEN: one sheet per area and per employee
	f, err := excelize.OpenFile(payroll)
	require.NoError(t, err)
	assert.Equal(t, []string{"bar", "kitchen"}, f.GetSheetList())
	f.Close()

	f, err = excelize.OpenFile(cards)
	require.NoError(t, err)
	assert.Equal(t, []string{"bar-2-Kai", "kitchen-1-Mei"}, f.GetSheetList())
	f.Close()
}

func TestExport_RejectsBadInput(t *testing.T) {
	_, err := run(t, "", "export", "timesheet")
	assert.Error(t, err)

	_, err = run(t, "", "export", "payroll", "--month", "03/2025")
	assert.Error(t, err)
}
