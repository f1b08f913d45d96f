package client

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runShell(t *testing.T, input string) (string, *fakeShop, string) {
	t.Helper()
	api, shop := newTestClient(t)
	var out bytes.Buffer
	var savedToken string
	sh := &Shell{
		API:     api,
		Prompt:  NewPrompter(strings.NewReader(input), &out),
		Out:     &out,
		OnLogin: func(phone, token string) { savedToken = token },
	}
	sh.Run(context.Background())
	return out.String(), shop, savedToken
}

func TestShell_Session(t *testing.T) {
	input := strings.Join([]string{
		"show",
		"login",
		"9876543210",
		"1234",
		"show",
		"set 2 3",
		"add 1 1",
		"close",
		"reports",
		"delete 2024-05-01",
		"exit",
		"show",
	}, "\n") + "\n"

	out, shop, token := runShell(t, input)

	assert.Contains(t, out, "use the login command")
	assert.Contains(t, out, "Login successful")
	assert.Equal(t, "tok", token)
	assert.Contains(t, out, "Today: 6 items, 90.00")
	assert.Contains(t, out, "Day closed")
	assert.Contains(t, out, "2024-05-01  qty 6  amount 90.00")
	assert.Equal(t, []string{"2024-05-01"}, shop.deleted)
	assert.True(t, strings.HasSuffix(out, "Bye\n"), "commands after exit are not run")
}

func TestShell_UsageErrors(t *testing.T) {
	out, _, _ := runShell(t, "set 1\nadd x 1\nset 1 y\ndelete\nexport\nfrobnicate\n\n")

	assert.Contains(t, out, "usage: set <id> <count>")
	assert.Contains(t, out, `invalid id "x"`)
	assert.Contains(t, out, `invalid count "y"`)
	assert.Contains(t, out, "usage: delete <id|date>")
	assert.Contains(t, out, "usage: export <file>")
	assert.Contains(t, out, `unknown command "frobnicate"`)
}

func TestShell_Export(t *testing.T) {
	api, _ := newTestClient(t)
	api.Token = "tok"
	var out bytes.Buffer
	sh := &Shell{API: api, Prompt: NewPrompter(strings.NewReader(""), &out), Out: &out}

	path := filepath.Join(t.TempDir(), "reports.xlsx")
	require.NoError(t, sh.Exec(context.Background(), []string{"export", path}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "xlsx-bytes", string(data))
}

func TestShell_ExportFailureRemovesFile(t *testing.T) {
	api, _ := newTestClient(t)
	var out bytes.Buffer
	sh := &Shell{API: api, Prompt: NewPrompter(strings.NewReader(""), &out), Out: &out}

	path := filepath.Join(t.TempDir(), "reports.xlsx")
	err := sh.Exec(context.Background(), []string{"export", path})
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
