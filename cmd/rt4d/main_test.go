package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbehnke/rt4d-cps/internal/testhelpers"
	"github.com/dbehnke/rt4d-cps/pkg/codeplug"
	"github.com/dbehnke/rt4d-cps/pkg/database"
	"github.com/dbehnke/rt4d-cps/pkg/logger"
	"github.com/dbehnke/rt4d-cps/pkg/metrics"
	"github.com/dbehnke/rt4d-cps/pkg/uart"
)

const usersCSV = `RADIO_ID,CALLSIGN,FIRST_NAME,LAST_NAME,CITY,STATE,COUNTRY
3138617,K7ABC,John,Doe,Seattle,WA,United States
2345678,G0ABC,Jane,Smith,London,,United Kingdom
`

// testEnv is a scratch directory with a config pointing the database into it.
type testEnv struct {
	dir    string
	config string
	dbPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:    dir,
		config: filepath.Join(dir, "rt4d.yaml"),
		dbPath: filepath.Join(dir, "rt4d.db"),
	}
	cfg := fmt.Sprintf("logging:\n  level: error\ndatabase:\n  path: %q\n", env.dbPath)
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o644))
	return env
}

func (e *testEnv) path(name string) string { return filepath.Join(e.dir, name) }

// run executes the root command and returns its stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// useMockRadio routes dialRadio to mock for the duration of the test.
func useMockRadio(t *testing.T, mock *testhelpers.MockRadio) {
	t.Helper()
	prev := dialRadio
	dialRadio = func(_ uart.Config, log *logger.Logger, m *metrics.Collector) (*uart.Radio, error) {
		return uart.New(mock, log, m), nil
	}
	t.Cleanup(func() { dialRadio = prev })
}

func seedRadio(t *testing.T, mock *testhelpers.MockRadio, img []byte) {
	t.Helper()
	r := uart.New(mock, nil, nil)
	require.NoError(t, r.Notify())
	require.NoError(t, r.WriteImage(context.Background(), img, nil))
}

func TestRequiredFlagsErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"import missing output", []string{"import", "x.yaml"}, "required flag --output not set"},
		{"radio read missing output", []string{"radio", "read"}, "required flag --output not set"},
		{"info missing image", []string{"info"}, "accepts 1 arg(s), received 0"},
		{"export bad format", []string{"export", "x.4rdmf", "--format", "xml"}, "invalid format"},
		{"beta41 set and clear", []string{"beta41", "x.4rdmf", "--set", "--clear"}, "mutually exclusive"},
		{"radio read without port", []string{"radio", "read", "-o", "x.4rdmf"}, "no serial port configured"},
		{"unknown message region", []string{"radio", "messages", "spam"}, "unknown message region"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(t, tt.args...)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error: got %q want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := newVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "rt4d version dev")
}

func TestInfoExportImport(t *testing.T) {
	env := newTestEnv(t)
	img := testhelpers.SampleImage(t, false)
	imgPath := env.path("sample.4rdmf")
	require.NoError(t, os.WriteFile(imgPath, img, 0o644))

	out, err := env.run(t, "info", imgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Layout:          legacy")
	assert.Contains(t, out, "Radio ID:        3112345")
	assert.Contains(t, out, "Channels:        2")
	assert.Contains(t, out, "Lock timer:      Off")

	out, err = env.run(t, "info", imgPath, "--channels")
	require.NoError(t, err)
	assert.Contains(t, out, "TS1 CC3 TG 3100")
	assert.Contains(t, out, "rx 88.5 tx 88.5")
	assert.Contains(t, out, "439.12500")

	yamlPath := env.path("sample.yaml")
	_, err = env.run(t, "export", imgPath, "-o", yamlPath)
	require.NoError(t, err)
	data, err := os.ReadFile(yamlPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "radio_name: RT4D")

	newPath := env.path("new.4rdmf")
	_, err = env.run(t, "import", yamlPath, "-o", newPath, "--layout", "beta41")
	require.NoError(t, err)

	out, err = env.run(t, "info", newPath, "--output", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"layout": "beta41"`)
	assert.Contains(t, out, `"channels": 2`)
}

func TestExportJSONToStdout(t *testing.T) {
	env := newTestEnv(t)
	imgPath := env.path("sample.4rdmf")
	require.NoError(t, os.WriteFile(imgPath, testhelpers.SampleImage(t, true), 0o644))

	out, err := env.run(t, "export", imgPath, "--format", "json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"beta41": true`)
}

func TestInfoRejectsBadImage(t *testing.T) {
	env := newTestEnv(t)
	bad := env.path("bad.4rdmf")
	require.NoError(t, os.WriteFile(bad, []byte("short"), 0o644))

	_, err := env.run(t, "info", bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, codeplug.ErrInvalidImageSize)
}

func TestBeta41Cmd(t *testing.T) {
	env := newTestEnv(t)
	imgPath := env.path("sample.4rdmf")
	require.NoError(t, os.WriteFile(imgPath, testhelpers.SampleImage(t, false), 0o644))

	out, err := env.run(t, "beta41", imgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "legacy")

	marked := env.path("marked.4rdmf")
	_, err = env.run(t, "beta41", imgPath, "--set", "-o", marked)
	require.NoError(t, err)
	data, err := os.ReadFile(marked)
	require.NoError(t, err)
	assert.True(t, codeplug.IsBeta41(data))

	orig, err := os.ReadFile(imgPath)
	require.NoError(t, err)
	assert.False(t, codeplug.IsBeta41(orig), "source image must be untouched with -o")

	_, err = env.run(t, "beta41", marked, "--clear")
	require.NoError(t, err)
	data, err = os.ReadFile(marked)
	require.NoError(t, err)
	assert.False(t, codeplug.IsBeta41(data))

	converted := env.path("converted.4rdmf")
	_, err = env.run(t, "beta41", imgPath, "--set", "--convert", "-o", converted)
	require.NoError(t, err)
	data, err = os.ReadFile(converted)
	require.NoError(t, err)
	cp, err := codeplug.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, codeplug.LayoutBeta41, cp.Layout())
	assert.Len(t, cp.Channels, 2)
}

func TestRadioReadWrite(t *testing.T) {
	env := newTestEnv(t)
	mock := testhelpers.NewMockRadio()
	img := testhelpers.SampleImage(t, false)
	seedRadio(t, mock, img)
	useMockRadio(t, mock)

	outPath := env.path("read.4rdmf")
	out, err := env.run(t, "--port", "mock", "radio", "read", "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Snapshot ")

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, img, got)

	beta := testhelpers.SampleImage(t, true)
	betaPath := env.path("beta.4rdmf")
	require.NoError(t, os.WriteFile(betaPath, beta, 0o644))
	out, err = env.run(t, "--port", "mock", "radio", "write", betaPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Backup snapshot ")

	out, err = env.run(t, "--port", "mock", "radio", "bank")
	require.NoError(t, err)
	assert.Contains(t, out, "beta41")

	db, err := database.NewDB(database.Config{Path: env.dbPath}, nil)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	snaps, err := database.NewSnapshotRepository(db.GetDB()).GetRecent(10)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	labels := []string{snaps[0].Label, snaps[1].Label}
	assert.ElementsMatch(t, []string{"read", "before write"}, labels)
}

func TestRadioMessages(t *testing.T) {
	env := newTestEnv(t)
	mock := testhelpers.NewMockRadio()
	useMockRadio(t, mock)

	msgs := env.path("msgs.yaml")
	require.NoError(t, os.WriteFile(msgs, []byte("drafts:\n  - text: hello\n    contact_id: 3100\n"), 0o644))

	out, err := env.run(t, "--port", "mock", "radio", "messages", "drafts", "--load", msgs)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 1 drafts")

	out, err = env.run(t, "--port", "mock", "radio", "messages", "drafts")
	require.NoError(t, err)
	assert.Contains(t, out, "text: hello")
}

func TestAddressBookFlow(t *testing.T) {
	env := newTestEnv(t)
	csvPath := env.path("users.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(usersCSV), 0o644))

	out, err := env.run(t, "addressbook", "import", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 contacts")

	out, err = env.run(t, "ab", "lookup", "3138617")
	require.NoError(t, err)
	assert.Contains(t, out, "K7ABC")

	out, err = env.run(t, "ab", "lookup", "g0abc")
	require.NoError(t, err)
	assert.Contains(t, out, "2345678")

	_, err = env.run(t, "ab", "lookup", "NOBODY")
	require.Error(t, err)

	out, err = env.run(t, "ab", "export", "--country", "United Kingdom")
	require.NoError(t, err)
	assert.Contains(t, out, "Radio ID,CallSign")
	assert.Contains(t, out, "G0ABC")
	assert.NotContains(t, out, "K7ABC")

	out, err = env.run(t, "ab", "export", "--radio")
	require.NoError(t, err)
	assert.NotContains(t, out, "Radio ID")
	assert.Contains(t, out, "3138617,K7ABC,John Doe,Seattle,WA,United States")
}

func TestAddressBookUpload(t *testing.T) {
	env := newTestEnv(t)
	mock := testhelpers.NewMockRadio()
	useMockRadio(t, mock)
	csvPath := env.path("users.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(usersCSV), 0o644))

	out, err := env.run(t, "--port", "mock", "ab", "upload", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded 2 contacts")

	payload := mock.AddressBook()
	require.Greater(t, len(payload), 4)
	total := int(payload[0])<<24 | int(payload[1])<<16 | int(payload[2])<<8 | int(payload[3])
	assert.Contains(t, string(payload[4:total]), "2345678,G0ABC,Jane Smith,London,,United Kingdom")
}

func TestAddressBookFilter(t *testing.T) {
	env := newTestEnv(t)
	csvPath := env.path("users.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(usersCSV), 0o644))

	out, err := env.run(t, "ab", "filter", csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "RADIO_ID,CALLSIGN,FIRST_NAME,LAST_NAME,CITY,STATE,COUNTRY", lines[0])
	assert.Equal(t, "3138617,K7ABC,John Doe,,,WA,United States", lines[1])

	out, err = env.run(t, "ab", "filter", csvPath, "--columns", "1,callsign")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "RADIO_ID,CALLSIGN\n3138617,K7ABC\n"))
}
