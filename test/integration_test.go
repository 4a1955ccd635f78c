package test

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

// fwBinary is the path to the compiled fw binary, set by TestMain.
var fwBinary string

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(0)
	}

	tmpDir, err := os.MkdirTemp("", "fw-integration-build-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "create temp dir: %v\n", err)
		os.Exit(1)
	}

	fwBinary = filepath.Join(tmpDir, "fw")
	cmd := exec.Command("go", "build", "-o", fwBinary, "./cmd/fw")
	// Test working dir is test/, so go up one level to project root
	cmd.Dir = filepath.Join("..")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "build fw binary: %v\n", err)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// --- Helpers ---

// sandbox is one isolated fw installation: config, data and inbox all
// live under a temp dir.
type sandbox struct {
	root    string
	dataDir string
	inbox   string
	env     []string
}

func newSandbox(t *testing.T) *sandbox {
	t.Helper()
	root := t.TempDir()
	s := &sandbox{
		root:    root,
		dataDir: filepath.Join(root, "data"),
		inbox:   filepath.Join(root, "inbox"),
	}
	s.env = []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + root,
		"XDG_CONFIG_HOME=" + filepath.Join(root, "config"),
		"FW_DATA_DIR=" + s.dataDir,
		"FW_INBOX_DIR=" + s.inbox,
		"FW_LOG_LEVEL=error",
	}
	return s
}

func runFW(t *testing.T, env []string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := exec.Command(fwBinary, args...)
	cmd.Env = env
	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

func mustRunFW(t *testing.T, env []string, args ...string) string {
	t.Helper()
	stdout, stderr, err := runFW(t, env, args...)
	if err != nil {
		t.Fatalf("fw %s failed: %v\nstdout: %s\nstderr: %s", strings.Join(args, " "), err, stdout, stderr)
	}
	return stdout
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func assertContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: expected %q to contain %q", msg, s, substr)
	}
}

func assertNotContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if strings.Contains(s, substr) {
		t.Errorf("%s: expected %q to NOT contain %q", msg, s, substr)
	}
}

type record struct {
	ID          string   `json:"id"`
	Stage       string   `json:"stage"`
	Type        string   `json:"type"`
	Priority    string   `json:"priority"`
	Suggestions []string `json:"suggestions"`
}

func decodeRecords(t *testing.T, out string) []record {
	t.Helper()
	var records []record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode records: %v\n%s", err, out)
	}
	return records
}

func freePort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

// --- Tests ---

func TestVersion(t *testing.T) {
	out := mustRunFW(t, []string{"PATH=" + os.Getenv("PATH")}, "version")
	assertContains(t, out, "fw v", "version output")
}

func TestInitCheck(t *testing.T) {
	s := newSandbox(t)

	out := mustRunFW(t, s.env, "init")
	assertContains(t, out, "config:", "init output")

	if !fileExists(filepath.Join(s.root, "config", "flywheel", "config.toml")) {
		t.Error("config.toml not written")
	}
	if !fileExists(filepath.Join(s.dataDir, "flywheel.db")) {
		t.Error("database not created")
	}
	for _, stage := range []string{"acquisition", "activation", "adoption", "retention", "referral"} {
		info, err := os.Stat(filepath.Join(s.inbox, stage))
		if err != nil || !info.IsDir() {
			t.Errorf("inbox/%s not created", stage)
		}
	}

	out = mustRunFW(t, s.env, "check")
	assertContains(t, out, "0 failure", "check output")
	assertNotContains(t, out, "FAIL", "check output")
}

func TestFrictionWorkflow(t *testing.T) {
	s := newSandbox(t)
	mustRunFW(t, s.env, "init")

	mustRunFW(t, s.env, "add", "--stage", "acquisition", "Hay muchas visitas pero pocas conversiones")
	mustRunFW(t, s.env, "add", "--stage", "retention", "Users don't come back after the first month")
	mustRunFW(t, s.env, "add", "--stage", "referral", "Customers don't share the product with friends")

	records := decodeRecords(t, mustRunFW(t, s.env, "list", "--json"))
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}

	want := map[string]string{
		"acquisition": "low_conversion",
		"retention":   "low_retention",
		"referral":    "low_referral",
	}
	for _, r := range records {
		if !strings.HasPrefix(r.ID, "FR-") {
			t.Errorf("id %q lacks FR- prefix", r.ID)
		}
		if r.Type != want[r.Stage] {
			t.Errorf("%s: type = %q, want %q", r.Stage, r.Type, want[r.Stage])
		}
		if len(r.Suggestions) == 0 {
			t.Errorf("%s: no suggestions", r.Stage)
		}
	}

	filtered := decodeRecords(t, mustRunFW(t, s.env, "list", "--stage", "retention", "--json"))
	if len(filtered) != 1 || filtered[0].Type != "low_retention" {
		t.Errorf("stage filter = %+v", filtered)
	}

	id := records[0].ID
	out := mustRunFW(t, s.env, "show", id)
	assertContains(t, out, id, "show output")

	mustRunFW(t, s.env, "rm", id)
	_, stderr, err := runFW(t, s.env, "show", id)
	if err == nil {
		t.Fatal("show after rm succeeded")
	}
	assertContains(t, stderr, "not found", "show after rm")
}

func TestAddRejectsUnknownStage(t *testing.T) {
	s := newSandbox(t)

	_, stderr, err := runFW(t, s.env, "add", "--stage", "checkout", "Slow page")
	if err == nil {
		t.Fatal("expected failure for unknown stage")
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		t.Errorf("exit = %v, want code 1", err)
	}
	assertContains(t, stderr, "stage", "stderr")
}

func TestPeriodsAndReport(t *testing.T) {
	s := newSandbox(t)
	mustRunFW(t, s.env, "init")

	save := func(label, start, end, a, e, d string) string {
		out := mustRunFW(t, s.env, "period", "save",
			"--label", label, "--start", start, "--end", end,
			"--attract", a, "--engage", e, "--delight", d)
		fields := strings.Fields(out)
		if len(fields) < 2 || !strings.HasPrefix(fields[1], "AN-") {
			t.Fatalf("unexpected save output %q", out)
		}
		return fields[1]
	}

	march := save("March", "2026-03-01", "2026-03-31", "1000", "400", "90")
	april := save("April", "2026-04-01", "2026-04-30", "1200", "300", "90")

	out := mustRunFW(t, s.env, "compare", april, march)
	assertContains(t, out, "April vs March", "compare output")
	assertContains(t, out, "+200 (+20.0%)", "compare output")

	reports := filepath.Join(s.root, "reports")
	out = mustRunFW(t, s.env, "report", april, "--previous", march, "--out", reports)
	assertContains(t, out, "wrote", "report output")

	md, err := os.ReadFile(filepath.Join(reports, "2026-04-01-april.md"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	assertContains(t, string(md), "Compared to", "report body")
	assertContains(t, string(md), "March", "report body")
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newSandbox(t)
	mustRunFW(t, src.env, "init")
	mustRunFW(t, src.env, "add", "--stage", "adoption", "Customers only use one feature")
	mustRunFW(t, src.env, "period", "save", "--label", "Q1",
		"--start", "2026-01-01", "--end", "2026-03-31", "--attract", "500")

	bundle := filepath.Join(src.root, "bundle.jsonl.zst")
	out := mustRunFW(t, src.env, "export", bundle)
	assertContains(t, out, "exported 1 frictions, 1 periods", "export output")

	dst := newSandbox(t)
	mustRunFW(t, dst.env, "init")
	out = mustRunFW(t, dst.env, "import", bundle)
	assertContains(t, out, "imported 1 frictions, 1 periods", "import output")

	// importing again replaces rather than duplicates
	mustRunFW(t, dst.env, "import", bundle)
	records := decodeRecords(t, mustRunFW(t, dst.env, "list", "--json"))
	if len(records) != 1 {
		t.Errorf("records after double import = %d, want 1", len(records))
	}
	assertContains(t, mustRunFW(t, dst.env, "period", "list"), "Q1", "period list")
}

func TestWatchOnce(t *testing.T) {
	s := newSandbox(t)
	mustRunFW(t, s.env, "init")

	note := filepath.Join(s.inbox, "retention", "churn.txt")
	if err := os.WriteFile(note, []byte("Customers abandon after a week\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(s.inbox, "referral", "empty.txt")
	if err := os.WriteFile(empty, []byte("   \n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := mustRunFW(t, s.env, "watch", "--once")
	assertContains(t, out, "processed 1, failed 1", "watch output")

	if !fileExists(filepath.Join(s.inbox, "processed", "retention", "churn.txt")) {
		t.Error("processed file not moved")
	}
	if !fileExists(filepath.Join(s.inbox, "failed", "referral", "empty.txt.err")) {
		t.Error("failure note not written")
	}

	records := decodeRecords(t, mustRunFW(t, s.env, "list", "--json"))
	if len(records) != 1 || records[0].Type != "low_retention" {
		t.Errorf("records = %+v", records)
	}
}

func TestServe(t *testing.T) {
	s := newSandbox(t)
	mustRunFW(t, s.env, "init")

	addr := freePort(t)
	cmd := exec.Command(fwBinary, "serve", "--addr", addr)
	cmd.Env = s.env
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start serve: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	defer func() { _ = cmd.Process.Kill() }()

	base := "http://" + addr
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := client.Get(base + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became healthy: %v\nstderr: %s", err, stderr.String())
		}
		time.Sleep(50 * time.Millisecond)
	}

	body := strings.NewReader(`{"stage":"activation","description":"They sign up but never finish the setup"}`)
	resp, err := client.Post(base+"/api/frictions", "application/json", body)
	if err != nil {
		t.Fatalf("post friction: %v", err)
	}
	var created record
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if created.Type != "low_activation" {
		t.Errorf("type = %q, want low_activation", created.Type)
	}

	resp, err = client.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	metrics, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assertContains(t, string(metrics), "flywheel_frictions_stored_total", "metrics")

	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		t.Fatalf("signal: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve exited with %v\nstderr: %s", err, stderr.String())
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after SIGINT")
	}
}
