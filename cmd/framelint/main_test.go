package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `fc:frame: vNext
fc:frame:image: https://example.com/frame.png
fc:frame:post_url: https://example.com/api
fc:frame:button:1: Start
og:title: Example
og:description: A frame
og:image: https://example.com/frame.png
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunReportsEveryFile(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", validYAML)
	bad := writeFile(t, dir, "bad.json", `{"fc:frame":"v1","og:title":" "}`)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-meta", good, bad}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	out := stdout.String()
	for _, want := range []string{
		good + ": ok",
		`<meta property="fc:frame" content="vNext" />`,
		bad + `: fc:frame must be "vNext"`,
		bad + ": fc:frame:image is required",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunJSONOutput(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yml", validYAML)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-json", good}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, stderr %s", code, stderr.String())
	}
	var results []struct {
		File    string   `json:"file"`
		IsValid bool     `json:"isValid"`
		Errors  []string `json:"errors"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &results); err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout.String())
	}
	if len(results) != 1 || !results[0].IsValid || results[0].File != good {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestRunUsageAndMissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 2 {
		t.Fatalf("exit code without files = %d, want 2", code)
	}
	stdout.Reset()
	if code := run([]string{filepath.Join(t.TempDir(), "missing.json")}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code for missing file = %d, want 1", code)
	}
	if !strings.Contains(stdout.String(), "read manifest") {
		t.Fatalf("missing file error not reported: %s", stdout.String())
	}
}
