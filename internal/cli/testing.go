package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CLI runs storefront commands in tests against a temp directory.
type CLI struct {
	t   *testing.T
	Dir string
	Env map[string]string
}

// NewCLI creates a test CLI rooted at a fresh temp directory.
func NewCLI(t *testing.T) *CLI {
	t.Helper()

	return &CLI{
		t:   t,
		Dir: t.TempDir(),
		Env: map[string]string{},
	}
}

// Run executes the CLI and returns stdout, stderr and the exit code.
// Args should not include the program name or --cwd.
func (r *CLI) Run(args ...string) (string, string, int) {
	var outBuf, errBuf bytes.Buffer

	fullArgs := append([]string{"storefront", "--cwd", r.Dir}, args...)
	code := Run(nil, &outBuf, &errBuf, fullArgs, r.Env, nil)

	return outBuf.String(), errBuf.String(), code
}

// RunWithInput is Run with stdin, which must be a string or io.Reader.
func (r *CLI) RunWithInput(stdin any, args ...string) (string, string, int) {
	var inReader io.Reader
	switch v := stdin.(type) {
	case string:
		inReader = strings.NewReader(v)
	case io.Reader:
		inReader = v
	default:
		panic(fmt.Sprintf("stdin must be string or io.Reader, got %T", stdin))
	}

	var outBuf, errBuf bytes.Buffer

	fullArgs := append([]string{"storefront", "--cwd", r.Dir}, args...)
	code := Run(inReader, &outBuf, &errBuf, fullArgs, r.Env, nil)

	return outBuf.String(), errBuf.String(), code
}

// MustRun fails the test on a non-zero exit. Returns trimmed stdout.
func (r *CLI) MustRun(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code != 0 {
		r.t.Fatalf("command %v failed with exit code %d\nstderr: %s", args, code, stderr)
	}

	return strings.TrimSpace(stdout)
}

// MustFail fails the test if the command succeeds. Returns trimmed stderr.
func (r *CLI) MustFail(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code == 0 {
		r.t.Fatalf("command %v should have failed but succeeded\nstdout: %s", args, stdout)
	}

	return strings.TrimSpace(stderr)
}

// WriteFile writes data to a path relative to Dir, creating parents.
func (r *CLI) WriteFile(rel, data string) {
	r.t.Helper()

	path := filepath.Join(r.Dir, rel)

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		r.t.Fatalf("mkdir for %s: %v", rel, err)
	}

	err = os.WriteFile(path, []byte(data), 0o600)
	if err != nil {
		r.t.Fatalf("write %s: %v", rel, err)
	}
}

// ReadFile reads a path relative to Dir.
func (r *CLI) ReadFile(rel string) string {
	r.t.Helper()

	data, err := os.ReadFile(filepath.Join(r.Dir, rel))
	if err != nil {
		r.t.Fatalf("read %s: %v", rel, err)
	}

	return string(data)
}

// WriteProduct writes content/products/<key>.md.
func (r *CLI) WriteProduct(key, title, price string) {
	r.t.Helper()

	r.WriteFile(filepath.Join("content", "products", key+".md"),
		"---\ntitle: "+title+"\nprice: "+price+"\nimages:\n  - /img/"+key+".jpg\nshort_description: "+title+" kit\n---\nAbout "+title+".\n")
}

// WriteSampleSite writes a small content tree: two products, two gallery
// entries (one featured) and a home file.
func (r *CLI) WriteSampleSite() {
	r.t.Helper()

	r.WriteFile("content/products.yml", "- lotus\n- peacock\n")
	r.WriteProduct("lotus", "Lotus Kit", "499")
	r.WriteProduct("peacock", "Peacock Kit", "1299.5")

	r.WriteFile("content/gallery.yml", "ids:\n  - sunrise\n  - owl\nfeatured:\n  - owl\n")
	r.WriteFile("content/gallery/sunrise.md", "---\ntitle: Sunrise\nimage: /img/sunrise.jpg\nkit: lotus\n---\nMade over a weekend.\n")
	r.WriteFile("content/gallery/owl.md", "---\ntitle: Owl\nimage: /img/owl.jpg\n---\nA gift.\n")

	r.WriteFile("content/home.yml", "video_title: Thread by thread\ncontact:\n  email: hello@example.com\n")
}

// AssertContains fails the test if content doesn't contain substr.
func AssertContains(t *testing.T, content, substr string) {
	t.Helper()

	if !strings.Contains(content, substr) {
		t.Errorf("content should contain %q\ncontent:\n%s", substr, content)
	}
}

// AssertNotContains fails the test if content contains substr.
func AssertNotContains(t *testing.T, content, substr string) {
	t.Helper()

	if strings.Contains(content, substr) {
		t.Errorf("content should NOT contain %q\ncontent:\n%s", substr, content)
	}
}
