// Package diagnostics captures visual and DOM snapshots of browsing
// contexts so that a failed run can be explained after the fact.
package diagnostics

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Al10s/pupperteer-test/browser"
)

// Recorder writes capture artifacts under a fixed output directory.
//
// Captures are best-effort: a failure to write an artifact is logged
// and never overrides the error that triggered the capture. A nil
// *Recorder is a safe no-op, so degraded runs and tests need no stub.
type Recorder struct {
	dir string
}

// New returns a Recorder writing under dir, or nil when dir is blank.
func New(dir string) *Recorder {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil
	}
	return &Recorder{dir: dir}
}

// Debug captures a full-page screenshot and a full-document markup
// dump for the given label (<label>.png and <label>.html).
func (r *Recorder) Debug(ctx context.Context, page browser.Page, label string) {
	if r == nil || page == nil {
		return
	}
	r.Screenshot(ctx, page, label+".png")
	r.DumpHTML(ctx, page, label+".html")
}

// Screenshot writes a full-page capture of the page.
func (r *Recorder) Screenshot(ctx context.Context, page browser.Page, name string) {
	if r == nil || page == nil {
		return
	}
	buf, err := page.Screenshot(ctx)
	if err != nil {
		log.Printf("[diag] ⚠ screenshot %s: %v", name, err)
		return
	}
	r.write(name, buf)
}

// DumpHTML writes the page's full document markup.
func (r *Recorder) DumpHTML(ctx context.Context, page browser.Page, name string) {
	if r == nil || page == nil {
		return
	}
	html, err := page.HTML(ctx)
	if err != nil {
		log.Printf("[diag] ⚠ html dump %s: %v", name, err)
		return
	}
	r.write(name, []byte(html))
}

// PDF exports the page as a PDF document.
func (r *Recorder) PDF(ctx context.Context, page browser.Page, name string) {
	if r == nil || page == nil {
		return
	}
	buf, err := page.PDF(ctx)
	if err != nil {
		log.Printf("[diag] ⚠ pdf export %s: %v", name, err)
		return
	}
	r.write(name, buf)
}

// Audit captures a post-checkout screenshot named by the current
// timestamp, for later verification of what was actually bought.
func (r *Recorder) Audit(ctx context.Context, page browser.Page) {
	if r == nil || page == nil {
		return
	}
	r.Screenshot(ctx, page, fmt.Sprintf("%d.png", time.Now().UnixMilli()))
}

func (r *Recorder) write(name string, data []byte) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		log.Printf("[diag] ⚠ create %s: %v", r.dir, err)
		return
	}
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("[diag] ⚠ write %s: %v", path, err)
	}
}
