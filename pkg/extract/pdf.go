// Package extract turns uploaded documents into plain text.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"ai-docqa-be/pkg/apperr"
)

const (
	DefaultPdfToText      = "pdftotext"
	DefaultExtractTimeout = 2 * time.Minute
)

var pdfMagic = []byte("%PDF-")

// exit status pdftotext uses when the document forbids text extraction
const pdftotextPermissionExit = 3

// PDFExtractor shells out to poppler's pdftotext.
type PDFExtractor struct {
	Bin     string
	Timeout time.Duration
}

func NewPDFExtractor(bin string, timeout time.Duration) *PDFExtractor {
	if bin == "" {
		bin = DefaultPdfToText
	}
	if timeout <= 0 {
		timeout = DefaultExtractTimeout
	}
	return &PDFExtractor{Bin: bin, Timeout: timeout}
}

// Extract returns the text of every page, one line per page with whitespace collapsed.
// Encrypted files that open with an empty user password are read normally. Input that is not a PDF,
// needs a password, or holds no text is an input error.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic) {
		return "", apperr.Input("The uploaded file is not a valid PDF document")
	}
	if _, err := exec.LookPath(e.Bin); err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", e.Bin, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	tmpDir, err := os.MkdirTemp("", "docqa_pdftotext_*")
	if err != nil {
		return "", fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	inPath := filepath.Join(tmpDir, "in.pdf")
	outPath := filepath.Join(tmpDir, "out.txt")
	if err := os.WriteFile(inPath, data, 0o600); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}

	cmd := exec.CommandContext(callCtx, e.Bin,
		"-enc", "UTF-8",
		inPath,
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if callCtx.Err() != nil {
			return "", fmt.Errorf("pdftotext: %w", callCtx.Err())
		}
		s := strings.TrimSpace(stderr.String())
		if isEncryptedFailure(err, s) {
			return "", apperr.InputWrap("The uploaded PDF is encrypted and cannot be read", fmt.Errorf("pdftotext: %w; stderr=%s", err, s))
		}
		// pdftotext exits non-zero on damaged files
		if s != "" {
			return "", apperr.InputWrap("The uploaded PDF could not be read", fmt.Errorf("pdftotext: %w; stderr=%s", err, s))
		}
		return "", apperr.InputWrap("The uploaded PDF could not be read", fmt.Errorf("pdftotext: %w", err))
	}

	b, err := os.ReadFile(outPath)
	if err != nil {
		return "", fmt.Errorf("read pdftotext output: %w", err)
	}

	txt := JoinPages(string(b))
	if txt == "" {
		return "", apperr.Input("The uploaded PDF contains no extractable text")
	}
	return txt, nil
}

func isEncryptedFailure(err error, stderr string) bool {
	if strings.Contains(stderr, "Incorrect password") {
		return true
	}
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == pdftotextPermissionExit
}

// JoinPages splits pdftotext output on form feeds, collapses whitespace inside each page and joins the
// non-empty pages with newlines.
func JoinPages(raw string) string {
	pages := strings.Split(raw, "\f")
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}
