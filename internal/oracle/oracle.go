// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package oracle defines the transcription capability: a stateless
// request/response service that turns one rendered page image into raw
// reply text. The service makes no guarantee of well-formedness; replies
// may be conversational refusals that only content inspection can tell
// apart from real transcriptions. Shape validation is the conversion
// pipeline's job, not this package's.
package oracle

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/pdiddy/pagescribe/pkg/types"
)

// Oracle abstracts the transcription API so tests can supply a scripted
// backend. One call transcribes one page image with one model.
type Oracle interface {
	// Transcribe sends the page image to the named model and returns
	// the raw reply text, unparsed and unvalidated.
	Transcribe(ctx context.Context, img types.PageImage, model string) (string, error)
}

// transcribePromptTmpl is the instruction sent with every page image. It
// pins the reading order, the Markdown conventions, and the requirement
// that the transcription arrive inside a fenced markdown block, the
// delimiter the pipeline's shape check keys on.
var transcribePromptTmpl = template.Must(template.New("transcribe").Parse(`You are looking at page {{.Page}} of a PDF document. Your task is to extract **all** visible text exactly as it appears, in strict top-left to bottom-right reading order. Do **not** reorder or relocate headings, paragraphs, or tables; wherever something appears on the page, it must remain in that exact position in your output. Do **not** fix, skip, or summarize any text; preserve the exact wording, numbering, and spacing.

# Markdown Formatting Rules
1. **Headings**: Use standard Markdown syntax (#, ##, ###, etc.) for headings. If a heading appears in the middle of the page, keep it there.
2. **Tables**: Use standard Markdown table syntax (rows/columns with pipes and dashes). If the text in a cell spans multiple lines in the image, replace line breaks with '<br>' within the same cell.
3. **References**: If you see labels or annotations like 'Offset address' or 'Reset value', include them exactly where they appear.
4. **Footnotes**: The only text you may ignore is a small footnote at the bottom margin that typically contains a URL and a page number. Everything else on the page must be transcribed.

# Output Requirements
- Return the transcribed text as a single Markdown block enclosed in triple backticks (` + "```markdown ... ```" + `).
- Do **not** add extra commentary, interpretation, or summary; only the transcribed text in the correct order.
`))

// renderPrompt executes the transcription prompt template for a page index.
func renderPrompt(page int) (string, error) {
	var buf bytes.Buffer
	if err := transcribePromptTmpl.Execute(&buf, struct{ Page int }{Page: page}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RateLimitError reports that the transcription API rejected the call with
// HTTP 429 even after transport-level smoothing. The pipeline backs off
// before charging a retry against the tier budget.
type RateLimitError struct {
	Message string

	// RetryAfter is the server-requested wait, zero when the response
	// carried no usable Retry-After header.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("transcription API rate limited: %s", e.Message)
}

// TransportError reports a network failure or a server-side (5xx) error.
// Retryable from the pipeline's point of view.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcription API transport error: %v", e.Err)
	}
	return fmt.Sprintf("transcription API status %d: %s", e.StatusCode, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }
