// Package judge evaluates submissions against an external sandbox service.
// The sandbox compiles and runs candidate code one test case at a time; this
// package classifies the results into verdicts.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/codearena/arena/pkg/models"
)

// timeoutFactor scales a problem's time limit into the per-call HTTP timeout.
const timeoutFactor = 3

// minCallTimeout floors the per-call HTTP timeout.
const minCallTimeout = 10 * time.Second

// Client talks to the sandbox over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a sandbox client. The endpoint is the full judge URL
// (e.g. http://sandbox:9000/judge). Per-call timeouts are derived from each
// problem's time limit, so the underlying client carries none.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
}

// Result is the outcome of evaluating one submission.
type Result struct {
	Verdict     models.Verdict
	TestResults []models.TestResult
	Passed      int
	Total       int
}

// sandboxRequest is the wire format of one sandbox call.
type sandboxRequest struct {
	Compile  compileRequest  `json:"compile"`
	Execute  executeRequest  `json:"execute"`
	TestCase testCaseRequest `json:"test_case"`
}

type compileRequest struct {
	SourceCode      string `json:"source_code"`
	Language        string `json:"language_code"`
	CompilerOptions string `json:"compiler_options,omitempty"`
}

type executeRequest struct {
	Stdin     string `json:"stdin"`
	TimeoutMs int    `json:"timeout_ms"`
}

type testCaseRequest struct {
	CheckerType    string `json:"checker_type"`
	ExpectedOutput string `json:"expected_output"`
}

// sandboxResponse is the wire format of one sandbox reply.
type sandboxResponse struct {
	Compile struct {
		ExitCode int    `json:"exit_code"`
		Stderr   string `json:"stderr"`
	} `json:"compile"`
	Execute struct {
		ExitCode    int    `json:"exit_code"`
		Stdout      string `json:"stdout"`
		Stderr      string `json:"stderr"`
		WallTime    string `json:"wall_time"`    // seconds
		MemoryUsage string `json:"memory_usage"` // KB
		Verdict     string `json:"verdict"`
	} `json:"execute"`
}

// verdictFromSandbox maps sandbox verdict strings onto the verdict enum.
// Unknown or empty strings return ok=false and the caller falls back to
// output comparison.
func verdictFromSandbox(s string) (models.Verdict, bool) {
	switch s {
	case "accepted":
		return models.VerdictAC, true
	case "wrong_answer", "presentation_error":
		return models.VerdictWA, true
	case "time_limit_exceeded":
		return models.VerdictTLE, true
	case "memory_limit_exceeded":
		return models.VerdictMLE, true
	case "runtime_error", "output_limit_exceeded":
		return models.VerdictRE, true
	}
	return "", false
}

// Evaluate runs all test cases for a submission and aggregates the verdict:
// AC iff every case is AC, otherwise the first failing case's verdict. A
// compile failure records a single CE result and short-circuits the remaining
// cases. Sandbox transport or parse failures also yield CE, with the error
// carried in one synthetic test result.
func (c *Client) Evaluate(ctx context.Context, code string, language models.Language, problem *models.Problem, cases []models.Case) *Result {
	result := &Result{Verdict: models.VerdictAC, Total: len(cases)}

	for _, tc := range cases {
		tr := c.runCase(ctx, code, language, problem, tc)
		result.TestResults = append(result.TestResults, tr)

		if tr.Verdict == models.VerdictAC {
			result.Passed++
			continue
		}
		if result.Verdict == models.VerdictAC {
			result.Verdict = tr.Verdict
		}
		if tr.Verdict == models.VerdictCE {
			// CE applies to the whole submission; no point running more cases.
			break
		}
	}

	if len(cases) == 0 {
		result.Verdict = models.VerdictCE
		result.TestResults = []models.TestResult{{
			CaseID:  "setup",
			Verdict: models.VerdictCE,
			Error:   "no test cases available for problem " + problem.ID,
		}}
	}

	return result
}

// runCase executes one test case against the sandbox and classifies it.
func (c *Client) runCase(ctx context.Context, code string, language models.Language, problem *models.Problem, tc models.Case) models.TestResult {
	timeout := time.Duration(problem.TimeLimitMs) * time.Millisecond * timeoutFactor
	if timeout < minCallTimeout {
		timeout = minCallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.call(callCtx, sandboxRequest{
		Compile: compileRequest{SourceCode: code, Language: string(language)},
		Execute: executeRequest{Stdin: tc.Input, TimeoutMs: problem.TimeLimitMs},
		TestCase: testCaseRequest{
			CheckerType:    "strict_diff",
			ExpectedOutput: tc.Expected,
		},
	})
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return models.TestResult{
				CaseID:  tc.ID,
				Verdict: models.VerdictTLE,
				Error:   fmt.Sprintf("sandbox call timed out after %v", timeout),
			}
		}
		c.logger.Warn("Sandbox call failed", "problem_id", problem.ID, "case_id", tc.ID, "error", err)
		return models.TestResult{
			CaseID:  "compilation",
			Verdict: models.VerdictCE,
			Error:   err.Error(),
		}
	}

	if resp.Compile.ExitCode != 0 {
		return models.TestResult{
			CaseID:  "compilation",
			Verdict: models.VerdictCE,
			Error:   resp.Compile.Stderr,
		}
	}

	runtimeMs := parseSeconds(resp.Execute.WallTime)
	memoryKB := parseInt(resp.Execute.MemoryUsage)

	tr := models.TestResult{
		CaseID:    tc.ID,
		RuntimeMs: runtimeMs,
		MemoryKB:  memoryKB,
		Stdout:    resp.Execute.Stdout,
	}

	if v, ok := verdictFromSandbox(resp.Execute.Verdict); ok {
		tr.Verdict = v
	} else if OutputsMatch(resp.Execute.Stdout, tc.Expected) {
		tr.Verdict = models.VerdictAC
	} else {
		tr.Verdict = models.VerdictWA
	}

	if tr.Verdict != models.VerdictAC && resp.Execute.Stderr != "" {
		tr.Error = resp.Execute.Stderr
	}

	// Measured memory above the problem limit upgrades the verdict.
	if problem.MemoryLimitMB > 0 && memoryKB > problem.MemoryLimitMB*1024 {
		tr.Verdict = models.VerdictMLE
	}

	return tr
}

// call POSTs one sandbox request and decodes the response.
func (c *Client) call(ctx context.Context, payload sandboxRequest) (*sandboxResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal sandbox request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create sandbox request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call sandbox at %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("sandbox returned HTTP %d: %s", resp.StatusCode, string(data))
	}

	var parsed sandboxResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode sandbox response: %w", err)
	}
	return &parsed, nil
}

// parseSeconds converts a seconds string to whole milliseconds.
func parseSeconds(s string) int {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f * 1000)
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0
		}
		return int(f)
	}
	return n
}
