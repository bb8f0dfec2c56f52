package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	genai "google.golang.org/genai"

	domerr "deeprepo/internal/core/errors"
	"deeprepo/internal/shared/util"
)

const generativePrompt = `You are a code documentation assistant. Summarize the
following structural digest of a source unit. Respond with a single JSON object:
{"headline": "<one sentence>", "body": "<markdown, a few short sections>"}.
Describe what the unit does and its main dependencies. Do not invent behavior
that the digest does not support.`

// GenerativeStrategy produces summaries through the Gemini API. Failures on a
// single unit surface as per-unit errors; the strategy itself never takes the
// run down.
type GenerativeStrategy struct {
	cli     *genai.Client
	model   string
	style   string
	limiter *util.Limiter
}

func NewGenerativeStrategy(ctx context.Context, model, style string, rps float64, burst int) (*GenerativeStrategy, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, domerr.Wrap(err, domerr.CodeSummarizationFailed, "create generative client")
	}
	if style == "" {
		style = StyleConcise
	}
	return &GenerativeStrategy{
		cli:     cli,
		model:   model,
		style:   style,
		limiter: util.NewLimiter(rps, burst),
	}, nil
}

func (g *GenerativeStrategy) Name() string { return "generative:" + g.model }

func (g *GenerativeStrategy) Fingerprint() string {
	return util.FingerprintFields("generative", g.model, g.style)
}

func (g *GenerativeStrategy) Summarize(ctx context.Context, unit Unit) (Summary, error) {
	prompt := generativePrompt + "\n\n[DIGEST]\n" + digestOf(unit, g.style)

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if err := g.limiter.Wait(ctx, 1); err != nil {
			lastErr = err
			break
		}
		resp, err := g.cli.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
			&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
		)
		if err != nil {
			lastErr = err
		} else if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = fmt.Errorf("empty model response")
		} else {
			var summary Summary
			text := resp.Candidates[0].Content.Parts[0].Text
			if err := json.Unmarshal([]byte(text), &summary); err != nil {
				lastErr = fmt.Errorf("decode model response: %w", err)
			} else if summary.Headline == "" {
				lastErr = fmt.Errorf("model response missing headline")
			} else {
				return summary, nil
			}
		}

		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			attempt = 3
		case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
		}
	}

	err := domerr.Wrap(lastErr, domerr.CodeSummarizationFailed, "generative summarization failed")
	return Summary{}, domerr.AddContext(err, domerr.CtxUnit, unit.ID)
}

// digestOf renders a compact structural description of the unit for the
// prompt. No raw source is sent, only the extracted graph.
func digestOf(unit Unit, style string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "unit: %s\nscope: %s\nstyle: %s\n", unit.ID, unit.Scope, style)

	switch unit.Scope {
	case ScopeModule:
		m := unit.Module
		fmt.Fprintf(&b, "path: %s\nlanguage: %s\n", m.Path, m.Language)
		if len(m.Symbols) > 0 {
			b.WriteString("symbols:\n")
			for _, s := range m.Symbols {
				fmt.Fprintf(&b, "  - %s %s", s.Kind, s.Name)
				if s.Signature != "" {
					fmt.Fprintf(&b, " :: %s", s.Signature)
				}
				b.WriteString("\n")
			}
		}
		if imports := importTargets(m); len(imports) > 0 {
			fmt.Fprintf(&b, "imports: %s\n", strings.Join(imports, ", "))
		}
	case ScopeSection, ScopeRepo:
		b.WriteString("members:\n")
		for _, id := range unit.Members {
			if s, ok := unit.MemberSummaries[id]; ok && s.Headline != "" {
				fmt.Fprintf(&b, "  - %s: %s\n", id, s.Headline)
			} else {
				fmt.Fprintf(&b, "  - %s\n", id)
			}
		}
	}
	return b.String()
}
