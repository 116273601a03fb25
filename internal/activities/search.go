package activities

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.temporal.io/sdk/activity"

	"github.com/dossierlab/dossier/internal/findings"
	"github.com/dossierlab/dossier/internal/llm"
	"github.com/dossierlab/dossier/internal/metrics"
)

// ExecuteSubQueryInput runs one sub-query from a decomposition plan.
// Context carries summaries of every sub-query completed in earlier
// batches.
type ExecuteSubQueryInput struct {
	SubQuery SubQuery         `json:"sub_query"`
	Context  ExecutionContext `json:"context"`
}

// ExecuteSubQuery researches one sub-query and extracts findings from
// the result. Transport failure surfaces as an activity error; the
// workflow converts it into a failed SubQueryResult for this item only.
func (a *Activities) ExecuteSubQuery(ctx context.Context, in ExecuteSubQueryInput) (*SubQueryResult, error) {
	logger := activity.GetLogger(ctx)
	sq := in.SubQuery

	res, err := a.llm.GenerateJSON(ctx, llm.GenerateInput{
		Prompt:       buildSubQueryPrompt(sq, in.Context),
		SystemPrompt: researchSystemPrompt,
		Temperature:  0.4,
		MaxTokens:    8192,
		AgentID:      "researcher",
	})
	if err != nil {
		metrics.SubQueryExecutions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("sub-query %s: %w", sq.ID, err)
	}

	out := &SubQueryResult{
		ID:         sq.ID,
		Query:      sq.Query,
		Role:       sq.Role,
		FocusTheme: sq.FocusTheme,
		TokensUsed: res.Response.Usage.TotalTokens,
		CostUSD:    res.Response.Usage.CostUSD,
		Success:    true,
	}

	parsed := decodeResearchPayload(res)
	if parsed == nil {
		// Unstructured output still counts as a successful run; the raw
		// text becomes the content and findings stay empty.
		logger.Warn("Sub-query response unstructured, keeping raw content",
			"sub_query", sq.ID, "parse_error", res.ParseError)
		out.Content = res.Response.Text
		metrics.SubQueryExecutions.WithLabelValues("unstructured").Inc()
		return out, nil
	}

	out.Content = parsed.Content
	out.Sources = parsed.Sources
	out.Findings = findings.CoerceList(parsed.Findings)

	metrics.SubQueryExecutions.WithLabelValues("ok").Inc()
	logger.Info("Sub-query executed",
		"sub_query", sq.ID,
		"findings", len(out.Findings),
		"sources", len(out.Sources),
	)
	return out, nil
}

// SearchQueriesInput asks for focused search queries for the single-pass
// research branch.
type SearchQueriesInput struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// SearchQueriesResult carries the generated queries. The original query
// is always a usable fallback, so Queries is never empty.
type SearchQueriesResult struct {
	Queries    []string `json:"queries"`
	TokensUsed int      `json:"tokens_used"`
	CostUSD    float64  `json:"cost_usd"`
}

// GenerateSearchQueries produces up to Count focused search queries for
// one research question. Unparseable output falls back to the question
// itself.
func (a *Activities) GenerateSearchQueries(ctx context.Context, in SearchQueriesInput) (*SearchQueriesResult, error) {
	count := in.Count
	if count <= 0 {
		count = a.research.SearchQueryCount
	}
	if count <= 0 {
		count = 3
	}

	res, err := a.llm.GenerateJSON(ctx, llm.GenerateInput{
		Prompt: fmt.Sprintf(
			"Research question: %s\n\nProduce up to %d focused search queries covering its distinct aspects. Respond with JSON only: {\"queries\": [\"...\"]}",
			in.Query, count),
		SystemPrompt: "You write precise search queries. Each query targets one aspect of the question.",
		Temperature:  0.3,
		AgentID:      "query_writer",
		ModelTier:    "small",
	})
	if err != nil {
		return nil, fmt.Errorf("search query generation: %w", err)
	}
	out := &SearchQueriesResult{
		TokensUsed: res.Response.Usage.TotalTokens,
		CostUSD:    res.Response.Usage.CostUSD,
	}

	var parsed struct {
		Queries []string `json:"queries"`
	}
	if res.Raw != nil && json.Unmarshal(res.Raw, &parsed) == nil {
		for _, q := range parsed.Queries {
			if strings.TrimSpace(q) == "" {
				continue
			}
			out.Queries = append(out.Queries, q)
			if len(out.Queries) == count {
				break
			}
		}
	}
	if len(out.Queries) == 0 {
		out.Queries = []string{in.Query}
	}
	return out, nil
}

// SearchInput runs one standalone search in the single-pass branch.
type SearchInput struct {
	Query         string `json:"query"`
	OriginalQuery string `json:"original_query"`
}

// SearchResult is raw researched content plus its sources, prior to
// finding extraction.
type SearchResult struct {
	Query      string   `json:"query"`
	Content    string   `json:"content"`
	Sources    []string `json:"sources"`
	TokensUsed int      `json:"tokens_used"`
	CostUSD    float64  `json:"cost_usd"`
}

// ExecuteSearch researches one query and returns raw content with source
// references.
func (a *Activities) ExecuteSearch(ctx context.Context, in SearchInput) (*SearchResult, error) {
	res, err := a.llm.GenerateJSON(ctx, llm.GenerateInput{
		Prompt: fmt.Sprintf(
			"Overall research question: %s\nCurrent search: %s\n\nResearch this thoroughly. Respond with JSON only: {\"content\": \"...\", \"sources\": [\"...\"]}",
			in.OriginalQuery, in.Query),
		SystemPrompt: researchSystemPrompt,
		Temperature:  0.4,
		MaxTokens:    8192,
		AgentID:      "researcher",
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", truncateStr(in.Query, 60), err)
	}

	out := &SearchResult{
		Query:      in.Query,
		TokensUsed: res.Response.Usage.TotalTokens,
		CostUSD:    res.Response.Usage.CostUSD,
	}
	var parsed struct {
		Content string   `json:"content"`
		Sources []string `json:"sources"`
	}
	if res.Raw != nil && json.Unmarshal(res.Raw, &parsed) == nil {
		out.Content = parsed.Content
		out.Sources = parsed.Sources
	} else {
		out.Content = res.Response.Text
	}
	return out, nil
}

// ExtractFindingsInput extracts structured findings from researched
// content.
type ExtractFindingsInput struct {
	Query   string `json:"query"`
	Content string `json:"content"`
}

// ExtractFindingsResult carries the coerced findings.
type ExtractFindingsResult struct {
	Findings   []findings.Finding `json:"findings"`
	TokensUsed int                `json:"tokens_used"`
	CostUSD    float64            `json:"cost_usd"`
}

// ExtractFindings turns free-text research content into typed findings.
// Unparseable output yields an empty list, not an error.
func (a *Activities) ExtractFindings(ctx context.Context, in ExtractFindingsInput) (*ExtractFindingsResult, error) {
	logger := activity.GetLogger(ctx)

	res, err := a.llm.GenerateJSON(ctx, llm.GenerateInput{
		Prompt:       buildExtractionPrompt(in.Query, in.Content),
		SystemPrompt: extractionSystemPrompt,
		Temperature:  0.2,
		MaxTokens:    8192,
		AgentID:      "fact_extractor",
	})
	if err != nil {
		return nil, fmt.Errorf("finding extraction: %w", err)
	}
	out := &ExtractFindingsResult{
		TokensUsed: res.Response.Usage.TotalTokens,
		CostUSD:    res.Response.Usage.CostUSD,
	}

	var parsed struct {
		Findings []interface{} `json:"findings"`
	}
	if res.Raw == nil || json.Unmarshal(res.Raw, &parsed) != nil {
		logger.Warn("Finding extraction unparseable, returning no findings",
			"parse_error", res.ParseError)
		return out, nil
	}
	out.Findings = findings.CoerceList(parsed.Findings)
	logger.Info("Findings extracted", "count", len(out.Findings))
	return out, nil
}

const researchSystemPrompt = `You are a research agent. Investigate the given query and report what
is known: concrete events with dates, the actors involved, relationships between them, and the
evidence behind each claim. Cite sources for every factual statement.`

const extractionSystemPrompt = `You extract atomic findings from research content. Each finding is
one fact: an event, an actor, a relationship, a piece of evidence, a pattern, or a gap in the
record. Keep content verbatim where possible and carry source references through.`

type researchPayload struct {
	Content  string        `json:"content"`
	Sources  []string      `json:"sources"`
	Findings []interface{} `json:"findings"`
}

func decodeResearchPayload(res *llm.JSONResult) *researchPayload {
	if res.Raw == nil {
		return nil
	}
	var p researchPayload
	if err := json.Unmarshal(res.Raw, &p); err != nil {
		return nil
	}
	return &p
}

func buildSubQueryPrompt(sq SubQuery, ec ExecutionContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Overall research question: %s\n", ec.OriginalQuery)
	fmt.Fprintf(&b, "Your sub-query: %s\n", sq.Query)
	if sq.FocusTheme != "" {
		fmt.Fprintf(&b, "Focus theme: %s\n", sq.FocusTheme)
	}
	if len(sq.FocusActors) > 0 {
		fmt.Fprintf(&b, "Focus actors: %s\n", strings.Join(sq.FocusActors, ", "))
	}
	if sq.StartDate != "" || sq.EndDate != "" {
		fmt.Fprintf(&b, "Time bounds: %s to %s\n", sq.StartDate, sq.EndDate)
	}
	if len(ec.Completed) > 0 {
		b.WriteString("\nResults from earlier sub-queries:\n")
		for _, c := range ec.Completed {
			fmt.Fprintf(&b, "- [%s] %s (%d findings): %s\n",
				c.ID, c.Query, c.FindingCount, truncateStr(c.Summary, 300))
		}
	}
	b.WriteString(`
Research the sub-query. Respond with JSON only:
{"content": "<synthesized research>", "sources": ["..."],
 "findings": [{"type": "event|actor|relationship|evidence|pattern|gap", "content": "...",
  "summary": "...", "date": "...", "actors": ["..."], "sources": ["..."]}]}`)
	return b.String()
}

func buildExtractionPrompt(query, content string) string {
	return fmt.Sprintf(`Research question: %s

Content:
%s

Extract the atomic findings. Respond with JSON only:
{"findings": [{"type": "event|actor|relationship|evidence|pattern|gap", "content": "...",
 "summary": "...", "date": "...", "actors": ["..."], "sources": ["..."]}]}`, query, content)
}
