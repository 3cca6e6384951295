package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/apresai/promptpatterns/internal/completion"
	"github.com/apresai/promptpatterns/internal/metrics"
	"github.com/apresai/promptpatterns/internal/patterns"
	"github.com/apresai/promptpatterns/internal/refine"
)

var tracer = otel.Tracer("promptpatterns-mcp")

// maxRounds bounds the refinement rounds one tool call may request.
const maxRounds = 5

// ToolDefs returns the MCP tool definitions.
func ToolDefs() []mcp.Tool {
	return []mcp.Tool{
		{
			Name: "self_refine",
			Description: "Improve a draft with the Self-Refine loop: generate, then repeatedly critique against " +
				"scored criteria and rewrite. Returns the final draft and the per-round scores.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"objective": map[string]any{
						"type":        "string",
						"description": "What to write, including audience and length constraints",
					},
					"role": map[string]any{
						"type":        "string",
						"description": "System persona for generation, e.g. \"You are an AWS technical marketing expert.\"",
					},
					"criteria": map[string]any{
						"type":        "string",
						"description": "Numbered evaluation criteria, each scored 1-5",
					},
					"criterion_names": map[string]any{
						"type":        "string",
						"description": "Comma-separated criterion names in display order",
					},
					"rounds": map[string]any{
						"type":        "integer",
						"description": fmt.Sprintf("Critique/refine rounds (0-%d)", maxRounds),
						"default":     1,
					},
					"model": map[string]any{
						"type":        "string",
						"description": "Model ID override (server default when empty)",
					},
				},
				Required: []string{"objective", "role", "criteria"},
			},
		},
		{
			Name:        "style_transfer",
			Description: "Rewrite a text in one of the built-in styles while keeping its meaning. Optionally score meaning preservation.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"text": map[string]any{
						"type":        "string",
						"description": "Text to rewrite",
					},
					"style": map[string]any{
						"type":        "string",
						"description": "Style key: " + strings.Join(styleKeys(), ", "),
						"default":     "business-formal",
					},
					"judge": map[string]any{
						"type":        "boolean",
						"description": "Also score preservation, distortion and tone shift (1-5)",
						"default":     false,
					},
					"model": map[string]any{
						"type":        "string",
						"description": "Model ID override (server default when empty)",
					},
				},
				Required: []string{"text"},
			},
		},
		{
			Name:        "persona_answer",
			Description: "Answer a question as a domain-expert persona, or as a neutral assistant for comparison.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"question": map[string]any{
						"type":        "string",
						"description": "Question to answer",
					},
					"persona": map[string]any{
						"type":        "string",
						"description": "Persona key: neutral, " + strings.Join(personaKeys(), ", "),
						"default":     "neutral",
					},
					"model": map[string]any{
						"type":        "string",
						"description": "Model ID override (server default when empty)",
					},
				},
				Required: []string{"question"},
			},
		},
	}
}

func styleKeys() []string {
	keys := make([]string, 0, len(patterns.Styles))
	for _, s := range patterns.Styles {
		keys = append(keys, s.Key)
	}
	return keys
}

func personaKeys() []string {
	keys := make([]string, 0, len(patterns.Personas))
	for _, p := range patterns.Personas {
		keys = append(keys, p.Key)
	}
	return keys
}

type clientFactory func(ctx context.Context, model string) (completion.Client, error)

// Handlers contains tool handler implementations.
type Handlers struct {
	newClient clientFactory
	runs      *runLimiter
	log       *slog.Logger
}

// NewHandlers creates tool handlers.
func NewHandlers(newClient clientFactory, maxRuns int, logger *slog.Logger) *Handlers {
	return &Handlers{newClient: newClient, runs: newRunLimiter(maxRuns), log: logger}
}

// begin reserves a run slot and builds the client. The returned release
// must be called when err is nil.
func (h *Handlers) begin(ctx context.Context, span trace.Span, model string) (completion.Client, string, func(), error) {
	id, release, err := h.runs.acquire()
	if err != nil {
		return nil, "", nil, err
	}
	client, err := h.newClient(ctx, model)
	if err != nil {
		release()
		return nil, "", nil, fmt.Errorf("create client: %w", err)
	}
	span.SetAttributes(
		attribute.String("run_id", id),
		attribute.String("model", client.Model()),
	)
	return client, id, release, nil
}

func fail(span trace.Span, status string, err error) (*mcp.CallToolResult, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", status, err)), nil
}

// HandleSelfRefine runs the Self-Refine loop synchronously.
func (h *Handlers) HandleSelfRefine(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.self_refine")
	defer span.End()

	task := refine.Task{
		Name:           "mcp",
		Objective:      strings.TrimSpace(mcp.ParseString(req, "objective", "")),
		Role:           strings.TrimSpace(mcp.ParseString(req, "role", "")),
		Criteria:       mcp.ParseString(req, "criteria", ""),
		CriterionNames: parseStringList(req, "criterion_names"),
		Rounds:         parseIntParam(req, "rounds", 1),
	}
	span.SetAttributes(attribute.Int("rounds", task.Rounds))

	if err := task.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid task")
		return mcp.NewToolResultError(err.Error()), nil
	}
	if task.Rounds > maxRounds {
		span.SetStatus(codes.Error, "too many rounds")
		return mcp.NewToolResultError(fmt.Sprintf("rounds must be at most %d", maxRounds)), nil
	}

	client, id, release, err := h.begin(ctx, span, mcp.ParseString(req, "model", ""))
	if err != nil {
		return fail(span, "start run failed", err)
	}
	defer release()

	h.log.InfoContext(ctx, "Self-refine started", "run_id", id, "model", client.Model(), "rounds", task.Rounds)
	res, err := refine.New(client, refine.WithLogger(h.log.With("run_id", id))).Run(ctx, task)
	if err != nil {
		return fail(span, "self-refine failed", err)
	}

	result := map[string]any{
		"run_id":       id,
		"model":        client.Model(),
		"rounds":       task.Rounds,
		"round_scores": res.Trace,
		"final_draft":  res.FinalDraft,
		"elapsed_sec":  res.TotalElapsed(),
	}
	if first, last, delta, ok := res.Improvement(); ok {
		result["improvement"] = map[string]float64{"first": first, "last": last, "delta": delta}
	}
	h.log.InfoContext(ctx, "Self-refine complete", "run_id", id, "records", len(res.Trace))
	return jsonResult(result)
}

// HandleStyleTransfer rewrites one text in one style.
func (h *Handlers) HandleStyleTransfer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.style_transfer")
	defer span.End()

	text := mcp.ParseString(req, "text", "")
	styleKey := mcp.ParseString(req, "style", "business-formal")
	judge := mcp.ParseBoolean(req, "judge", false)
	span.SetAttributes(attribute.String("style", styleKey), attribute.Bool("judge", judge))

	if strings.TrimSpace(text) == "" {
		span.SetStatus(codes.Error, "missing text")
		return mcp.NewToolResultError("text is required"), nil
	}
	if _, err := patterns.StyleByKey(styleKey); err != nil {
		span.SetStatus(codes.Error, "unknown style")
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, id, release, err := h.begin(ctx, span, mcp.ParseString(req, "model", ""))
	if err != nil {
		return fail(span, "start run failed", err)
	}
	defer release()

	style, out, err := patterns.Transform(ctx, client, styleKey, text)
	if err != nil {
		return fail(span, "style transfer failed", err)
	}

	result := map[string]any{
		"run_id":            id,
		"model":             client.Model(),
		"style":             style.Name,
		"output":            out,
		"chars_original":    metrics.CountChars(text),
		"chars_transformed": metrics.CountChars(out),
	}
	if judge {
		p, err := metrics.EvaluatePreservation(ctx, client, text, out)
		if err != nil {
			return fail(span, "preservation judge failed", err)
		}
		result["preservation_scores"] = p
	}
	return jsonResult(result)
}

// HandlePersonaAnswer answers one question as one persona.
func (h *Handlers) HandlePersonaAnswer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.persona_answer")
	defer span.End()

	question := mcp.ParseString(req, "question", "")
	personaKey := mcp.ParseString(req, "persona", "neutral")
	span.SetAttributes(attribute.String("persona", personaKey))

	if strings.TrimSpace(question) == "" {
		span.SetStatus(codes.Error, "missing question")
		return mcp.NewToolResultError("question is required"), nil
	}
	if _, err := patterns.PersonaByKey(personaKey); err != nil {
		span.SetStatus(codes.Error, "unknown persona")
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, id, release, err := h.begin(ctx, span, mcp.ParseString(req, "model", ""))
	if err != nil {
		return fail(span, "start run failed", err)
	}
	defer release()

	persona, out, err := patterns.Answer(ctx, client, personaKey, question)
	if err != nil {
		return fail(span, "persona answer failed", err)
	}

	return jsonResult(map[string]any{
		"run_id":           id,
		"model":            client.Model(),
		"persona":          persona.Name,
		"output":           out,
		"chars":            metrics.CountChars(out),
		"avg_sentence_len": metrics.AvgSentenceLen(out),
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func parseIntParam(req mcp.CallToolRequest, key string, defaultVal int) int {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	raw, ok := args[key]
	if !ok {
		return defaultVal
	}
	switch v := raw.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return defaultVal
	}
}

// parseStringList accepts either a JSON array of strings or a
// comma-separated string.
func parseStringList(req mcp.CallToolRequest, key string) []string {
	var parts []string
	switch v := req.GetArguments()[key].(type) {
	case string:
		parts = strings.Split(v, ",")
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
	case []string:
		parts = v
	}
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
