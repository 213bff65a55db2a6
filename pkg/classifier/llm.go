package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ai-networking-be/internal/pkg/logger"
	"ai-networking-be/pkg/llm"
)

// LLMClassifier asks a language model for the label and falls back to the
// rule classifier when the model fails, times out or answers with garbage.
type LLMClassifier struct {
	provider llm.LLMProvider
	fallback Classifier
	timeout  time.Duration
	logger   logger.ILogger
}

var _ Classifier = (*LLMClassifier)(nil)

func NewLLMClassifier(provider llm.LLMProvider, timeout time.Duration, log logger.ILogger) *LLMClassifier {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &LLMClassifier{
		provider: provider,
		fallback: NewRuleClassifier(),
		timeout:  timeout,
		logger:   log,
	}
}

func (c *LLMClassifier) Classify(ctx context.Context, req Request) (*Output, error) {
	if c.provider == nil {
		return c.fallback.Classify(ctx, req)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response, err := c.provider.Chat(callCtx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildPrompt(req)},
	}, llm.WithTemperature(0), llm.WithJSONMode())
	if err != nil {
		c.logger.Warn(logger.ModuleClassifier, "Model call failed, using rules", map[string]interface{}{
			"error": err.Error(),
		})
		return c.fallback.Classify(ctx, req)
	}

	out, err := parseOutput(response)
	if err != nil {
		c.logger.Warn(logger.ModuleClassifier, "Unparseable model output, using rules", map[string]interface{}{
			"error":    err.Error(),
			"response": truncate(response, 200),
		})
		return c.fallback.Classify(ctx, req)
	}

	c.logger.Debug(logger.ModuleClassifier, "Classified", map[string]interface{}{
		"label":  out.Label,
		"target": out.TargetSubject,
		"fields": len(out.Fields),
	})
	return out, nil
}

const systemPrompt = `You classify messages sent to a contact-taking assistant.
The user describes people they met. You only classify; you never answer.
Respond with ONLY valid JSON.`

func buildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("<session_state>\n")
	fmt.Fprintf(&b, "STATE: %s\n", req.State)
	if req.Subject != "" {
		fmt.Fprintf(&b, "CURRENT_CONTACT: %q\n", req.Subject)
	} else {
		b.WriteString("CURRENT_CONTACT: none\n")
	}
	if len(req.RecentSubjects) > 0 {
		fmt.Fprintf(&b, "RECENT_CONTACTS: %s\n", strings.Join(req.RecentSubjects, ", "))
	}
	b.WriteString("</session_state>\n\n")

	b.WriteString("<message>\n")
	b.WriteString(req.Text)
	b.WriteString("\n</message>\n\n")

	b.WriteString("<labels>\n")
	b.WriteString("start: the user introduces a person to save (\"Add John Smith\", \"I met Sarah from Acme\")\n")
	b.WriteString("update: the user adds details about the current contact (\"he's the CTO\", \"john@acme.io\")\n")
	b.WriteString("finish: the user is done with the current contact (\"done\", \"save it\")\n")
	b.WriteString("cancel: the user wants to throw the current contact away (\"cancel\", \"never mind\")\n")
	b.WriteString("unknown: anything else\n")
	b.WriteString("</labels>\n\n")

	b.WriteString("<output_format>\n")
	b.WriteString("{\n")
	b.WriteString("  \"label\": \"start|update|finish|cancel|unknown\",\n")
	b.WriteString("  \"target_subject\": \"full name of the person the message is about, or empty\",\n")
	b.WriteString("  \"fields\": {\"name\": \"\", \"title\": \"\", \"company\": \"\", \"email\": \"\", \"phone\": \"\", \"linkedin_url\": \"\", \"website\": \"\", \"location\": \"\", \"notes\": \"\"}\n")
	b.WriteString("}\n")
	b.WriteString("Omit fields that are not mentioned. Never invent values.\n")
	b.WriteString("</output_format>")

	return b.String()
}

type rawOutput struct {
	Label         string                 `json:"label"`
	Intent        string                 `json:"intent"`
	TargetSubject string                 `json:"target_subject"`
	Fields        map[string]interface{} `json:"fields"`
}

func parseOutput(response string) (*Output, error) {
	content := extractJSON(response)
	if content == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var raw rawOutput
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	label := raw.Label
	if label == "" {
		label = raw.Intent
	}
	if strings.TrimSpace(label) == "" {
		return nil, fmt.Errorf("missing label")
	}

	out := &Output{
		Label:         ParseLabel(label),
		TargetSubject: strings.TrimSpace(raw.TargetSubject),
		Source:        "llm",
	}
	for k, v := range raw.Fields {
		s := stringify(v)
		if s == "" {
			continue
		}
		if out.Fields == nil {
			out.Fields = make(map[string]string)
		}
		out.Fields[k] = s
	}
	return out, nil
}

// extractJSON strips code fences and surrounding prose from a model answer.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```json")
		response = strings.TrimPrefix(response, "```")
		response = strings.TrimSuffix(strings.TrimSpace(response), "```")
	}

	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}
	return response[startIdx : endIdx+1]
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(t)
		if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") || strings.EqualFold(s, "n/a") {
			return ""
		}
		return s
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", t), "0"), ".")
	case bool:
		return ""
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if p := stringify(item); p != "" {
				parts = append(parts, p)
			}
		}
		return strings.Join(parts, "; ")
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
