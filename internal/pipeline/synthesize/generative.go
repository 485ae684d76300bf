package synthesize

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"cctns-copilot/internal/models"
	"cctns-copilot/internal/pipeline/validate"
	"cctns-copilot/internal/schema"
)

// ChatCompleter is the slice of the OpenAI client the generative strategy
// needs. *openai.Client satisfies it; tests substitute a mock.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

const systemPrompt = `You translate police records questions into a single PostgreSQL SELECT statement.
Rules:
- Output only the SQL statement, no prose, no markdown fences.
- Use only the tables and columns listed in the schema.
- Always produce a read-only SELECT. Never write, alter, or drop anything.
- Bind entity values with the numbered placeholders given in the entity list ($1, $2, ...); never inline them as quoted literals.
- Dates in the database are DATE columns; compare with ISO yyyy-mm-dd literals.`

type generativeStrategy struct {
	config  *Config
	client  ChatCompleter
	catalog *schema.Catalog
}

func newGenerativeStrategy(config *Config, client ChatCompleter, catalog *schema.Catalog) *generativeStrategy {
	return &generativeStrategy{config: config, client: client, catalog: catalog}
}

func (s *generativeStrategy) Synthesize(ctx context.Context, input *Input) (*models.CandidateQuery, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: s.buildPrompt(input)},
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, ErrGenerationTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrSynthesisFailed)
	}

	sql := cleanCompletion(resp.Choices[0].Message.Content)
	if sql == "" {
		return nil, fmt.Errorf("%w: blank completion", ErrSynthesisFailed)
	}
	if !strings.HasPrefix(strings.ToUpper(sql), "SELECT") {
		return nil, fmt.Errorf("%w: completion is not a SELECT", ErrSynthesisFailed)
	}

	// A hallucinated table or column is a synthesis failure, decided here
	// where the rule-based fallback can still answer. The validator re-checks
	// the same references later as a backstop.
	if err := validate.ResolveReferences(sql, s.catalog); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	params, err := bindEntityParams(sql, input.Entities)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	return &models.CandidateQuery{
		SQL:    sql,
		Tables: referencedTables(sql, s.catalog),
		Params: params,
		Origin: models.OriginGenerated,
	}, nil
}

var placeholderRe = regexp.MustCompile(`\$([0-9]+)`)

// bindEntityParams maps the completion's $N placeholders back to the entity
// values numbered in the prompt. Dates are excluded: the model resolves
// phrases like "last month" into literal date bounds instead. Placeholders
// must form a contiguous run from $1 within the bindable entity count;
// anything else means the model ignored the binding contract.
func bindEntityParams(sqlText string, entities []models.Entity) ([]interface{}, error) {
	var values []interface{}
	for _, e := range entities {
		if e.Kind != models.EntityDate {
			values = append(values, e.Value)
		}
	}

	max := 0
	seen := make(map[int]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(sqlText, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n == 0 {
			return nil, fmt.Errorf("malformed placeholder %s", m[0])
		}
		seen[n] = true
		if n > max {
			max = n
		}
	}
	if max == 0 {
		return nil, nil
	}
	if max > len(values) {
		return nil, fmt.Errorf("placeholder $%d exceeds the %d bindable entities", max, len(values))
	}
	for i := 1; i <= max; i++ {
		if !seen[i] {
			return nil, fmt.Errorf("placeholder numbering skips $%d", i)
		}
	}
	return values[:max], nil
}

func (s *generativeStrategy) buildPrompt(input *Input) string {
	var b strings.Builder
	b.WriteString("Schema:\n")
	b.WriteString(s.catalog.DDLSummary())
	fmt.Fprintf(&b, "\nIntent: %s\n", input.Intent.Type)
	if len(input.Entities) > 0 {
		b.WriteString("Entities:\n")
		n := 0
		for _, e := range input.Entities {
			if e.Kind == models.EntityDate {
				fmt.Fprintf(&b, "- %s: %s (resolve to ISO date literals)\n", e.Kind, e.Value)
				continue
			}
			n++
			fmt.Fprintf(&b, "- $%d %s: %s\n", n, e.Kind, e.Value)
		}
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", input.Utterance.Canonical)
	return b.String()
}

// cleanCompletion strips markdown fences and trailing semicolons the model
// sometimes adds despite the prompt.
func cleanCompletion(raw string) string {
	sql := strings.TrimSpace(raw)
	if strings.HasPrefix(sql, "```") {
		sql = strings.TrimPrefix(sql, "```sql")
		sql = strings.TrimPrefix(sql, "```")
		if i := strings.Index(sql, "```"); i >= 0 {
			sql = sql[:i]
		}
	}
	sql = strings.TrimSpace(sql)
	sql = strings.TrimSuffix(sql, ";")
	return strings.TrimSpace(sql)
}

// referencedTables scans the statement for known catalog table names. The
// validator re-derives this from the token stream; here it only feeds query
// metadata.
func referencedTables(sql string, catalog *schema.Catalog) []string {
	upper := strings.ToUpper(sql)
	var out []string
	for _, t := range catalog.Tables() {
		if containsWord(upper, strings.ToUpper(t.Name)) {
			out = append(out, t.Name)
		}
	}
	return out
}

func containsWord(text, word string) bool {
	for i := 0; ; {
		j := strings.Index(text[i:], word)
		if j < 0 {
			return false
		}
		j += i
		beforeOK := j == 0 || !isWordByte(text[j-1])
		after := j + len(word)
		afterOK := after == len(text) || !isWordByte(text[after])
		if beforeOK && afterOK {
			return true
		}
		i = j + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
