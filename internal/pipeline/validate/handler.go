// Package validate is the safety gate between synthesis and execution. It
// is the only authority on whether a statement runs: a rejection here is
// final, the pipeline never patches a rejected statement and retries.
package validate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"cctns-copilot/internal/common/logger"
	"cctns-copilot/internal/common/metrics"
	"cctns-copilot/internal/models"
	"cctns-copilot/internal/schema"
)

const StageName = "validate"

// builtinBlocked is the non-negotiable keyword deny list. Config may extend
// it, never shrink it.
var builtinBlocked = []string{
	"DROP", "DELETE", "INSERT", "UPDATE", "ALTER", "CREATE", "TRUNCATE",
	"GRANT", "REVOKE", "MERGE", "CALL", "DECLARE", "EXEC", "EXECUTE", "COPY",
}

var sqlKeywords = map[string]bool{
	"SELECT": true, "AS": true, "FROM": true, "JOIN": true, "INNER": true,
	"LEFT": true, "RIGHT": true, "FULL": true, "OUTER": true, "CROSS": true,
	"ON": true, "WHERE": true, "AND": true, "OR": true, "NOT": true,
	"IN": true, "IS": true, "NULL": true, "BETWEEN": true, "LIKE": true,
	"ILIKE": true, "GROUP": true, "BY": true, "ORDER": true, "HAVING": true,
	"LIMIT": true, "OFFSET": true, "DISTINCT": true, "UNION": true,
	"ALL": true, "EXISTS": true, "CASE": true, "WHEN": true, "THEN": true,
	"ELSE": true, "END": true, "ASC": true, "DESC": true, "CAST": true,
	"INTERVAL": true, "TRUE": true, "FALSE": true,
}

var sqlFunctions = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
	"DATE_TRUNC": true, "TO_CHAR": true, "EXTRACT": true, "COALESCE": true,
	"NULLIF": true, "UPPER": true, "LOWER": true, "LENGTH": true,
	"SUBSTRING": true, "NOW": true, "CURRENT_DATE": true,
	"CURRENT_TIMESTAMP": true, "ABS": true, "ROUND": true,
}

type Handler struct {
	config  *Config
	blocked map[string]bool
	catalog *schema.Catalog
	logger  logger.Logger
}

func NewHandler(config *Config, catalog *schema.Catalog, log logger.Logger) *Handler {
	blocked := make(map[string]bool, len(builtinBlocked)+len(config.BlockedKeywords))
	for _, k := range builtinBlocked {
		blocked[strings.ToUpper(k)] = true
	}
	for _, k := range config.BlockedKeywords {
		blocked[strings.ToUpper(k)] = true
	}
	return &Handler{
		config:  config,
		blocked: blocked,
		catalog: catalog,
		logger:  log.With(map[string]interface{}{"stage": StageName}),
	}
}

// ResolveReferences checks that every table and column in sqlText resolves
// against the catalog, using the same token-stream scan as the full verdict.
// The synthesizer calls this on generative completions so a hallucinated
// reference fails at synthesis time and triggers the rule-based fallback
// instead of surfacing as a validation rejection.
func ResolveReferences(sqlText string, catalog *schema.Catalog) error {
	tokens, err := lex(sqlText)
	if err != nil {
		return err
	}
	h := &Handler{catalog: catalog}
	if v := h.checkSchemaReferences(trimTrailingSemicolon(tokens)); !v.Accepted {
		return fmt.Errorf("%s", v.Detail)
	}
	return nil
}

// Execute judges one candidate statement. A rejection is reported in the
// verdict, not as an error; errors are reserved for the stage itself
// misbehaving.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	verdict := h.judge(input.Query.SQL)
	if !verdict.Accepted {
		metrics.ValidationRejections.WithLabelValues(string(verdict.Reason)).Inc()
		h.logger.Warn("statement rejected", map[string]interface{}{
			"reason": string(verdict.Reason),
			"detail": verdict.Detail,
			"origin": string(input.Query.Origin),
		})
	}
	return &Output{Verdict: verdict}, nil
}

func (h *Handler) judge(sql string) models.Verdict {
	tokens, err := lex(sql)
	if err != nil {
		return reject(models.ReasonInjectionPattern, err.Error())
	}
	if len(tokens) == 0 {
		return reject(models.ReasonNotSelect, "empty statement")
	}

	tokens = trimTrailingSemicolon(tokens)

	// Blocked keywords are reported ahead of the statement-form check so a
	// bare "DROP TABLE ..." is named for what it is.
	if v := h.checkBlockedKeywords(tokens); !v.Accepted {
		return v
	}
	if v := checkSelectOnly(tokens); !v.Accepted {
		return v
	}
	// Schema resolution runs before the structural checks: an unresolved
	// reference is the more precise diagnosis when a statement fails both.
	if v := h.checkSchemaReferences(tokens); !v.Accepted {
		return v
	}
	if len(sql) > h.config.MaxQueryLength {
		return reject(models.ReasonLengthExceeded,
			fmt.Sprintf("statement is %d characters, limit is %d", len(sql), h.config.MaxQueryLength))
	}
	if v := h.checkInjectionPatterns(tokens); !v.Accepted {
		return v
	}

	return models.Verdict{
		Accepted:      true,
		NormalizedSQL: h.normalize(tokens),
	}
}

func reject(reason models.RejectionReason, detail string) models.Verdict {
	return models.Verdict{Reason: reason, Detail: detail}
}

// checkSelectOnly requires the first meaningful token to be SELECT. WITH,
// EXPLAIN, and everything else is refused here.
func checkSelectOnly(tokens []token) models.Verdict {
	for _, t := range tokens {
		if t.typ == tokComment {
			continue
		}
		if t.typ == tokWord && t.value == "SELECT" {
			return models.Verdict{Accepted: true}
		}
		return reject(models.ReasonNotSelect,
			fmt.Sprintf("statement starts with %q, only SELECT is allowed", t.raw))
	}
	return reject(models.ReasonNotSelect, "empty statement")
}

// checkBlockedKeywords scans word tokens plus comment and string-literal
// bodies. Hiding a keyword in a comment or a quoted literal is treated
// exactly like writing it in the open.
func (h *Handler) checkBlockedKeywords(tokens []token) models.Verdict {
	for _, t := range tokens {
		switch t.typ {
		case tokWord:
			if h.blocked[t.value] {
				return reject(models.ReasonBlockedKeyword,
					fmt.Sprintf("keyword %s is not allowed", t.value))
			}
		case tokComment:
			for _, word := range splitWords(t.value) {
				if h.blocked[strings.ToUpper(word)] {
					return reject(models.ReasonBlockedKeyword,
						fmt.Sprintf("keyword %s is not allowed (found in comment)", strings.ToUpper(word)))
				}
			}
		case tokString:
			for _, word := range splitWords(t.value) {
				if h.blocked[strings.ToUpper(word)] {
					return reject(models.ReasonBlockedKeyword,
						fmt.Sprintf("keyword %s is not allowed (found in string literal)", strings.ToUpper(word)))
				}
			}
		}
	}
	return models.Verdict{Accepted: true}
}

func (h *Handler) checkInjectionPatterns(tokens []token) models.Verdict {
	joins := 0
	selects := 0

	for i, t := range tokens {
		switch {
		case t.typ == tokSymbol && t.value == ";":
			// Trailing semicolons were trimmed already, so any remaining one
			// introduces a second statement.
			return reject(models.ReasonInjectionPattern, "multiple statements")

		case t.typ == tokComment:
			if i > 0 && tokens[i-1].end == t.start {
				return reject(models.ReasonInjectionPattern, "comment adjacent to literal")
			}

		case t.typ == tokWord && t.value == "JOIN":
			joins++
			if joins > h.config.MaxJoins {
				return reject(models.ReasonInjectionPattern,
					fmt.Sprintf("more than %d joins", h.config.MaxJoins))
			}

		case t.typ == tokWord && t.value == "SELECT":
			selects++
			if selects > h.config.MaxSubqueries+1 {
				return reject(models.ReasonInjectionPattern,
					fmt.Sprintf("more than %d subqueries", h.config.MaxSubqueries))
			}

		case t.typ == tokSymbol && t.value == "=" && i > 0 && i+1 < len(tokens):
			left, right := tokens[i-1], tokens[i+1]
			if left.typ == right.typ && left.value == right.value &&
				(left.typ == tokString || left.typ == tokNumber) {
				return reject(models.ReasonInjectionPattern,
					fmt.Sprintf("tautological comparison %s = %s", left.raw, right.raw))
			}
		}
	}

	return models.Verdict{Accepted: true}
}

// checkSchemaReferences resolves every table and column against the catalog.
// Pass one collects tables, aliases, and select-list aliases; pass two
// verifies each reference.
func (h *Handler) checkSchemaReferences(tokens []token) models.Verdict {
	tables, aliases, outputAliases, v := h.collectReferences(tokens)
	if !v.Accepted {
		return v
	}

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.typ != tokWord || sqlKeywords[t.value] {
			continue
		}

		// Qualified reference: word '.' word.
		if i+2 < len(tokens) && tokens[i+1].typ == tokSymbol && tokens[i+1].value == "." && tokens[i+2].typ == tokWord {
			qualifier, column := t.value, tokens[i+2].value
			table, ok := aliases[qualifier]
			if !ok {
				return reject(models.ReasonUnknownSchemaRef,
					fmt.Sprintf("unknown table or alias %q", t.raw))
			}
			if !h.catalog.HasColumn(table, column) {
				return reject(models.ReasonUnknownSchemaRef,
					fmt.Sprintf("table %s has no column %q", table, tokens[i+2].raw))
			}
			i += 2
			continue
		}

		// Function call.
		if i+1 < len(tokens) && tokens[i+1].typ == tokSymbol && tokens[i+1].value == "(" {
			if !sqlFunctions[t.value] {
				return reject(models.ReasonUnknownSchemaRef,
					fmt.Sprintf("unknown function %q", t.raw))
			}
			continue
		}

		// Table name, its alias, or a select-list alias.
		if aliases[t.value] != "" || outputAliases[t.value] {
			continue
		}

		// Bare column: must resolve on a referenced table.
		if !h.catalog.ResolveColumn(t.value, tables) {
			return reject(models.ReasonUnknownSchemaRef,
				fmt.Sprintf("unknown column %q", t.raw))
		}
	}

	return models.Verdict{Accepted: true}
}

// collectReferences walks FROM/JOIN clauses and the select list. aliases
// maps both table names and their aliases to the canonical table name.
func (h *Handler) collectReferences(tokens []token) (tables []string, aliases map[string]string, outputAliases map[string]bool, v models.Verdict) {
	aliases = make(map[string]string)
	outputAliases = make(map[string]bool)

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.typ != tokWord {
			continue
		}

		switch t.value {
		case "AS":
			if i+1 < len(tokens) && tokens[i+1].typ == tokWord && !sqlKeywords[tokens[i+1].value] {
				outputAliases[tokens[i+1].value] = true
			}

		case "FROM", "JOIN":
			j := i + 1
			for j < len(tokens) {
				if tokens[j].typ != tokWord || sqlKeywords[tokens[j].value] {
					break
				}
				name := tokens[j].value
				if !h.catalog.HasTable(name) {
					v = reject(models.ReasonUnknownSchemaRef,
						fmt.Sprintf("unknown table %q", tokens[j].raw))
					return
				}
				canonical := h.catalog.Table(name).Name
				tables = append(tables, canonical)
				aliases[name] = canonical
				j++

				// Optional alias, with or without AS.
				if j < len(tokens) && tokens[j].typ == tokWord && tokens[j].value == "AS" {
					j++
				}
				if j < len(tokens) && tokens[j].typ == tokWord && !sqlKeywords[tokens[j].value] {
					aliases[tokens[j].value] = canonical
					j++
				}

				// Comma-separated FROM list.
				if t.value == "FROM" && j < len(tokens) && tokens[j].typ == tokSymbol && tokens[j].value == "," {
					j++
					continue
				}
				break
			}
			i = j - 1
		}
	}

	v = models.Verdict{Accepted: true}
	return
}

// normalize renders the accepted token stream back to canonical text:
// comments dropped, whitespace collapsed, and the LIMIT clause enforced. A
// missing LIMIT gets the default; an oversized one is clamped, not rejected.
func (h *Handler) normalize(tokens []token) string {
	kept := make([]token, 0, len(tokens)+2)
	for _, t := range tokens {
		if t.typ == tokComment {
			continue
		}
		kept = append(kept, t)
	}

	limitIdx := -1
	for i, t := range kept {
		if t.typ == tokWord && t.value == "LIMIT" {
			limitIdx = i
		}
	}

	if limitIdx >= 0 && limitIdx+1 < len(kept) && kept[limitIdx+1].typ == tokNumber {
		if n, err := strconv.Atoi(kept[limitIdx+1].value); err == nil && n > h.config.MaxLimit {
			clamped := strconv.Itoa(h.config.MaxLimit)
			kept[limitIdx+1].raw = clamped
			kept[limitIdx+1].value = clamped
		}
	} else if limitIdx < 0 {
		def := strconv.Itoa(h.config.DefaultLimit)
		kept = append(kept,
			token{typ: tokWord, value: "LIMIT", raw: "LIMIT"},
			token{typ: tokNumber, value: def, raw: def},
		)
	}

	return render(kept)
}

// render joins tokens with single spaces, except around '.' and before
// ',', '(' contents, and closing parens.
func render(tokens []token) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 && needsSpace(tokens[i-1], t) {
			b.WriteByte(' ')
		}
		b.WriteString(t.raw)
	}
	return b.String()
}

func needsSpace(prev, cur token) bool {
	if prev.value == "." || cur.value == "." {
		return false
	}
	if prev.value == "(" {
		return false
	}
	switch cur.value {
	case ",", ")":
		return false
	case "(":
		// A '(' opening a function call hugs the function name.
		return !(prev.typ == tokWord && sqlFunctions[prev.value])
	}
	return true
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
}

// trimTrailingSemicolon removes statement-terminating semicolons while
// keeping trailing comments, so the blocked-keyword and adjacency checks
// still see them.
func trimTrailingSemicolon(tokens []token) []token {
	for {
		last := -1
		for i := len(tokens) - 1; i >= 0; i-- {
			if tokens[i].typ != tokComment {
				last = i
				break
			}
		}
		if last < 0 || tokens[last].typ != tokSymbol || tokens[last].value != ";" {
			return tokens
		}
		tokens = append(tokens[:last], tokens[last+1:]...)
	}
}
