// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cypher

import "strings"

// clauseBoundaryWords terminate a RETURN projection body when encountered at
// the body's own nesting depth.
var clauseBoundaryWords = []string{"ORDER", "SKIP", "LIMIT", "UNION"}

// ExtractReturnColumns determines the result column names a GQL statement
// would produce, without executing it.
//
// Only the LAST top-level RETURN clause in the statement is considered — a
// statement chaining WITH ... RETURN, or a UNION of multiple RETURNs, is
// projected by whichever RETURN appears last in source order, matching how
// the backend itself determines the shape of its final result set. For each
// projected item, an explicit "AS alias" wins over the expression; an
// unaliased item's column name is the literal source text of the expression,
// trimmed of surrounding whitespace.
func ExtractReturnColumns(statement string) ([]string, error) {
	tokens, err := tokenize(statement)
	if err != nil {
		return nil, invalidSyntax(err.Error())
	}

	returnIdx := -1
	for i, t := range tokens {
		if t.depth == 0 && t.isWord("RETURN") {
			returnIdx = i
		}
	}
	if returnIdx == -1 {
		return nil, noReturnClause()
	}

	bodyStart := returnIdx + 1
	bodyEnd := len(tokens)
	for i := bodyStart; i < len(tokens); i++ {
		t := tokens[i]
		if t.depth != 0 || t.kind != kindWord {
			continue
		}
		if isClauseBoundary(t.text) {
			bodyEnd = i
			break
		}
	}
	body := tokens[bodyStart:bodyEnd]

	if len(body) > 0 && body[0].isWord("DISTINCT") {
		body = body[1:]
	}
	if len(body) == 0 {
		return nil, noReturnClause()
	}
	if body[0].kind == kindOther && body[0].text == "*" {
		return nil, returnStarNotSupported()
	}

	items := splitItems(body)
	columns := make([]string, 0, len(items))
	for _, item := range items {
		columns = append(columns, projectionColumnName(statement, item))
	}
	return columns, nil
}

func isClauseBoundary(word string) bool {
	for _, w := range clauseBoundaryWords {
		if equalFold(word, w) {
			return true
		}
	}
	return false
}

// splitItems splits body on commas occurring at body's own base nesting
// depth, leaving commas nested inside (), [] or {} untouched.
func splitItems(body []token) [][]token {
	if len(body) == 0 {
		return nil
	}
	base := body[0].depth
	var items [][]token
	start := 0
	for i, t := range body {
		if t.kind == kindComma && t.depth == base {
			items = append(items, body[start:i])
			start = i + 1
		}
	}
	items = append(items, body[start:])
	return items
}

// projectionColumnName computes the result column name for a single
// projection item: everything after a top-level AS if present, else the
// literal source text of the whole item.
func projectionColumnName(statement string, item []token) string {
	if len(item) == 0 {
		return ""
	}
	base := item[0].depth
	for i, t := range item {
		if t.depth == base && t.isWord("AS") {
			alias := item[i+1:]
			if len(alias) == 1 {
				switch alias[0].kind {
				case kindBacktick:
					return alias[0].text
				case kindWord:
					return alias[0].text
				}
			}
			// Malformed alias (not a single identifier) — fall back to its
			// literal source text rather than guessing.
			return strings.TrimSpace(sliceSource(statement, alias))
		}
	}
	return strings.TrimSpace(sliceSource(statement, item))
}

func sliceSource(statement string, tokens []token) string {
	if len(tokens) == 0 {
		return ""
	}
	return statement[tokens[0].start:tokens[len(tokens)-1].end]
}
