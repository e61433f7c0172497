// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pgage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taibuivan/graphcypher/pkg/graphdb"
	"github.com/taibuivan/graphcypher/pkg/graphdb/cypher"
)

// buildAgeQuery rewrites a GQL statement and its parameter map into the SQL
// AGE needs, and the tagged parameter value to bind alongside it (nil when
// the statement takes no parameters).
//
// Parameters are never interpolated into the returned SQL — they are
// represented solely by the returned [Value], bound through the driver's
// extended query protocol.
func buildAgeQuery(graphName, statement string, params graphdb.Params) (sql string, param *Value, err error) {
	columns, parseErr := cypher.ExtractReturnColumns(statement)
	if parseErr != nil {
		return "", nil, graphdb.ProjectionFailure(parseErr.Error(), parseErr)
	}

	columnDefs := make([]string, len(columns))
	for i, name := range columns {
		columnDefs[i] = quoteColumnDef(name)
	}
	columnsSQL := strings.Join(columnDefs, ", ")

	if len(params) == 0 {
		sql = fmt.Sprintf("SELECT * FROM cypher('%s', $$ %s $$) AS (%s)", graphName, statement, columnsSQL)
		return sql, nil, nil
	}

	encoded, jsonErr := json.Marshal(params)
	if jsonErr != nil {
		return "", nil, graphdb.EncodingFailure(jsonErr)
	}
	sql = fmt.Sprintf("SELECT * FROM cypher('%s', $$ %s $$, $1) AS (%s)", graphName, statement, columnsSQL)
	value := Value(encoded)
	return sql, &value, nil
}

// quoteColumnDef renders one "<name> agtype" column definition. Names made
// up only of letters, digits and underscores, and not starting with a digit,
// are emitted bare; everything else is double-quoted with internal `"`
// doubled (property-access expressions like n.name fall into this branch,
// since a bare dot is not a legal unquoted identifier character).
func quoteColumnDef(name string) string {
	if isBareIdentifier(name) {
		return name + " agtype"
	}
	escaped := strings.ReplaceAll(name, `"`, `""`)
	return fmt.Sprintf(`"%s" agtype`, escaped)
}

func isBareIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		alnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
		if !alnum {
			return false
		}
	}
	return name[0] < '0' || name[0] > '9'
}
