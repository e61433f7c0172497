// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pgage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// agtypeVersion is the only wire format version this codec knows how to
// produce or consume.
const agtypeVersion = 0x01

// agtypeTypeSuffixes are appended by AGE to the JSON text of a typed graph
// entity (a vertex, edge, or path) and must be stripped before the text is
// valid JSON.
var agtypeTypeSuffixes = []string{"::vertex", "::edge", "::path"}

// Value is the Go-side representation of an agtype wire value: JSON text
// with any trailing AGE type tag already removed. It round-trips through
// [Codec] in both directions.
type Value string

// registerAgtype looks up agtype's OID on this connection (installation-
// dependent, so it cannot be hardcoded) and registers [Codec] for it by
// name, the way the spec requires: the OID is resolved once per physical
// connection, never assumed.
func registerAgtype(m *pgtype.Map, oid uint32) {
	m.RegisterType(&pgtype.Type{Name: "agtype", OID: oid, Codec: Codec{}})
}

// Codec implements pgtype.Codec for the agtype wire format: one version byte
// (0x01) followed by JSON text, optionally suffixed with a graph-entity type
// tag on the way out of the database.
type Codec struct{}

func (Codec) FormatSupported(format int16) bool {
	return format == pgtype.BinaryFormatCode
}

func (Codec) PreferredFormat() int16 {
	return pgtype.BinaryFormatCode
}

func (Codec) PlanEncode(m *pgtype.Map, oid uint32, format int16, value any) pgtype.EncodePlan {
	if format != pgtype.BinaryFormatCode {
		return nil
	}
	switch value.(type) {
	case Value, string:
		return agtypeEncodePlan{}
	default:
		return nil
	}
}

func (Codec) PlanDecode(m *pgtype.Map, oid uint32, format int16, target any) pgtype.DecodePlan {
	if format != pgtype.BinaryFormatCode {
		return nil
	}
	switch target.(type) {
	case *Value, *any:
		return agtypeDecodePlan{}
	default:
		return nil
	}
}

func (c Codec) DecodeDatabaseSQLValue(m *pgtype.Map, oid uint32, format int16, src []byte) (driver.Value, error) {
	v, err := c.DecodeValue(m, oid, format, src)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeValue strips the version byte and any trailing AGE type tag, then
// parses the remaining text as JSON, yielding the universal dynamically
// typed form the rest of the package works with.
func (Codec) DecodeValue(m *pgtype.Map, oid uint32, format int16, src []byte) (any, error) {
	if src == nil {
		return nil, nil
	}
	text := stripAgtypeEnvelope(src)
	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, fmt.Errorf("pgage: failed to decode agtype value: %w", err)
	}
	return decoded, nil
}

func stripAgtypeEnvelope(src []byte) string {
	if len(src) > 0 && src[0] == agtypeVersion {
		src = src[1:]
	}
	text := string(src)
	for _, suffix := range agtypeTypeSuffixes {
		text = strings.TrimSuffix(text, suffix)
	}
	return text
}

type agtypeEncodePlan struct{}

func (agtypeEncodePlan) Encode(value any, buf []byte) ([]byte, error) {
	var json string
	switch v := value.(type) {
	case Value:
		json = string(v)
	case string:
		json = v
	default:
		return nil, fmt.Errorf("pgage: cannot encode %T as agtype", value)
	}
	buf = append(buf, agtypeVersion)
	buf = append(buf, json...)
	return buf, nil
}

type agtypeDecodePlan struct{}

func (agtypeDecodePlan) Decode(src []byte) (any, error) {
	if src == nil {
		return nil, nil
	}
	var decoded any
	if err := jsonUnmarshal(stripAgtypeEnvelope(src), &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

func jsonUnmarshal(text string, target any) error {
	return json.Unmarshal([]byte(text), target)
}
