// Package hydrate turns a translator.Plan's raw SQL rows into the
// row-of-maps shape callers expect from ExecuteCypher: label arrays
// and property maps decoded from the JSON the database's
// json_agg/jsonb_object_agg functions produced, node ids passed
// through, and scalars type-asserted as-is.
package hydrate

import (
	"encoding/json"

	"github.com/ivgraph/ivgraph/pkg/ivgerr"
	"github.com/ivgraph/ivgraph/pkg/sqlhost"
	"github.com/ivgraph/ivgraph/pkg/translator"
)

// Rows scans every row from src according to plan.Columns, decoding
// JSON-aggregated columns along the way, and returns one map per row
// keyed by column name.
func Rows(src sqlhost.Rows, plan *translator.Plan) ([]map[string]any, error) {
	var out []map[string]any
	for src.Next() {
		raw := make([]any, len(plan.Columns))
		ptrs := make([]any, len(plan.Columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := src.Scan(ptrs...); err != nil {
			return nil, ivgerr.Wrap(ivgerr.Internal, err, "scanning result row")
		}

		row := make(map[string]any, len(plan.Columns))
		for i, col := range plan.Columns {
			val, err := decodeColumn(col, raw[i])
			if err != nil {
				return nil, err
			}
			row[col.Name] = val
		}
		out = append(out, row)
	}
	if err := src.Err(); err != nil {
		return nil, ivgerr.Wrap(ivgerr.Internal, err, "iterating result rows")
	}
	return out, nil
}

func decodeColumn(col translator.ColumnPlan, raw any) (any, error) {
	switch col.Kind {
	case translator.ColLabelsJSON:
		return decodeJSONArray(raw, col.Name)
	case translator.ColPropertiesJSON:
		return decodeJSONObject(raw, col.Name)
	case translator.ColNodeID, translator.ColScalar, translator.ColRaw:
		return raw, nil
	default:
		return raw, nil
	}
}

// decodeJSONArray never returns a nil slice: json_agg returns SQL NULL
// over zero source rows, but zero labels is []string{}, never null.
func decodeJSONArray(raw any, column string) ([]string, error) {
	labels := []string{}
	text, ok := asText(raw)
	if !ok || text == "" {
		return labels, nil
	}
	if err := json.Unmarshal([]byte(text), &labels); err != nil {
		return nil, ivgerr.Wrapf(ivgerr.Internal, err, "decoding labels JSON for column %s", column)
	}
	return labels, nil
}

// decodeJSONObject never returns a nil map: jsonb_object_agg returns
// SQL NULL over zero source rows, but zero properties is
// map[string]any{}, never null.
func decodeJSONObject(raw any, column string) (map[string]any, error) {
	props := map[string]any{}
	text, ok := asText(raw)
	if !ok || text == "" {
		return props, nil
	}
	if err := json.Unmarshal([]byte(text), &props); err != nil {
		return nil, ivgerr.Wrapf(ivgerr.Internal, err, "decoding properties JSON for column %s", column)
	}
	return props, nil
}

func asText(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case nil:
		return "", false
	default:
		return "", false
	}
}
