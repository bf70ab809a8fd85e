package generation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func toMap(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func removeField(t *testing.T, raw, field string) string {
	t.Helper()
	doc := toMap(t, raw)
	delete(doc, field)
	return mustJSON(t, doc)
}

func removeSlot(t *testing.T, raw, slot string) string {
	return removeField(t, raw, slot)
}
