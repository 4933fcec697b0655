package canvas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementJSON_ExtrasStayFlat(t *testing.T) {
	el := mustNormalize(t, map[string]interface{}{
		"id": "a", "type": "rectangle",
		"customTag": "urgent",
		"link":      "https://example.com",
	})

	data, err := json.Marshal(el)
	require.NoError(t, err)

	var flat map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &flat))

	assert.Equal(t, "urgent", flat["customTag"], "unknown fields serialize as siblings")
	assert.Equal(t, "https://example.com", flat["link"])
	_, nested := flat["extra"]
	assert.False(t, nested, "no wrapper key leaks into the wire form")
	assert.Equal(t, "rectangle", flat["type"])
}

func TestElementJSON_RoundTrip(t *testing.T) {
	el := mustNormalize(t, map[string]interface{}{
		"id": "a", "type": "arrow",
		"x": float64(5), "y": float64(10),
		"points":    []interface{}{[]interface{}{float64(0), float64(0)}, []interface{}{float64(50), float64(25)}},
		"customTag": "keep-me",
	})
	el.StartBinding = &Binding{ElementID: "b", Focus: 0, Gap: 8}

	data, err := json.Marshal(el)
	require.NoError(t, err)

	var back Element
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, el.ID, back.ID)
	assert.Equal(t, el.Type, back.Type)
	assert.Equal(t, el.X, back.X)
	assert.Equal(t, el.Points, back.Points)
	require.NotNil(t, back.StartBinding)
	assert.Equal(t, "b", back.StartBinding.ElementID)
	assert.Equal(t, float64(8), back.StartBinding.Gap)
	assert.Equal(t, "keep-me", back.Extra["customTag"])
	assert.Equal(t, el.Version, back.Version)
}

func TestElementJSON_TextCarriedOnlyWhenPresent(t *testing.T) {
	rect := mustNormalize(t, map[string]interface{}{"id": "r", "type": "rectangle"})
	data, err := json.Marshal(rect)
	require.NoError(t, err)
	var flat map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &flat))
	_, hasText := flat["text"]
	assert.False(t, hasText, "bare rectangle carries no text key")

	label := mustNormalize(t, map[string]interface{}{"id": "t", "type": "text", "text": "hi", "fontSize": float64(20)})
	data, err = json.Marshal(label)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, "hi", flat["text"])
	assert.Equal(t, float64(20), flat["fontSize"])
}

func TestElementJSON_GroupIDsAndBoundElements(t *testing.T) {
	el := mustNormalize(t, map[string]interface{}{"id": "a", "type": "rectangle"})
	data, err := json.Marshal(el)
	require.NoError(t, err)

	var flat map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, []interface{}{}, flat["groupIds"])
	assert.Nil(t, flat["boundElements"])
	assert.Equal(t, false, flat["isDeleted"])
}

func TestFieldString_CarriedRules(t *testing.T) {
	el := mustNormalize(t, map[string]interface{}{
		"id": "a", "type": "rectangle",
		"strokeColor": "#ff0000",
		"width":       float64(200),
		"customTag":   "urgent",
	})

	tests := []struct {
		key     string
		want    string
		carried bool
	}{
		{"strokeColor", "#ff0000", true},
		{"width", "200", true},
		{"roughness", "1", true},
		{"opacity", "100", true},
		{"customTag", "urgent", true},
		{"text", "", false},
		{"fontSize", "", false},
		{"noSuchKey", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := el.FieldString(tt.key)
			assert.Equal(t, tt.carried, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClone_Independence(t *testing.T) {
	el := mustNormalize(t, map[string]interface{}{
		"id": "a", "type": "arrow",
		"points":   []interface{}{[]interface{}{float64(0), float64(0)}, []interface{}{float64(10), float64(0)}},
		"groupIds": []interface{}{"g1"},
		"meta":     "original",
	})
	el.StartBinding = &Binding{ElementID: "b", Gap: 8}

	clone := el.Clone()
	clone.Points[1][0] = 999
	clone.GroupIDs[0] = "mutated"
	clone.StartBinding.ElementID = "mutated"
	clone.Extra["meta"] = "mutated"

	assert.Equal(t, float64(10), el.Points[1][0])
	assert.Equal(t, "g1", el.GroupIDs[0])
	assert.Equal(t, "b", el.StartBinding.ElementID)
	assert.Equal(t, "original", el.Extra["meta"])
}

func TestFromMap_UnknownTypesTolerated(t *testing.T) {
	// Ill-typed known keys fall through to Extra rather than corrupting
	// the typed fields.
	el, _ := FromMap(map[string]interface{}{
		"id":       "a",
		"type":     "rectangle",
		"width":    "not-a-number",
		"groupIds": "not-a-slice",
	})
	assert.Equal(t, float64(0), el.Width)
	assert.Equal(t, "not-a-number", el.Extra["width"])
	assert.Equal(t, "not-a-slice", el.Extra["groupIds"])
}
