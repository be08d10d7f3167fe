package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mapRootJSON = `{
  "id": "m1",
  "topics": [{
    "id": "t1",
    "title": "Topic one",
    "layer_ids": ["layer1", "layer2"],
    "crowd_enabled": true,
    "questions": [{
      "id": "q1",
      "title": "Is there food?",
      "type": "CHOICE",
      "choices": [
        {"id": "y", "color": "#0f0", "label": "Yes"},
        {"id": "n", "color": "#f00", "label": "No"}
      ]
    }, {
      "id": "q2",
      "title": "How many beds",
      "type": "NUMBER"
    }]
  }],
  "layers": [{
    "id": "layer1",
    "type": "KML",
    "attribution": "source A",
    "source": {"kml": {"url": "http://example.com/a.kml"}}
  }, {
    "id": "layer2",
    "type": "GOOGLE_SPREADSHEET",
    "source": {"google_spreadsheet": {
      "url": "https://docs.google.com/spreadsheet/ccc?key=xyz",
      "latitude_field": "lat",
      "longitude_field": "lng",
      "condition0": "a<3",
      "condition1": "b>4"
    }}
  }, {
    "id": "layer3",
    "type": "GOOGLE_PLACES",
    "source": {"google_places": {"types": "pharmacy"}}
  }]
}`

func TestMapRootDecode(t *testing.T) {
	var m MapRoot
	require.NoError(t, json.Unmarshal([]byte(mapRootJSON), &m))
	assert.Equal(t, "m1", m.ID)

	topic := m.TopicByID("t1")
	require.NotNil(t, topic)
	assert.True(t, topic.CrowdEnabled)
	require.Len(t, topic.Questions, 2)
	assert.Equal(t, QuestionTypeChoice, topic.Questions[0].Type)
	assert.Equal(t, "Yes", topic.Questions[0].Choices[0].Label)
	assert.Equal(t, QuestionTypeNumber, topic.Questions[1].Type)

	assert.Nil(t, m.TopicByID("missing"))
	assert.Nil(t, m.LayerByID("missing"))
}

func TestLayerDecodeKML(t *testing.T) {
	var m MapRoot
	require.NoError(t, json.Unmarshal([]byte(mapRootJSON), &m))
	l := m.LayerByID("layer1")
	require.NotNil(t, l)
	assert.Equal(t, "source A", l.Attribution)
	assert.Equal(t, KMLSource{URL: "http://example.com/a.kml"}, l.Source)
}

func TestLayerDecodeSpreadsheetConditions(t *testing.T) {
	var m MapRoot
	require.NoError(t, json.Unmarshal([]byte(mapRootJSON), &m))
	l := m.LayerByID("layer2")
	require.NotNil(t, l)
	src, ok := l.Source.(SpreadsheetSource)
	require.True(t, ok)
	assert.Equal(t, "lat", src.LatitudeField)
	// conditionN 按下标顺序收集
	assert.Equal(t, []string{"a<3", "b>4"}, src.Conditions)
}

func TestLayerDecodePlaces(t *testing.T) {
	var m MapRoot
	require.NoError(t, json.Unmarshal([]byte(mapRootJSON), &m))
	l := m.LayerByID("layer3")
	require.NotNil(t, l)
	assert.Equal(t, PlacesSource{Types: "pharmacy"}, l.Source)
}

func TestLayerDecodeMapsEngineAcceptsBothKeys(t *testing.T) {
	for _, key := range []string{"kml", "google_maps_engine_lite_or_pro"} {
		var l Layer
		raw := `{"id":"x","type":"GOOGLE_MAPS_ENGINE_LITE_OR_PRO","source":{"` +
			key + `":{"url":"http://example.com/viewer?mid=abc"}}}`
		require.NoError(t, json.Unmarshal([]byte(raw), &l))
		assert.Equal(t, MapsEngineSource{URL: "http://example.com/viewer?mid=abc"}, l.Source)
	}
}

func TestLayerDecodeUnknownType(t *testing.T) {
	var l Layer
	err := json.Unmarshal([]byte(`{"id":"x","type":"WMS","source":{}}`), &l)
	assert.ErrorIs(t, err, errUnknownLayerType)
}

func TestLayerDecodeMissingSourceBody(t *testing.T) {
	// 缺来源体不报错，得到零值变体
	var l Layer
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","type":"KML","source":{}}`), &l))
	assert.Equal(t, KMLSource{}, l.Source)
}
