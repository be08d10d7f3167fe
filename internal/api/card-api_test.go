package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"card-api/internal/card"
	"card-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml><Document>
  <Placemark>
    <name>Near</name>
    <description>close by</description>
    <Point><coordinates>25.001,60.001</coordinates></Point>
  </Placemark>
  <Placemark>
    <name>Far</name>
    <description>far away</description>
    <Point><coordinates>25.5,60.5</coordinates></Point>
  </Placemark>
</Document></kml>`

type stubFetcher struct {
	bodies map[string][]byte
}

func (s *stubFetcher) Fetch(ctx context.Context, url, host string) ([]byte, error) {
	return s.bodies[url], nil
}

func testDeps() Deps {
	return Deps{
		Pipeline: &card.Pipeline{Fetcher: &stubFetcher{bodies: map[string][]byte{
			"http://example.com/a.kml": []byte(testKML),
		}}},
		MapRoot: &model.MapRoot{
			ID: "m1",
			Topics: []model.Topic{{
				ID:       "t1",
				Title:    "Shelters",
				LayerIDs: []string{"layer1"},
			}},
			Layers: []model.Layer{{
				ID:     "layer1",
				Type:   model.LayerTypeKML,
				Source: model.KMLSource{URL: "http://example.com/a.kml"},
			}},
		},
		MapLabel: "mylabel",
		RootURL:  "http://app.com/root",
	}
}

func doCard(t *testing.T, d Deps, target string, header map[string]string) (*httptest.ResponseRecorder, *card.FeatureCollection) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	BuildRoutes(d).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		return rec, nil
	}
	var fc card.FeatureCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	return rec, &fc
}

func TestHandleCard(t *testing.T) {
	rec, fc := doCard(t, testDeps(), "/card?topic=t1&ll=60,25", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("content-type"))

	require.Len(t, fc.Features, 2)
	// 按距中心由近及远
	assert.Equal(t, "Near", fc.Features[0].Properties.Name)
	assert.Equal(t, "Far", fc.Features[1].Properties.Name)
	// 未请求描述时 description_html 为 null
	assert.Nil(t, fc.Features[0].Properties.DescriptionHTML)

	require.NotNil(t, fc.Properties)
	assert.Equal(t, "km", fc.Properties.Unit)
	require.NotNil(t, fc.Properties.Topic)
	assert.Equal(t, "Shelters", fc.Properties.Topic.Title)
	// 非标签寻址不带回链
	assert.Nil(t, fc.Properties.MapURL)
}

func TestHandleCardShowDesc(t *testing.T) {
	_, fc := doCard(t, testDeps(), "/card?topic=t1&ll=60,25&show_desc=1", nil)
	require.NotNil(t, fc)
	require.NotNil(t, fc.Features[0].Properties.DescriptionHTML)
	assert.Equal(t, "close by", *fc.Features[0].Properties.DescriptionHTML)
}

func TestHandleCardRadiusAndCount(t *testing.T) {
	// 半径 10km 只留近点
	_, fc := doCard(t, testDeps(), "/card?topic=t1&ll=60,25&r=10000", nil)
	require.NotNil(t, fc)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Near", fc.Features[0].Properties.Name)

	// n=1 截断
	_, fc = doCard(t, testDeps(), "/card?topic=t1&ll=60,25&n=1", nil)
	require.NotNil(t, fc)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Near", fc.Features[0].Properties.Name)
}

func TestHandleCardLabelAddressing(t *testing.T) {
	_, fc := doCard(t, testDeps(), "/card?label=mylabel&topic=t1&ll=60,25", nil)
	require.NotNil(t, fc)
	require.NotNil(t, fc.Properties.MapURL)
	u := *fc.Properties.MapURL
	assert.Contains(t, u, "http://app.com/root/mylabel?layers=layer1")
	assert.Contains(t, u, "llbox=")
}

func TestHandleCardWrongLabelOrMap(t *testing.T) {
	rec, _ := doCard(t, testDeps(), "/card?label=other&topic=t1&ll=60,25", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doCard(t, testDeps(), "/card?map=m2&topic=t1&ll=60,25", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doCard(t, testDeps(), "/card?map=m1&topic=t1&ll=60,25", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleCardMissingLatLng(t *testing.T) {
	rec, _ := doCard(t, testDeps(), "/card?topic=t1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doCard(t, testDeps(), "/card?topic=t1&ll=60", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doCard(t, testDeps(), "/card?topic=t1&ll=abc,def", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCardUnknownTopic(t *testing.T) {
	rec, fc := doCard(t, testDeps(), "/card?topic=missing&ll=60,25", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, fc.Features)
	assert.Nil(t, fc.Properties.Topic)
}

func TestHandleCardUnitSelection(t *testing.T) {
	_, fc := doCard(t, testDeps(), "/card?topic=t1&ll=60,25", map[string]string{"X-Client-Country": "US"})
	require.NotNil(t, fc)
	assert.Equal(t, "mi", fc.Properties.Unit)

	// 显式参数压过国家推断
	_, fc = doCard(t, testDeps(), "/card?topic=t1&ll=60,25&unit=km", map[string]string{"X-Client-Country": "US"})
	require.NotNil(t, fc)
	assert.Equal(t, "km", fc.Properties.Unit)
}

func TestHandleCardMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/card?topic=t1&ll=60,25", nil)
	rec := httptest.NewRecorder()
	BuildRoutes(testDeps()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/card", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1", getClientIP(req))

	req.Header.Set("x-real-ip", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", getClientIP(req))

	req.Header.Set("x-forwarded-for", "10.0.0.3, 10.0.0.4")
	assert.Equal(t, "10.0.0.3", getClientIP(req))
}

func TestLLBox(t *testing.T) {
	fs := []*model.Feature{
		{Location: &model.LatLng{Lat: 60, Lng: 25}},
		{Location: &model.LatLng{Lat: 40, Lng: -83}},
		{Name: "nowhere"},
	}
	// n,s,e,w 序，每边向外扩 40% 跨度
	assert.Equal(t, "68.0,32.0,68.2,-126.2", llbox(fs))
	assert.Equal(t, "", llbox(nil))
}
