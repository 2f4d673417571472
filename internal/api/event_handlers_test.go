package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/vapix-events/internal/api"
	"github.com/technosupport/vapix-events/internal/events"
	"github.com/technosupport/vapix-events/internal/vapix/event"
	"github.com/technosupport/vapix-events/internal/vapix/params"
)

const firstMessage = `<?xml version="1.0" encoding="UTF-8"?>
<tt:MetadataStream xmlns:tt="http://www.onvif.org/ver10/schema">
<tt:VideoAnalytics/></tt:MetadataStream>
`

func pirMessage(op, state string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<tt:MetadataStream xmlns:tt="http://www.onvif.org/ver10/schema"><tt:Event><wsnt:NotificationMessage xmlns:tns1="http://www.onvif.org/ver10/topics" xmlns:tnsaxis="http://www.axis.com/2009/event/topics" xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2"><wsnt:Topic Dialect="http://docs.oasis-open.org/wsn/t-1/TopicExpression/Simple">tns1:Device/tnsaxis:Sensor/PIR</wsnt:Topic><wsnt:Message><tt:Message UtcTime="2020-11-03T20:21:48.310748Z" PropertyOperation="` + op + `"><tt:Source><tt:SimpleItem Name="sensor" Value="0"/></tt:Source><tt:Key></tt:Key><tt:Data><tt:SimpleItem Name="state" Value="` + state + `"/></tt:Data></tt:Message></wsnt:Message></wsnt:NotificationMessage></tt:Event></tt:MetadataStream>
`
}

func setupServer(t *testing.T, maxBody int64) (*api.Server, *events.Tracker, *api.Hub) {
	t.Helper()
	tracker, err := events.NewTracker("cam1", 0, nil, nil)
	require.NoError(t, err)
	hub := api.NewHub(nil)
	tracker.AddSink("ws", hub)
	t.Cleanup(hub.Close)
	return api.NewServer(tracker, hub, maxBody, nil), tracker, hub
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestDecodeEndpoint(t *testing.T) {
	s, _, _ := setupServer(t, 0)
	w := do(t, s.Routes(), http.MethodPost, "/v1/decode", firstMessage+pirMessage("Changed", "1"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got []event.Event
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, event.Event{}, got[0])
	assert.Equal(t, "PIR", got[1].Type)
	assert.Equal(t, "sensor", got[1].Source)
	assert.True(t, got[1].IsTripped)
	assert.Equal(t, event.OperationChanged, got[1].Operation)
}

func TestDecodeEndpointWithoutMessages(t *testing.T) {
	s, _, _ := setupServer(t, 0)
	w := do(t, s.Routes(), http.MethodPost, "/v1/decode", "not a stream")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestParseEndpoint(t *testing.T) {
	s, _, _ := setupServer(t, 0)
	w := do(t, s.Routes(), http.MethodPost, "/v1/parse", pirMessage("Initialized", "0"))
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "Initialized", got["operation"])
	assert.Equal(t, "onvif:Device/axis:Sensor/PIR", got["topic"])
	assert.Equal(t, "state", got["type"])
	assert.Equal(t, "0", got["value"])
}

func TestIngestAndListEvents(t *testing.T) {
	s, tracker, _ := setupServer(t, 0)
	h := s.Routes()

	w := do(t, h, http.MethodPost, "/v1/ingest", firstMessage+pirMessage("Initialized", "0")+pirMessage("Changed", "1"))
	require.Equal(t, http.StatusOK, w.Code)

	var envs []events.Envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envs))
	require.Len(t, envs, 2)
	assert.Equal(t, events.ChangeAdded, envs[0].Change)
	assert.Equal(t, events.ChangeUpdated, envs[1].Change)
	assert.Equal(t, "cam1", envs[1].Device)

	w = do(t, h, http.MethodGet, "/v1/events", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap []event.Event
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	require.Len(t, snap, 1)
	assert.Equal(t, "1", snap[0].State)

	tracker.Handle(t.Context(), []byte(pirMessage("Changed", "0")))
	w = do(t, h, http.MethodGet, "/v1/events?tripped=true", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestFamiliesEndpoint(t *testing.T) {
	s, _, _ := setupServer(t, 0)
	w := do(t, s.Routes(), http.MethodGet, "/v1/families", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Len(t, got, len(event.Families))
	assert.Equal(t, "onvif:AudioSource/axis:TriggerLevel", got[0]["pattern"])
	assert.Equal(t, "raw_numeric", got[0]["rule"])
}

func TestBrandEndpoint(t *testing.T) {
	s, _, _ := setupServer(t, 0)
	h := s.Routes()
	body := "root.Brand.Brand=AXIS\n" +
		"root.Brand.ProdFullName=AXIS M1065-LW Network Camera\n" +
		"root.Brand.ProdNbr=M1065-LW\n" +
		"root.Brand.ProdShortName=AXIS M1065-LW\n" +
		"root.Brand.ProdType=Network Camera\n" +
		"root.Brand.ProdVariant=\n" +
		"root.Brand.WebURL=http://www.axis.com\n"

	w := do(t, h, http.MethodPost, "/v1/params/brand", body)
	require.Equal(t, http.StatusOK, w.Code)
	var b params.Brand
	require.NoError(t, json.NewDecoder(w.Body).Decode(&b))
	assert.Equal(t, "M1065-LW", b.ProdNbr)

	w = do(t, h, http.MethodPost, "/v1/params/brand", "root.Brand.Brand=AXIS\n")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "ProdFullName")
}

func TestBodyTooLarge(t *testing.T) {
	s, _, _ := setupServer(t, 64)
	w := do(t, s.Routes(), http.MethodPost, "/v1/decode", pirMessage("Initialized", "0"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s, _, _ := setupServer(t, 0)
	h := s.Routes()

	w := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "vapix_events_tracked")
}

func TestWebsocketFeed(t *testing.T) {
	s, _, hub := setupServer(t, 0)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(srv.URL+"/v1/ingest", "application/xml", strings.NewReader(pirMessage("Initialized", "1")))
	require.NoError(t, err)
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env events.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, events.ChangeAdded, env.Change)
	assert.Equal(t, "PIR", env.Event.Type)
	assert.True(t, env.Event.IsTripped)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}
