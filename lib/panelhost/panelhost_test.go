// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package panelhost

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/easel-foundation/easel/bridge"
	"github.com/easel-foundation/easel/lib/document"
	"github.com/easel-foundation/easel/lib/geometry"
	"github.com/easel-foundation/easel/lib/testutil"
)

// testServer is a stand-in for the bridge's WebSocket listener: it
// accepts one panel and exchanges envelopes over channels.
type testServer struct {
	URL       string
	conns     chan *websocket.Conn
	responses chan *bridge.Response
}

func startServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		conns:     make(chan *websocket.Conn, 1),
		responses: make(chan *bridge.Response, 16),
	}
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		ts.conns <- conn
		for {
			var response bridge.Response
			if err := conn.ReadJSON(&response); err != nil {
				return
			}
			ts.responses <- &response
		}
	}))
	t.Cleanup(server.Close)
	ts.URL = "ws://" + strings.TrimPrefix(server.URL, "http://")
	return ts
}

// roundTrip sends one request to the connected host and waits for its
// response.
func (ts *testServer) roundTrip(t *testing.T, conn *websocket.Conn, req *bridge.Request) *bridge.Response {
	t.Helper()
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("writing request: %v", err)
	}
	return testutil.RequireReceive(t, ts.responses, 2*time.Second, "response")
}

func dialHost(t *testing.T, ts *testServer, cfg Config) (*Host, *websocket.Conn) {
	t.Helper()
	cfg.URL = ts.URL
	host, err := Dial(cfg)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { host.Close() })
	conn := testutil.RequireReceive(t, ts.conns, 2*time.Second, "panel connection")
	return host, conn
}

// threeRects builds a document with three 100x50 rectangles on one
// layer. Their tops sit within one 5pt reading band, so grid placement
// orders them left to right.
func threeRects() (*document.Document, []*document.Item) {
	doc := document.New("test.ai", 800, 600)
	layer := doc.AddLayer("L1")
	a := layer.Append(document.NewItem(document.KindPath, "rect_A", geometry.Rect{Left: 40, Top: 500, Right: 140, Bottom: 450}))
	b := layer.Append(document.NewItem(document.KindPath, "rect_B", geometry.Rect{Left: 300, Top: 501, Right: 400, Bottom: 451}))
	c := layer.Append(document.NewItem(document.KindPath, "rect_C", geometry.Rect{Left: 600, Top: 503, Right: 700, Bottom: 453}))
	return doc, []*document.Item{a, b, c}
}

// decodeReport unwraps the double-encoded result into a generic map.
func decodeReport(t *testing.T, response *bridge.Response) map[string]any {
	t.Helper()
	if response.Error != "" {
		t.Fatalf("envelope error: %s", response.Error)
	}
	value, err := response.DecodeResult()
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}
	report, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("result is %T, want map", value)
	}
	return report
}

func taskRequest(id int64, task string, payload map[string]any) *bridge.Request {
	payload["task"] = task
	return &bridge.Request{
		ID:     id,
		Script: "// assembled ExtendScript, ignored by the mock",
		Command: &bridge.Command{
			Type:   "task:" + task,
			Tool:   "test",
			Params: payload,
		},
	}
}

func TestQueryItemsTaskReportsArtifacts(t *testing.T) {
	ts := startServer(t)
	doc, _ := threeRects()
	_, conn := dialHost(t, ts, Config{Document: doc})

	response := ts.roundTrip(t, conn, taskRequest(1, "query.items", map[string]any{
		"targets": map[string]any{"type": "all"},
		"options": map[string]any{"dryRun": true},
	}))

	report := decodeReport(t, response)
	if report["ok"] != true {
		t.Fatalf("report not ok: %v", report)
	}
	artifacts := report["artifacts"].(map[string]any)
	items := artifacts["items"].([]any)
	if len(items) != 3 {
		t.Fatalf("reported %d items, want 3", len(items))
	}
	first := items[0].(map[string]any)
	if first["type"] != "PathItem" {
		t.Errorf("item type = %v, want PathItem", first["type"])
	}
	if _, ok := first["itemRef"].(map[string]any); !ok {
		t.Errorf("item has no itemRef: %v", first)
	}
	if first["orientation"] != "landscape" {
		t.Errorf("orientation = %v, want landscape for a 100x50 rect", first["orientation"])
	}
}

func TestNoDocumentFailsAtCollect(t *testing.T) {
	ts := startServer(t)
	_, conn := dialHost(t, ts, Config{Document: nil})

	response := ts.roundTrip(t, conn, taskRequest(1, "query.items", map[string]any{
		"targets": map[string]any{"type": "all"},
	}))

	report := decodeReport(t, response)
	if report["ok"] != false {
		t.Fatalf("report ok without a document: %v", report)
	}
	errs := report["errors"].([]any)
	first := errs[0].(map[string]any)
	if first["code"] != "V001" || first["stage"] != "collect" {
		t.Errorf("error = %v, want V001 at collect", first)
	}
}

func TestGridTaskMovesItems(t *testing.T) {
	ts := startServer(t)
	doc, items := threeRects()
	host, conn := dialHost(t, ts, Config{Document: doc})

	response := ts.roundTrip(t, conn, taskRequest(1, "layout.grid", map[string]any{
		"targets": map[string]any{"type": "all"},
		"params": map[string]any{
			"columns": 3,
			"gapX":    8.5,
			"gapY":    8.5,
			"originX": 40.0,
			"originY": 520.0,
		},
	}))

	report := decodeReport(t, response)
	if report["ok"] != true {
		t.Fatalf("report not ok: %v", report)
	}
	stats := report["stats"].(map[string]any)
	if stats["itemsModified"].(float64) < 2 {
		t.Errorf("stats = %v, want at least 2 modified", stats)
	}

	policy := host.Executor().Policy()
	wantLefts := []float64{40, 148.5, 257}
	for i, item := range items {
		got := item.VisibleBounds(policy).Left
		if diff := got - wantLefts[i]; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("item %d left = %g, want %g", i, got, wantLefts[i])
		}
	}
}

func TestFitToSlotsTaskFitsWithinSlots(t *testing.T) {
	ts := startServer(t)
	doc := document.New("test.ai", 500, 400)
	layer := doc.AddLayer("L1")
	a := layer.Append(document.NewItem(document.KindPath, "wide", geometry.Rect{Left: 0, Top: 400, Right: 400, Bottom: 300}))
	b := layer.Append(document.NewItem(document.KindPath, "tall", geometry.Rect{Left: 0, Top: 300, Right: 50, Bottom: 0}))
	host, conn := dialHost(t, ts, Config{Document: doc})

	response := ts.roundTrip(t, conn, taskRequest(1, "layout.fitToSlots", map[string]any{
		"targets": map[string]any{"type": "all"},
		"params":  map[string]any{"preset": "2x2", "mode": "contain"},
	}))

	report := decodeReport(t, response)
	if report["ok"] != true {
		t.Fatalf("report not ok: %v", report)
	}

	// 2x2 on 500x400: slots are 225x175, first at (20, 380).
	policy := host.Executor().Policy()
	boundsA := a.VisibleBounds(policy)
	if boundsA.Width() > 225+1e-9 || boundsA.Height() > 175+1e-9 {
		t.Errorf("wide item %gx%g does not fit its 225x175 slot", boundsA.Width(), boundsA.Height())
	}
	if boundsA.Left < 20-1e-9 || boundsA.Top > 380+1e-9 {
		t.Errorf("wide item at (%g, %g) escaped its slot", boundsA.Left, boundsA.Top)
	}
	boundsB := b.VisibleBounds(policy)
	if boundsB.Width() > 225+1e-9 || boundsB.Height() > 175+1e-9 {
		t.Errorf("tall item %gx%g does not fit its slot", boundsB.Width(), boundsB.Height())
	}
}

func TestUnknownTaskRunsCollectOnly(t *testing.T) {
	ts := startServer(t)
	doc, _ := threeRects()
	_, conn := dialHost(t, ts, Config{Document: doc})

	response := ts.roundTrip(t, conn, taskRequest(1, "pathfinder.unite", map[string]any{
		"targets": map[string]any{"type": "all"},
	}))

	report := decodeReport(t, response)
	if report["ok"] != true {
		t.Fatalf("report not ok: %v", report)
	}
	stats := report["stats"].(map[string]any)
	if stats["itemsProcessed"].(float64) != 3 {
		t.Errorf("stats = %v, want 3 processed", stats)
	}
	if stats["itemsModified"].(float64) != 0 {
		t.Errorf("collect-only task modified items: %v", stats)
	}
}

func TestFreeformScriptGetsCannedResponse(t *testing.T) {
	ts := startServer(t)
	_, conn := dialHost(t, ts, Config{})

	response := ts.roundTrip(t, conn, &bridge.Request{ID: 9, Script: "app.documents.length;"})
	if response.ID != 9 {
		t.Errorf("response id = %d, want 9", response.ID)
	}
	value, err := response.DecodeResult()
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}
	if value != "ok" {
		t.Errorf("result = %v, want ok", value)
	}
}

func TestCustomScriptHandler(t *testing.T) {
	ts := startServer(t)
	_, conn := dialHost(t, ts, Config{
		Scripts: func(script string, _ *bridge.Command) (any, error) {
			if strings.Contains(script, "boom") {
				return nil, errors.New("ReferenceError: boom is undefined")
			}
			return map[string]any{"echo": script}, nil
		},
	})

	response := ts.roundTrip(t, conn, &bridge.Request{ID: 1, Script: "1+1;"})
	value, _ := response.DecodeResult()
	if value.(map[string]any)["echo"] != "1+1;" {
		t.Errorf("result = %v", value)
	}

	response = ts.roundTrip(t, conn, &bridge.Request{ID: 2, Script: "boom();"})
	if !strings.Contains(response.Error, "ReferenceError") {
		t.Errorf("error = %q, want ReferenceError", response.Error)
	}
}

func TestMalformedFrameIsDroppedAndLoopContinues(t *testing.T) {
	ts := startServer(t)
	_, conn := dialHost(t, ts, Config{})

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("writing garbage: %v", err)
	}
	response := ts.roundTrip(t, conn, &bridge.Request{ID: 3, Script: "1;"})
	if response.ID != 3 {
		t.Errorf("response id = %d, want 3", response.ID)
	}
}

func TestCloseUnblocksWait(t *testing.T) {
	ts := startServer(t)
	host, _ := dialHost(t, ts, Config{})

	done := make(chan struct{})
	go func() {
		host.Wait()
		close(done)
	}()
	host.Close()
	testutil.RequireClosed(t, done, 2*time.Second, "Wait to return")
}

func TestTaskHistoryIsRecorded(t *testing.T) {
	ts := startServer(t)
	doc, _ := threeRects()
	host, conn := dialHost(t, ts, Config{Document: doc})

	ts.roundTrip(t, conn, taskRequest(1, "query.items", map[string]any{
		"targets": map[string]any{"type": "all"},
	}))

	history := host.Executor().History().Snapshot()
	if len(history) != 1 || history[0].Task != "query.items" {
		t.Fatalf("history = %v, want one query.items entry", history)
	}
}

func TestDurationIsPopulated(t *testing.T) {
	ts := startServer(t)
	_, conn := dialHost(t, ts, Config{})

	response := ts.roundTrip(t, conn, &bridge.Request{ID: 1, Script: "1;"})
	if response.DurationMS < 0 {
		t.Errorf("duration = %v, want non-negative", response.DurationMS)
	}
	var raw map[string]any
	data, _ := json.Marshal(response)
	json.Unmarshal(data, &raw)
	if _, ok := raw["id"]; !ok {
		t.Error("response does not marshal an id")
	}
}
