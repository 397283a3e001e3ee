package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestHubBroadcastsJobEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws/jobs", hub.Serve)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/jobs"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientsCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	job := entity.PrintJob{ID: "job_1", Type: entity.JobKitchen, Status: entity.JobCompleted}
	if err := hub.PublishJob(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Event != "print.completed" || ev.Job.ID != "job_1" {
		t.Errorf("event = %+v", ev)
	}
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub(nil)
	for i := 0; i < cap(hub.broadcast)+10; i++ {
		if err := hub.PublishJob(context.Background(), entity.PrintJob{ID: "x"}); err != nil {
			t.Fatal(err)
		}
	}
	if len(hub.broadcast) != cap(hub.broadcast) {
		t.Errorf("buffered = %d", len(hub.broadcast))
	}
}
