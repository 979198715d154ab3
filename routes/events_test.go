package routes

import (
	"strconv"
	"testing"
	"time"

	"pixshift/models"
)

func receive(t *testing.T, ch <-chan models.ProgressEvent) models.ProgressEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for progress event")
	}
	return models.ProgressEvent{}
}

func TestHubUnsubscribeLeavesOthers(t *testing.T) {
	hub := NewHub()
	first, unsubscribeFirst := hub.Subscribe()
	second, unsubscribeSecond := hub.Subscribe()
	defer unsubscribeSecond()

	if n := hub.Subscribers(); n != 2 {
		t.Fatalf("Expected 2 subscribers, got %d", n)
	}

	unsubscribeFirst()
	hub.Publish(models.ProgressEvent{JobID: "j1", Status: models.StatusConverting})
	hub.Wait()

	if ev := receive(t, second); ev.JobID != "j1" {
		t.Errorf("Unexpected event %+v", ev)
	}
	select {
	case ev := <-first:
		t.Errorf("Unsubscribed channel received %+v", ev)
	default:
	}
	if n := hub.Subscribers(); n != 1 {
		t.Errorf("Expected 1 subscriber, got %d", n)
	}
}

func TestHubKeepsOrderAndDropsOverflow(t *testing.T) {
	hub := NewHub()
	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	total := subscriberBuffer + 10
	for i := 0; i < total; i++ {
		hub.Publish(models.ProgressEvent{JobID: strconv.Itoa(i)})
	}
	hub.Wait()

	if len(events) != subscriberBuffer {
		t.Fatalf("Expected %d buffered events, got %d", subscriberBuffer, len(events))
	}
	for i := 0; i < subscriberBuffer; i++ {
		if ev := receive(t, events); ev.JobID != strconv.Itoa(i) {
			t.Fatalf("Event %d out of order: got job=%s", i, ev.JobID)
		}
	}
}
