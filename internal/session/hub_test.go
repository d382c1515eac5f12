package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studybase-api/internal/models"
)

func receive(t *testing.T, ch <-chan Event) Event {
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
	return Event{}
}

func TestHubRoutesByUser(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	alice, unsubAlice := hub.Subscribe("alice")
	defer unsubAlice()
	all, unsubAll := hub.Subscribe(AllUsers)
	defer unsubAll()

	hub.SignedIn("bob", models.RoleStudent)
	hub.SignedOut("alice")

	ev := receive(t, alice)
	assert.Equal(t, EventSignedOut, ev.Kind)
	assert.False(t, ev.At.IsZero())

	first := receive(t, all)
	second := receive(t, all)
	assert.Equal(t, "bob", first.UserID)
	assert.Equal(t, models.RoleStudent, first.Role)
	assert.Equal(t, "alice", second.UserID)

	select {
	case ev := <-alice:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestHubUnsubscribeAndClose(t *testing.T) {
	hub := NewHub(nil)
	ch, unsubscribe := hub.Subscribe("u1")
	unsubscribe()
	unsubscribe()
	_, open := <-ch
	assert.False(t, open)

	other, _ := hub.Subscribe("u2")
	hub.Close()
	_, open = <-other
	assert.False(t, open)

	late, _ := hub.Subscribe("u3")
	_, open = <-late
	require.False(t, open)
	hub.SignedOut("u3")
}

func TestHubDoesNotBlockOnSlowSubscriber(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	_, unsubscribe := hub.Subscribe("u1")
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			hub.SignedIn("u1", models.RoleStudent)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked")
	}
}
