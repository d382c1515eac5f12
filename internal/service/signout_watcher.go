package service

import (
	"github.com/noah-isme/studybase-api/internal/session"
)

type sessionEvents interface {
	Subscribe(userID string) (<-chan session.Event, func())
}

// watchSignOuts calls onSignOut for every sign-out until the returned stop func is called.
func watchSignOuts(events sessionEvents, onSignOut func(userID string)) func() {
	ch, unsubscribe := events.Subscribe(session.AllUsers)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			if ev.Kind == session.EventSignedOut {
				onSignOut(ev.UserID)
			}
		}
	}()
	return func() {
		unsubscribe()
		<-done
	}
}
