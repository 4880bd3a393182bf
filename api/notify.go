package api

import (
	"context"
	"log"
)

// LogNotifier writes notifications to the process log. It stands in for a
// mail or chat integration; swap it on RequestService.Notifier to deliver
// for real.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, userID, kind, message, link string) error {
	log.Printf("[Notify] to=%s kind=%s message=%q link=%s", userID, kind, message, link)
	return nil
}
