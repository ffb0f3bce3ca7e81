package analytics

import (
	"errors"

	"github.com/quotebot/quotebot/internal/database"
	"github.com/quotebot/quotebot/internal/logger"
)

// Store is the write side of the analytics database.
type Store interface {
	AddUser(u database.User) error
	TouchActivity(chatID int64) error
	LogAction(chatID int64, action string, details map[string]interface{}) error
	LogQuote(chatID int64, text, source string, hasImage bool) error
	LogError(chatID int64, step, message string) error
}

// Recorder writes analytics events to a Store. Failures are logged and never
// returned, so callers cannot be affected by the store being down.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) RecordUser(u database.User) {
	r.report(r.store.AddUser(u), "add user", u.ChatID)
}

func (r *Recorder) TouchActivity(chatID int64) {
	r.report(r.store.TouchActivity(chatID), "touch activity", chatID)
}

func (r *Recorder) RecordAction(chatID int64, action string, data map[string]interface{}) {
	r.report(r.store.LogAction(chatID, action, data), "log action "+action, chatID)
}

func (r *Recorder) RecordQuote(chatID int64, text, origin string, hasImage bool) {
	r.report(r.store.LogQuote(chatID, text, origin, hasImage), "log quote", chatID)
}

func (r *Recorder) RecordError(chatID int64, step string, err error) {
	if err == nil {
		return
	}
	r.report(r.store.LogError(chatID, step, err.Error()), "log error", chatID)
}

func (r *Recorder) report(err error, op string, chatID int64) {
	if err == nil || errors.Is(err, database.ErrNotConfigured) {
		return
	}
	logger.Warn("Analytics write failed", map[string]interface{}{
		"chat_id":   chatID,
		"operation": op,
		"error":     err.Error(),
	})
}

// Nop discards every event. It is used when no database is configured.
type Nop struct{}

func (Nop) RecordUser(database.User)                           {}
func (Nop) TouchActivity(int64)                                {}
func (Nop) RecordAction(int64, string, map[string]interface{}) {}
func (Nop) RecordQuote(int64, string, string, bool)            {}
func (Nop) RecordError(int64, string, error)                   {}
