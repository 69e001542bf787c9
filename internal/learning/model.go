package learning

import (
	"strconv"
	"strings"
	"time"

	"github.com/Ayash-Bera/archivist/internal/models"
	"github.com/sirupsen/logrus"
)

// weightStep is the nudge applied per reinforcement or penalty.
const weightStep = 0.1

// Model mutates the shared Store in response to processed queries and
// explicit user feedback. Its methods never block on I/O.
type Model struct {
	store  *Store
	now    func() time.Time
	logger *logrus.Logger
}

// NewModel wraps store. A nil now falls back to time.Now.
func NewModel(store *Store, now func() time.Time, logger *logrus.Logger) *Model {
	if now == nil {
		now = time.Now
	}
	return &Model{store: store, now: now, logger: logger}
}

// Store returns the underlying shared state.
func (m *Model) Store() *Store {
	return m.store
}

// RecordQuery logs the query for the user and reinforces or penalises its
// tokens depending on whether any archive was found.
func (m *Model) RecordQuery(userID uint, queryText string, successful bool) {
	m.store.AppendPattern(userKey(userID), QueryPattern{
		QueryText:  queryText,
		Successful: successful,
		Timestamp:  m.now(),
	})

	if successful {
		m.ReinforceSuccessfulPattern(queryText)
	} else {
		m.AdjustFailedPattern(queryText)
	}
}

// ReinforceSuccessfulPattern counts the pattern and raises every token weight.
func (m *Model) ReinforceSuccessfulPattern(pattern string) {
	count := m.store.IncrementSuccess(pattern)
	for _, token := range strings.Fields(pattern) {
		m.store.AddWeight(token, weightStep)
	}

	m.logger.WithFields(logrus.Fields{
		"pattern": pattern,
		"count":   count,
	}).Debug("Reinforced successful pattern")
}

// AdjustFailedPattern logs a failure and lowers every token weight.
func (m *Model) AdjustFailedPattern(pattern string) {
	m.penalise(pattern, m.now())
}

func (m *Model) penalise(pattern string, at time.Time) {
	reason := m.store.RecordFailure(pattern, at)
	for _, token := range strings.Fields(pattern) {
		m.store.AddWeight(token, -weightStep)
	}

	m.logger.WithFields(logrus.Fields{
		"pattern":  pattern,
		"failures": reason.Count,
	}).Debug("Penalised failed pattern")
}

// ApplyFeedback turns an explicit helpfulness vote on a past query into a
// reinforcement or a penalty of that query's text.
func (m *Model) ApplyFeedback(queryText string, helpful bool) {
	if helpful {
		m.ReinforceSuccessfulPattern(queryText)
		return
	}
	m.AdjustFailedPattern(queryText)
}

// ObserveArchives counts each returned archive towards its access frequency.
func (m *Model) ObserveArchives(fileNumbers []string) {
	for _, fn := range fileNumbers {
		if fn != "" {
			m.store.IncrementFrequency(fn)
		}
	}
}

// AccessFrequency implements the scorer's frequency source.
func (m *Model) AccessFrequency(fileNumber string) int64 {
	return m.store.Frequency(fileNumber)
}

// KeywordWeight implements the scorer's optional weight lookup.
func (m *Model) KeywordWeight(keyword string) (float64, bool) {
	return m.store.Weight(keyword)
}

// RememberContext stores what the user last asked.
func (m *Model) RememberContext(userID uint, queryText, intent string, categories []string) {
	m.store.SetUserContext(userKey(userID), UserContext{
		LastQuery:  queryText,
		LastIntent: intent,
		Categories: append([]string(nil), categories...),
		UpdatedAt:  m.now(),
	})
}

// Context returns the user's last recorded context.
func (m *Model) Context(userID uint) (UserContext, bool) {
	return m.store.UserContext(userKey(userID))
}

// QueryPatterns returns the user's retained query log.
func (m *Model) QueryPatterns(userID uint) []QueryPattern {
	return m.store.Patterns(userKey(userID))
}

// Replay applies a persisted interaction as if it had just happened: the
// query is recorded and, if the user voted on it, the vote is applied too.
func (m *Model) Replay(record models.ChatHistory) {
	m.store.AppendPattern(userKey(record.UserID), QueryPattern{
		QueryText:  record.Query,
		Successful: record.Successful(),
		Timestamp:  record.CreatedAt,
	})
	if record.Successful() {
		m.ReinforceSuccessfulPattern(record.Query)
	} else {
		m.penalise(record.Query, record.CreatedAt)
	}

	if record.IsHelpful != nil {
		m.ApplyFeedback(record.Query, *record.IsHelpful)
	}
}

func userKey(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}
