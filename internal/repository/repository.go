package repository

import (
	"context"
	"sync"
	"time"

	"studygroup/internal/models"
	"studygroup/internal/notify"
	"studygroup/internal/store"

	"github.com/golang/glog"
	"github.com/mitchellh/mapstructure"
)

// DefaultNotificationTimeout bounds a single notification when none is configured.
const DefaultNotificationTimeout = 10 * time.Second

// Repository translates meeting operations into document store calls and enforces the membership rules the store
// knows nothing about.
type Repository struct {
	store    store.Store
	notifier notify.Notifier

	// NotificationTimeout bounds each notification dispatched after a write.
	NotificationTimeout time.Duration

	now           func() time.Time
	notifications sync.WaitGroup
}

func NewRepository(s store.Store, n notify.Notifier) *Repository {
	return &Repository{
		store:               s,
		notifier:            n,
		NotificationTimeout: DefaultNotificationTimeout,
		now:                 time.Now,
	}
}

// Wait blocks until every notification dispatched so far has finished.
func (r *Repository) Wait() {
	r.notifications.Wait()
}

// dispatch runs send in the background. Notifications never block or fail the write they describe: failures and
// panics are logged and dropped.
func (r *Repository) dispatch(kind string, meetingID string, send func(ctx context.Context) notify.Result) {
	if r.notifier == nil {
		return
	}

	r.notifications.Add(1)
	go func() {
		defer r.notifications.Done()
		defer func() {
			if p := recover(); p != nil {
				glog.Errorf("%v notification for meeting %v panicked: %v\n", kind, meetingID, p)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.NotificationTimeout)
		defer cancel()

		res := send(ctx)
		if !res.Success {
			glog.Warningf("%v notification for meeting %v failed: %v\n", kind, meetingID, res.Message)
		}
	}()
}

// Helpers

// decodeMeeting converts a stored document into a Meeting.
func decodeMeeting(doc *store.Document) (*models.Meeting, error) {
	var m models.Meeting
	err := mapstructure.Decode(doc.Data, &m)
	if err != nil {
		return nil, err
	}

	m.ID = doc.ID
	return &m, nil
}

func decodeMeetings(docs []*store.Document) []*models.Meeting {
	meetings := make([]*models.Meeting, 0, len(docs))
	for _, doc := range docs {
		m, err := decodeMeeting(doc)
		if err != nil {
			glog.Warningf("skipping malformed meeting %v: %v\n", doc.ID, err)
			continue
		}
		meetings = append(meetings, m)
	}
	return meetings
}

func memberToMap(m models.Member) map[string]interface{} {
	return map[string]interface{}{
		"id":    m.ID,
		"email": m.Email,
		"name":  m.Name,
	}
}

// membershipFields renders participants in stored form. Both arrays are always written together so they stay in
// lockstep.
func membershipFields(participants []models.Participant) map[string]interface{} {
	ps := make([]interface{}, 0, len(participants))
	ids := make([]interface{}, 0, len(participants))
	for _, p := range participants {
		ps = append(ps, map[string]interface{}{
			"id":       p.ID,
			"email":    p.Email,
			"name":     p.Name,
			"joinedAt": p.JoinedAt,
		})
		ids = append(ids, p.ID)
	}

	return map[string]interface{}{
		"participants":   ps,
		"participantIds": ids,
	}
}
