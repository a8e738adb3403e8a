package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studygroup/internal/models"
	"studygroup/internal/notify"
	"studygroup/internal/qerrors"
	"studygroup/internal/store"

	"github.com/golang/glog"
)

func (r *Repository) CreateMeeting(ctx context.Context, c *models.CreateMeetingRequest, creator *models.Identity) (*models.Meeting, error) {
	if creator == nil || creator.ID == "" {
		return nil, qerrors.UnauthenticatedError
	}

	now := r.now()
	if err := validateCreateMeeting(c, now); err != nil {
		return nil, err
	}

	meeting := &models.Meeting{
		CourseID:        models.NormalizeCourseID(c.CourseID),
		CourseName:      strings.TrimSpace(c.CourseName),
		MeetingTime:     c.MeetingTime,
		Location:        strings.TrimSpace(c.Location),
		MinParticipants: c.MinParticipants,
		MaxParticipants: c.MaxParticipants,
		Description:     strings.TrimSpace(c.Description),
		CreatedBy:       creator.AsMember(),
		Participants: []models.Participant{{
			ID:       creator.ID,
			Email:    creator.Email,
			Name:     creator.Name(),
			JoinedAt: now,
		}},
		ParticipantIDs: []string{creator.ID},
		CreatedAt:      now,
		Status:         models.StatusActive,
	}

	data := map[string]interface{}{
		"courseId":        meeting.CourseID,
		"courseName":      meeting.CourseName,
		"meetingTime":     meeting.MeetingTime,
		"location":        meeting.Location,
		"minParticipants": meeting.MinParticipants,
		"maxParticipants": meeting.MaxParticipants,
		"description":     meeting.Description,
		"createdBy":       memberToMap(meeting.CreatedBy),
		"createdAt":       meeting.CreatedAt,
		"status":          string(meeting.Status),
	}
	for k, v := range membershipFields(meeting.Participants) {
		data[k] = v
	}

	id, err := r.store.Insert(ctx, models.FirestoreMeetingsCollection, data)
	if err != nil {
		return nil, r.storeError("error creating meeting", err)
	}
	meeting.ID = id
	glog.Infof("meeting %v created for %v by %v\n", id, meeting.CourseID, creator.ID)

	snapshot := *meeting
	r.dispatch("created", id, func(ctx context.Context) notify.Result {
		return r.notifier.NotifyCreated(ctx, &snapshot, creator.Email, creator.Name())
	})

	return meeting, nil
}

// GetMeeting returns the meeting with the given ID.
func (r *Repository) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	if id == "" {
		return nil, qerrors.MeetingNotFoundError
	}

	doc, err := r.store.Get(ctx, models.FirestoreMeetingsCollection, id)
	if err != nil {
		return nil, r.storeError("error getting meeting", err)
	}

	return decodeMeeting(doc)
}

// ListActiveMeetings returns every active meeting, soonest first.
func (r *Repository) ListActiveMeetings(ctx context.Context) ([]*models.Meeting, error) {
	return r.queryMeetings(ctx, "error listing meetings", []store.Filter{
		{Path: "status", Op: store.OpEqual, Value: string(models.StatusActive)},
	})
}

// SearchMeetingsByCourse returns the active meetings of one course, soonest first. Course IDs match
// case-insensitively.
func (r *Repository) SearchMeetingsByCourse(ctx context.Context, courseID string) ([]*models.Meeting, error) {
	normalized := models.NormalizeCourseID(courseID)
	if normalized == "" {
		return nil, qerrors.Invalid("courseId", "must be a non-empty string")
	}

	return r.queryMeetings(ctx, "error searching meetings", []store.Filter{
		{Path: "courseId", Op: store.OpEqual, Value: normalized},
		{Path: "status", Op: store.OpEqual, Value: string(models.StatusActive)},
	})
}

// SearchMeetings lists active meetings, narrowed to a course when one is given.
func (r *Repository) SearchMeetings(ctx context.Context, c *models.SearchMeetingsRequest) ([]*models.Meeting, error) {
	if c == nil || models.NormalizeCourseID(c.CourseID) == "" {
		return r.ListActiveMeetings(ctx)
	}
	return r.SearchMeetingsByCourse(ctx, c.CourseID)
}

// ListMeetingsForUser returns every meeting the user created or joined, soonest first, whatever its status.
func (r *Repository) ListMeetingsForUser(ctx context.Context, user *models.Identity) ([]*models.Meeting, error) {
	if user == nil || user.ID == "" {
		return nil, qerrors.UnauthenticatedError
	}

	return r.queryMeetings(ctx, "error getting user meetings", []store.Filter{
		{Path: "participantIds", Op: store.OpArrayContains, Value: user.ID},
	})
}

// JoinMeeting adds the user to the meeting and returns the meeting as of the join. The capacity and duplicate
// checks run in the same transaction as the write, so concurrent joiners can never overfill a meeting.
func (r *Repository) JoinMeeting(ctx context.Context, id string, user *models.Identity) (*models.Meeting, error) {
	if user == nil || user.ID == "" {
		return nil, qerrors.UnauthenticatedError
	}
	if id == "" {
		return nil, qerrors.MeetingNotFoundError
	}

	var joined *models.Meeting
	err := r.store.RunTransaction(ctx, models.FirestoreMeetingsCollection, id, func(doc *store.Document) (*store.Mutation, error) {
		joined = nil

		m, err := decodeMeeting(doc)
		if err != nil {
			return nil, err
		}
		if m.HasParticipant(user.ID) {
			return nil, qerrors.AlreadyMemberError
		}
		if m.IsFull() {
			return nil, qerrors.MeetingFullError
		}

		m.Participants = append(m.Participants, models.Participant{
			ID:       user.ID,
			Email:    user.Email,
			Name:     user.Name(),
			JoinedAt: r.now(),
		})
		m.ParticipantIDs = append(m.ParticipantIDs, user.ID)
		joined = m

		return &store.Mutation{Set: membershipFields(m.Participants)}, nil
	})
	if err != nil {
		return nil, r.storeError("error joining meeting", err)
	}
	glog.Infof("%v joined meeting %v (%d/%d)\n", user.ID, id, len(joined.Participants), joined.MaxParticipants)

	snapshot := *joined
	r.dispatch("joined", id, func(ctx context.Context) notify.Result {
		return r.notifier.NotifyJoined(ctx, &snapshot, user.Email, user.Name())
	})

	return joined, nil
}

// LeaveMeeting removes the user from the meeting. When nobody would be left, the meeting is deleted instead and
// deleted is true. The creator cannot leave; leaving a meeting one is not part of does nothing.
func (r *Repository) LeaveMeeting(ctx context.Context, id string, user *models.Identity) (deleted bool, err error) {
	if user == nil || user.ID == "" {
		return false, qerrors.UnauthenticatedError
	}
	if id == "" {
		return false, qerrors.MeetingNotFoundError
	}

	err = r.store.RunTransaction(ctx, models.FirestoreMeetingsCollection, id, func(doc *store.Document) (*store.Mutation, error) {
		deleted = false

		m, err := decodeMeeting(doc)
		if err != nil {
			return nil, err
		}
		if m.IsCreator(user.ID) {
			return nil, qerrors.CreatorCannotLeave
		}

		remaining := make([]models.Participant, 0, len(m.Participants))
		for _, p := range m.Participants {
			if p.ID != user.ID {
				remaining = append(remaining, p)
			}
		}
		if len(remaining) == len(m.Participants) {
			return nil, nil
		}

		if len(remaining) == 0 {
			deleted = true
			return &store.Mutation{Delete: true}, nil
		}
		return &store.Mutation{Set: membershipFields(remaining)}, nil
	})
	if err != nil {
		return false, r.storeError("error leaving meeting", err)
	}

	if deleted {
		glog.Infof("%v left meeting %v as the last participant, meeting deleted\n", user.ID, id)
	}
	return deleted, nil
}

// DeleteMeeting removes the meeting. Only its creator may do so.
func (r *Repository) DeleteMeeting(ctx context.Context, id string, user *models.Identity) error {
	if user == nil || user.ID == "" {
		return qerrors.UnauthenticatedError
	}
	if id == "" {
		return qerrors.MeetingNotFoundError
	}

	err := r.store.RunTransaction(ctx, models.FirestoreMeetingsCollection, id, func(doc *store.Document) (*store.Mutation, error) {
		m, err := decodeMeeting(doc)
		if err != nil {
			return nil, err
		}
		if !m.IsCreator(user.ID) {
			return nil, qerrors.OnlyCreatorCanDelete
		}
		return &store.Mutation{Delete: true}, nil
	})
	if err != nil {
		return r.storeError("error deleting meeting", err)
	}

	glog.Infof("meeting %v deleted by %v\n", id, user.ID)
	return nil
}

// Helpers

func (r *Repository) queryMeetings(ctx context.Context, op string, filters []store.Filter) ([]*models.Meeting, error) {
	docs, err := r.store.Query(ctx, models.FirestoreMeetingsCollection, filters, &store.Order{Path: "meetingTime"})
	if err != nil {
		return nil, r.storeError(op, err)
	}
	return decodeMeetings(docs), nil
}

// storeError passes membership rule violations through, turns a missing document into MeetingNotFoundError and
// reports everything else as the store being unavailable.
func (r *Repository) storeError(op string, err error) error {
	var ve *qerrors.ValidationError
	switch {
	case errors.Is(err, qerrors.EntityNotFound):
		return qerrors.MeetingNotFoundError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, qerrors.AlreadyMemberError),
		errors.Is(err, qerrors.MeetingFullError),
		errors.Is(err, qerrors.ForbiddenError),
		errors.As(err, &ve):
		return err
	}

	glog.Errorf("%v: %v\n", op, err)
	return qerrors.Remote(op, err)
}

func validateCreateMeeting(c *models.CreateMeetingRequest, now time.Time) error {
	if c == nil {
		return qerrors.InvalidBody
	}
	if models.NormalizeCourseID(c.CourseID) == "" {
		return qerrors.Invalid("courseId", "must be a non-empty string")
	}
	if strings.TrimSpace(c.Location) == "" {
		return qerrors.Invalid("location", "must be a non-empty string")
	}
	if c.MeetingTime.IsZero() {
		return qerrors.Invalid("meetingTime", "is required")
	}
	if !c.MeetingTime.After(now) {
		return qerrors.Invalid("meetingTime", "must be in the future")
	}
	if c.MinParticipants < models.MinGroupSize || c.MinParticipants > models.MaxGroupSize {
		return qerrors.Invalid("minParticipants", fmt.Sprintf("must be between %d and %d", models.MinGroupSize, models.MaxGroupSize))
	}
	if c.MaxParticipants < models.MinGroupSize || c.MaxParticipants > models.MaxGroupSize {
		return qerrors.Invalid("maxParticipants", fmt.Sprintf("must be between %d and %d", models.MinGroupSize, models.MaxGroupSize))
	}
	if c.MinParticipants >= c.MaxParticipants {
		return qerrors.Invalid("minParticipants", "must be less than maxParticipants")
	}
	return nil
}
