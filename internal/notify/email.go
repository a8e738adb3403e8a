package notify

import (
	"bytes"
	"context"
	"strings"
	"text/template"
	"time"

	"studygroup/internal/models"

	"github.com/golang/glog"
)

// MeetingTimeLayout is how meeting times are written in e-mails.
const MeetingTimeLayout = "Monday, January 02, 2006 • 3:04 PM"

// Email is a rendered message.
type Email struct {
	To      string
	Subject string
	Body    string
}

var templateFuncs = template.FuncMap{
	"upper": strings.ToUpper,
	"when":  func(t time.Time) string { return t.Format(MeetingTimeLayout) },
}

var (
	joinedSubject = template.Must(template.New("joinedSubject").Funcs(templateFuncs).Parse(
		`You've joined a study meeting for {{upper .Meeting.CourseID}}`))
	joinedBody = template.Must(template.New("joinedBody").Funcs(templateFuncs).Parse(`Hi {{.Name}},

You've successfully joined a study meeting for {{upper .Meeting.CourseID}}{{with .Meeting.CourseName}} ({{.}}){{end}}.

Meeting Details:
- Date & Time: {{when .Meeting.MeetingTime}}
- Location: {{.Meeting.Location}}
- Course: {{upper .Meeting.CourseID}}
- Participants: {{len .Meeting.Participants}}/{{.Meeting.MaxParticipants}}
{{with .Meeting.Description}}
Description: {{.}}
{{end}}
Please arrive on time and bring any necessary materials.

Good luck with your studies!

- Study Group Finder Team
`))

	createdSubject = template.Must(template.New("createdSubject").Funcs(templateFuncs).Parse(
		`Study meeting created for {{upper .Meeting.CourseID}}`))
	createdBody = template.Must(template.New("createdBody").Funcs(templateFuncs).Parse(`Hi {{.Name}},

Your study meeting for {{upper .Meeting.CourseID}}{{with .Meeting.CourseName}} ({{.}}){{end}} has been created successfully!

Meeting Details:
- Date & Time: {{when .Meeting.MeetingTime}}
- Location: {{.Meeting.Location}}
- Course: {{upper .Meeting.CourseID}}
- Min Participants: {{.Meeting.MinParticipants}}
- Max Participants: {{.Meeting.MaxParticipants}}
{{with .Meeting.Description}}
Description: {{.}}
{{end}}
You'll receive email notifications when other students join your meeting.

Good luck with your studies!

- Study Group Finder Team
`))

	accountBody = template.Must(template.New("accountBody").Parse(`Hi,

{{.Intro}}

{{.Link}}

If you didn't ask for this, you can ignore this email.

- Study Group Finder Team
`))
)

type meetingEmailData struct {
	Meeting *models.Meeting
	Name    string
}

// EmailStub pretends to send e-mails. It never fails unless ctx ends before the simulated delivery.
type EmailStub struct {
	// Delay stands in for the round trip to a mail provider.
	Delay time.Duration
	// OnSend, if set, observes every rendered e-mail.
	OnSend func(Email)
}

func NewEmailStub(delay time.Duration) *EmailStub {
	return &EmailStub{Delay: delay}
}

func (s *EmailStub) NotifyJoined(ctx context.Context, meeting *models.Meeting, email string, name string) Result {
	e, err := renderMeetingEmail(joinedSubject, joinedBody, meeting, email, name)
	if err != nil {
		glog.Errorf("error rendering joined notification for meeting %v: %v\n", meeting.ID, err)
		return failed
	}
	return s.send(ctx, e)
}

func (s *EmailStub) NotifyCreated(ctx context.Context, meeting *models.Meeting, email string, name string) Result {
	e, err := renderMeetingEmail(createdSubject, createdBody, meeting, email, name)
	if err != nil {
		glog.Errorf("error rendering created notification for meeting %v: %v\n", meeting.ID, err)
		return failed
	}
	return s.send(ctx, e)
}

func (s *EmailStub) SendVerificationEmail(ctx context.Context, email string, link string) Result {
	return s.sendAccountEmail(ctx, email, "Verify your email for Study Group Finder",
		"Follow this link to verify your email address.", link)
}

func (s *EmailStub) SendPasswordResetEmail(ctx context.Context, email string, link string) Result {
	return s.sendAccountEmail(ctx, email, "Reset your Study Group Finder password",
		"Follow this link to reset your password.", link)
}

func (s *EmailStub) sendAccountEmail(ctx context.Context, to, subject, intro, link string) Result {
	var body bytes.Buffer
	err := accountBody.Execute(&body, struct{ Intro, Link string }{intro, link})
	if err != nil {
		glog.Errorf("error rendering account email: %v\n", err)
		return failed
	}
	return s.send(ctx, Email{To: to, Subject: subject, Body: body.String()})
}

func (s *EmailStub) send(ctx context.Context, e Email) Result {
	glog.Infof("📧 Email notification to %v: %q\n%v", e.To, e.Subject, e.Body)
	if s.OnSend != nil {
		s.OnSend(e)
	}

	if s.Delay <= 0 {
		return sent
	}

	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return sent
	case <-ctx.Done():
		glog.Warningf("email notification to %v abandoned: %v\n", e.To, ctx.Err())
		return failed
	}
}

func renderMeetingEmail(subject, body *template.Template, meeting *models.Meeting, to string, name string) (Email, error) {
	data := meetingEmailData{Meeting: meeting, Name: name}

	var s, b bytes.Buffer
	if err := subject.Execute(&s, data); err != nil {
		return Email{}, err
	}
	if err := body.Execute(&b, data); err != nil {
		return Email{}, err
	}

	return Email{To: to, Subject: s.String(), Body: b.String()}, nil
}
