package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/trainhub/trainhub-server/internal/model"
)

var _ model.CalendarAPI = (*GoogleAPI)(nil)

// GoogleAPI is the raw Google Calendar v3 surface. One remote call per method,
// no retry, no credential handling.
type GoogleAPI struct{}

// NewGoogleAPI creates a GoogleAPI client.
func NewGoogleAPI() *GoogleAPI {
	return &GoogleAPI{}
}

func (g *GoogleAPI) service(ctx context.Context, cred model.Credential) (*gcal.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.AccessToken, Expiry: cred.Expiry})

	service, err := gcal.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return service, nil
}

func (g *GoogleAPI) CreateCalendar(ctx context.Context, cred model.Credential, displayName string) (string, error) {
	service, err := g.service(ctx, cred)
	if err != nil {
		return "", err
	}

	created, err := service.Calendars.Insert(&gcal.Calendar{Summary: displayName}).Context(ctx).Do()
	if err != nil {
		return "", err
	}

	return created.Id, nil
}

func (g *GoogleAPI) DeleteCalendar(ctx context.Context, cred model.Credential, calendarID string) error {
	service, err := g.service(ctx, cred)
	if err != nil {
		return err
	}

	return service.Calendars.Delete(calendarID).Context(ctx).Do()
}

func (g *GoogleAPI) InsertEvent(ctx context.Context, cred model.Credential, calendarID string, event model.EventPayload) (string, error) {
	service, err := g.service(ctx, cred)
	if err != nil {
		return "", err
	}

	inserted, err := service.Events.Insert(calendarID, &gcal.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Start: &gcal.EventDateTime{
			DateTime: event.StartsAt.Format(time.RFC3339),
			TimeZone: event.TimeZone,
		},
		End: &gcal.EventDateTime{
			DateTime: event.EndsAt.Format(time.RFC3339),
			TimeZone: event.TimeZone,
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", err
	}

	return inserted.Id, nil
}

func (g *GoogleAPI) DeleteEvent(ctx context.Context, cred model.Credential, calendarID, eventID string) error {
	service, err := g.service(ctx, cred)
	if err != nil {
		return err
	}

	return service.Events.Delete(calendarID, eventID).Context(ctx).Do()
}
