package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/activities-api/internal/dto"
	"github.com/noah-isme/activities-api/internal/events"
	"github.com/noah-isme/activities-api/internal/models"
	"github.com/noah-isme/activities-api/internal/repository"
	"github.com/noah-isme/activities-api/internal/testsupport"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ActivityEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, event events.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.events))
	for _, event := range r.events {
		types = append(types, event.Type)
	}
	return types
}

type activityFixture struct {
	svc       ActivityService
	db        *gorm.DB
	publisher *recordingPublisher
	host      ActivityActor
	guest     ActivityActor
}

func newActivityFixture(t *testing.T, cache *redis.Client) activityFixture {
	t.Helper()
	db := testsupport.NewSQLiteDB(t)
	publisher := &recordingPublisher{}
	svc := NewActivityService(repository.NewActivityRepository(db), cache, time.Minute, publisher, testValidator(t), testLogger())

	return activityFixture{
		svc:       svc,
		db:        db,
		publisher: publisher,
		host:      createActor(t, db, "bob"),
		guest:     createActor(t, db, "tom"),
	}
}

func createActor(t *testing.T, db *gorm.DB, name string) ActivityActor {
	t.Helper()
	user := models.User{UserName: name, Email: name + "@test.com", DisplayName: name, PasswordHash: "hash"}
	require.NoError(t, db.Create(&user).Error)
	return ActivityActor{UserID: user.ID, UserName: user.UserName}
}

func newActivityPayload(title string) dto.ActivityCreateRequest {
	date := time.Now().Add(24 * time.Hour)
	return dto.ActivityCreateRequest{
		Title:       title,
		Description: "<p>Meet at the bar</p><script>alert('x')</script>",
		Category:    "Drinks",
		Date:        &date,
		City:        "London",
		Venue:       "Pub",
	}
}

func TestActivityServiceCreateAddsHost(t *testing.T) {
	f := newActivityFixture(t, nil)

	activity, err := f.svc.Create(context.Background(), f.host, newActivityPayload("Pub quiz"))
	require.NoError(t, err)
	require.NotEmpty(t, activity.ID)
	require.Equal(t, "Pub quiz", activity.Title)
	require.Equal(t, "<p>Meet at the bar</p>", activity.Description)
	require.Equal(t, "drinks", activity.Category)
	require.Equal(t, "bob", activity.HostUsername)
	require.Len(t, activity.Attendees, 1)
	require.True(t, activity.Attendees[0].IsHost)
	require.Equal(t, []string{events.ActivityCreated}, f.publisher.types())
}

func TestActivityServiceCreateValidation(t *testing.T) {
	f := newActivityFixture(t, nil)

	payload := newActivityPayload("<script>alert('x')</script>")
	payload.Date = nil

	_, err := f.svc.Create(context.Background(), f.host, payload)
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "Title")
	require.Contains(t, validationErr.Fields, "Date")
	require.Empty(t, f.publisher.types())
}

func TestActivityServiceUpdateRequiresHost(t *testing.T) {
	f := newActivityFixture(t, nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.host, newActivityPayload("Film night"))
	require.NoError(t, err)

	title := "Cinema night"
	_, err = f.svc.Update(ctx, f.guest, created.ID, dto.ActivityUpdateRequest{Title: &title})
	require.ErrorIs(t, err, ErrNotHost)

	updated, err := f.svc.Update(ctx, f.host, created.ID, dto.ActivityUpdateRequest{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "Cinema night", updated.Title)
	require.Equal(t, "London", updated.City)

	blank := "<b></b>"
	_, err = f.svc.Update(ctx, f.host, created.ID, dto.ActivityUpdateRequest{Venue: &blank})
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "Venue")

	_, err = f.svc.Update(ctx, f.host, "missing", dto.ActivityUpdateRequest{Title: &title})
	require.ErrorIs(t, err, ErrActivityNotFound)
}

func TestActivityServiceUpdateMeasuresEscapedText(t *testing.T) {
	f := newActivityFixture(t, nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.host, newActivityPayload("Quiz night"))
	require.NoError(t, err)

	// 252 raw characters escape to 260, past the 255 column limit.
	title := strings.Repeat("a", 250) + "&&"
	_, err = f.svc.Update(ctx, f.host, created.ID, dto.ActivityUpdateRequest{Title: &title})
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Fields, "Title")

	fetched, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Quiz night", fetched.Title)

	title = strings.Repeat("a", 245) + "&&"
	updated, err := f.svc.Update(ctx, f.host, created.ID, dto.ActivityUpdateRequest{Title: &title})
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("a", 245)+"&amp;&amp;", updated.Title)
}

func TestActivityServiceAttendance(t *testing.T) {
	f := newActivityFixture(t, nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.host, newActivityPayload("Concert"))
	require.NoError(t, err)

	attended, err := f.svc.Attend(ctx, f.guest, created.ID)
	require.NoError(t, err)
	require.Len(t, attended.Attendees, 2)

	_, err = f.svc.Attend(ctx, f.guest, created.ID)
	require.ErrorIs(t, err, ErrAlreadyAttending)

	_, err = f.svc.Unattend(ctx, f.host, created.ID)
	require.ErrorIs(t, err, ErrHostCannotLeave)

	left, err := f.svc.Unattend(ctx, f.guest, created.ID)
	require.NoError(t, err)
	require.Len(t, left.Attendees, 1)

	_, err = f.svc.Unattend(ctx, f.guest, created.ID)
	require.ErrorIs(t, err, ErrNotAttending)

	_, err = f.svc.Attend(ctx, f.guest, "missing")
	require.ErrorIs(t, err, ErrActivityNotFound)

	require.Equal(t, []string{events.ActivityCreated, events.ActivityAttended, events.ActivityUnattended}, f.publisher.types())
}

func TestActivityServiceDelete(t *testing.T) {
	f := newActivityFixture(t, nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.host, newActivityPayload("Picnic"))
	require.NoError(t, err)
	_, err = f.svc.Attend(ctx, f.guest, created.ID)
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Delete(ctx, f.guest, created.ID), ErrNotHost)
	require.NoError(t, f.svc.Delete(ctx, f.host, created.ID))

	_, err = f.svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, ErrActivityNotFound)
	require.ErrorIs(t, f.svc.Delete(ctx, f.host, created.ID), ErrActivityNotFound)
}

func TestActivityServicePublishFailureDoesNotFailWrite(t *testing.T) {
	f := newActivityFixture(t, nil)
	f.publisher.err = errors.New("broker down")

	_, err := f.svc.Create(context.Background(), f.host, newActivityPayload("Hike"))
	require.NoError(t, err)
}

func TestActivityServiceListCachesAndInvalidates(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer redisClient.Close()

	f := newActivityFixture(t, redisClient)
	ctx := context.Background()

	_, err = f.svc.Create(ctx, f.host, newActivityPayload("First"))
	require.NoError(t, err)

	first, err := f.svc.List(ctx, dto.ActivityListRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.False(t, first.CacheHit)
	require.Len(t, first.Items, 1)
	require.Equal(t, int64(1), first.Pagination.TotalItems)
	require.Equal(t, 1, first.Pagination.TotalPages)

	second, err := f.svc.List(ctx, dto.ActivityListRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.Len(t, second.Items, 1)

	_, err = f.svc.Create(ctx, f.host, newActivityPayload("Second"))
	require.NoError(t, err)

	third, err := f.svc.List(ctx, dto.ActivityListRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.False(t, third.CacheHit)
	require.Len(t, third.Items, 2)
}

func TestActivityServiceListWithoutCache(t *testing.T) {
	f := newActivityFixture(t, nil)
	ctx := context.Background()

	for _, title := range []string{"One", "Two", "Three"} {
		_, err := f.svc.Create(ctx, f.host, newActivityPayload(title))
		require.NoError(t, err)
	}

	page, err := f.svc.List(ctx, dto.ActivityListRequest{Page: 2, PageSize: 2, Category: "DRINKS"})
	require.NoError(t, err)
	require.False(t, page.CacheHit)
	require.Len(t, page.Items, 1)
	require.Equal(t, 2, page.Pagination.TotalPages)
}
