package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/activities-api/internal/auth"
	"github.com/noah-isme/activities-api/internal/models"
	"github.com/noah-isme/activities-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// DemoPassword is the password given to every seeded demo account.
const DemoPassword = "Pa$$w0rd"

// SeedResult summarises a demo seeding run.
type SeedResult struct {
	Users      int  `json:"users"`
	Activities int  `json:"activities"`
	Skipped    bool `json:"skipped"`
}

// SeedService loads demo users and activities into an empty database.
type SeedService interface {
	SeedDemo(ctx context.Context, token string) (SeedResult, error)
}

type seedService struct {
	db      *gorm.DB
	enabled bool
	token   string
	now     func() time.Time
	logger  zerolog.Logger
}

// NewSeedService constructs a seeding service. All demo rows are written in a single transaction on db.
func NewSeedService(db *gorm.DB, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		db:      db,
		enabled: enabled,
		token:   token,
		now:     time.Now,
		logger:  logger.With().Str("component", "seed_service").Logger(),
	}
}

type demoActivity struct {
	title     string
	category  string
	venue     string
	offset    time.Duration
	host      int
	attendees []int
}

var demoUsers = []models.User{
	{DisplayName: "Bob", UserName: "bob", Email: "bob@test.com"},
	{DisplayName: "Tom", UserName: "tom", Email: "tom@test.com"},
	{DisplayName: "Jane", UserName: "jane", Email: "jane@test.com"},
}

var demoActivities = []demoActivity{
	{title: "Past Activity 1", category: "drinks", venue: "Pub", offset: -60 * 24 * time.Hour, host: 0, attendees: []int{1}},
	{title: "Future Activity 1", category: "culture", venue: "Natural History Museum", offset: 30 * 24 * time.Hour, host: 1, attendees: []int{0}},
	{title: "Future Activity 2", category: "music", venue: "O2 Arena", offset: 60 * 24 * time.Hour, host: 2, attendees: []int{1}},
	{title: "Future Activity 3", category: "drinks", venue: "Another pub", offset: 90 * 24 * time.Hour, host: 0, attendees: []int{2}},
	{title: "Future Activity 4", category: "film", venue: "Cinema", offset: 120 * 24 * time.Hour, host: 1, attendees: []int{0, 2}},
}

func (s *seedService) SeedDemo(ctx context.Context, token string) (SeedResult, error) {
	if !s.enabled {
		return SeedResult{}, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return SeedResult{}, ErrSeedUnauthorized
	}

	var result SeedResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.seed(ctx, repository.NewUserRepository(tx), repository.NewActivityRepository(tx))
		return err
	})
	if err != nil {
		return SeedResult{}, err
	}

	if result.Skipped {
		s.logger.Info().Msg("demo data already present")
	} else {
		s.logger.Info().Int("users", result.Users).Int("activities", result.Activities).Msg("demo data seeded")
	}
	return result, nil
}

func (s *seedService) seed(ctx context.Context, userRepo repository.UserRepository, activityRepo repository.ActivityRepository) (SeedResult, error) {
	exists, err := userRepo.ExistsByUserName(ctx, demoUsers[0].UserName)
	if err != nil {
		return SeedResult{}, err
	}
	if exists {
		return SeedResult{Skipped: true}, nil
	}

	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return SeedResult{}, err
	}

	users := make([]models.User, len(demoUsers))
	for i, template := range demoUsers {
		user := template
		user.PasswordHash = hash
		if err := userRepo.Create(ctx, &user); err != nil {
			return SeedResult{}, fmt.Errorf("seed user %s: %w", user.UserName, err)
		}
		users[i] = user
	}

	now := s.now().UTC()
	for i, demo := range demoActivities {
		activity := models.Activity{
			Title:       demo.title,
			Description: fmt.Sprintf("Activity %d description", i+1),
			Category:    demo.category,
			Date:        now.Add(demo.offset),
			City:        "London",
			Venue:       demo.venue,
			UserActivities: []models.UserActivity{{
				AppUserID:  users[demo.host].ID,
				IsHost:     true,
				DateJoined: now,
			}},
		}
		for _, idx := range demo.attendees {
			activity.UserActivities = append(activity.UserActivities, models.UserActivity{
				AppUserID:  users[idx].ID,
				DateJoined: now,
			})
		}
		if err := activityRepo.Create(ctx, &activity); err != nil {
			return SeedResult{}, fmt.Errorf("seed activity %q: %w", demo.title, err)
		}
	}

	return SeedResult{Users: len(users), Activities: len(demoActivities)}, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}
