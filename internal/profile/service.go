// Package profile manages the per-user profile document.
package profile

import (
	"context"

	"github.com/samber/mo"

	"lifedesk/internal/storage"
)

// Patch carries the fields a client may change. Absent fields keep the
// stored value.
type Patch struct {
	DisplayName mo.Option[string] `json:"displayName"`
	Timezone    mo.Option[string] `json:"timezone"`
	AvatarURL   mo.Option[string] `json:"avatarUrl"`
	Bio         mo.Option[string] `json:"bio"`
}

type Service struct {
	store storage.Profiles
}

func NewService(store storage.Profiles) *Service {
	return &Service{store: store}
}

// Get returns the user's profile, or an empty default when none was saved
// yet. A missing profile is not an error for the caller.
func (s *Service) Get(ctx context.Context, userID string) (storage.Profile, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if storage.IsNotFound(err) {
		return storage.Profile{UserID: userID, Timezone: "UTC"}, nil
	}
	return profile, err
}

// Patch applies the set fields and persists the result.
func (s *Service) Patch(ctx context.Context, userID string, patch Patch) (storage.Profile, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return storage.Profile{}, err
	}

	if name, ok := patch.DisplayName.Get(); ok {
		profile.DisplayName = name
	}
	if tz, ok := patch.Timezone.Get(); ok {
		if tz == "" {
			return storage.Profile{}, &storage.Error{Type: storage.ErrInvalidInput, Message: "timezone cannot be empty"}
		}
		profile.Timezone = tz
	}
	if avatar, ok := patch.AvatarURL.Get(); ok {
		profile.AvatarURL = avatar
	}
	if bio, ok := patch.Bio.Get(); ok {
		profile.Bio = bio
	}

	return s.store.PutProfile(ctx, profile)
}
