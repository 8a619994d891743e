// Package userprofile сервис профилей пользователей и их способов связи.
package userprofile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/vocal/internal/models"
	"github.com/magabrotheeeer/vocal/internal/storage"
	"github.com/magabrotheeeer/vocal/internal/storage/repository"
)

// DefaultListLimit размер страницы списка профилей по умолчанию.
const DefaultListLimit = 50

type Service struct {
	storage *storage.Storage
	log     *slog.Logger
}

func New(st *storage.Storage, log *slog.Logger) *Service {
	return &Service{storage: st, log: log}
}

// CreateUserProfile создаёт профиль с учётными данными и способами связи
// и возвращает его в одной транзакции.
func (s *Service) CreateUserProfile(ctx context.Context, p models.NewUserProfile) (*models.UserProfile, error) {
	const op = "userprofile.CreateUserProfile"
	var created *models.UserProfile
	err := s.storage.Session(ctx, func(ctx context.Context, tx storage.DBTX) error {
		id, err := repository.CreateUserProfile(p).Execute(ctx, tx)
		if err != nil {
			return err
		}
		created, err = repository.GetUserProfile(repository.ByID(id)).Execute(ctx, tx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user profile created",
		slog.String("op", op),
		slog.String("user_profile_id", created.UserProfileID.String()),
		slog.String("role", string(created.Role)),
	)
	return created, nil
}

// AddContactMethod добавляет профилю способ связи.
func (s *Service) AddContactMethod(ctx context.Context, userProfileID uuid.UUID, value models.ContactValue) (uuid.UUID, error) {
	const op = "userprofile.AddContactMethod"
	id, err := storage.Do(ctx, s.storage, repository.AddContactMethod(userProfileID, value))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// GetUserProfile возвращает профиль или nil, если он не найден.
func (s *Service) GetUserProfile(ctx context.Context, f repository.UserProfileFilter) (*models.UserProfile, error) {
	const op = "userprofile.GetUserProfile"
	u, err := storage.Do(ctx, s.storage, repository.GetUserProfile(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ListUserProfiles возвращает страницу профилей.
func (s *Service) ListUserProfiles(ctx context.Context, limit, offset int) ([]models.UserProfile, error) {
	const op = "userprofile.ListUserProfiles"
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	users, err := storage.Do(ctx, s.storage, repository.ListUserProfiles(limit, offset))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

func (s *Service) GetContactMethod(ctx context.Context, contactMethodID uuid.UUID, userProfileID *uuid.UUID) (*models.ContactMethod, error) {
	const op = "userprofile.GetContactMethod"
	cm, err := storage.Do(ctx, s.storage, repository.GetContactMethod(contactMethodID, userProfileID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cm, nil
}

func (s *Service) AuthenticateUser(ctx context.Context, userProfileID uuid.UUID, password string) (bool, error) {
	const op = "userprofile.AuthenticateUser"
	ok, err := storage.Do(ctx, s.storage, repository.AuthenticateUser(userProfileID, password))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

func (s *Service) MarkContactMethodVerified(ctx context.Context, contactMethodID uuid.UUID, userProfileID *uuid.UUID) error {
	const op = "userprofile.MarkContactMethodVerified"
	if _, err := storage.Do(ctx, s.storage, repository.MarkContactMethodVerified(contactMethodID, userProfileID)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
