package users

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/embercart/embercart-backend/pkg/config"
	"github.com/embercart/embercart-backend/pkg/db/models"
	"github.com/embercart/embercart-backend/pkg/enums"
	pkgerrors "github.com/embercart/embercart-backend/pkg/errors"
	"github.com/embercart/embercart-backend/pkg/mailer"
	"github.com/embercart/embercart-backend/pkg/pagination"
	"github.com/embercart/embercart-backend/pkg/security"
	"github.com/embercart/embercart-backend/pkg/storage/cloudinary"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoleChangeTTL bounds how long a role-change confirmation link stays valid.
const RoleChangeTTL = 24 * time.Hour

// Service defines account-level operations beyond authentication.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*Profile, error)
	UploadProfileImage(ctx context.Context, userID uuid.UUID, file io.Reader) (*Profile, error)
	RequestRoleChange(ctx context.Context, input RoleChangeRequestInput) (*RoleChangeRequestResult, error)
	ResolveRoleChange(ctx context.Context, token string, approve bool) (*RoleChangeResolution, error)
	List(ctx context.Context, params pagination.Params) (*UserList, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo   Repository
	mail   mailer.Sender
	images cloudinary.ImageHost
	cfg    *config.Config
}

// NewService builds a users service with the required dependencies.
func NewService(repo Repository, mail mailer.Sender, images cloudinary.ImageHost, cfg *config.Config) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if mail == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if images == nil {
		return nil, fmt.Errorf("image host required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	return &service{repo: repo, mail: mail, images: images, cfg: cfg}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := ToProfile(user)
	return &profile, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*Profile, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = *input.Name
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}

	if len(updates) > 0 {
		if err := s.repo.Updates(ctx, user.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "updating profile")
		}
	}

	return s.GetProfile(ctx, userID)
}

func (s *service) UploadProfileImage(ctx context.Context, userID uuid.UUID, file io.Reader) (*Profile, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.images.Upload(ctx, s.cfg.Cloudinary.ProfileFolder, file)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUpload, err, "uploading profile image")
	}

	updates := map[string]any{
		"profile_image_url": result.URL,
		"profile_image_id":  result.PublicID,
	}
	if err := s.repo.Updates(ctx, user.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "saving profile image")
	}

	// Replaced images are removed best-effort after the new one is live.
	if user.ProfileImageID != nil && *user.ProfileImageID != result.PublicID {
		_ = s.images.Delete(ctx, *user.ProfileImageID)
	}

	return s.GetProfile(ctx, userID)
}

// RequestRoleChange partitions the requested roles against the caller's
// current grants, persists the pending set with a single-use token, and
// emails approve and reject links to an administrator. The resolve step reads
// the roles back from the record, never from the link.
func (s *service) RequestRoleChange(ctx context.Context, input RoleChangeRequestInput) (*RoleChangeRequestResult, error) {
	if len(input.Roles) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one role is required")
	}

	user, err := s.findUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	result := &RoleChangeRequestResult{
		AlreadyHeld: []string{},
		Pending:     []string{},
		Invalid:     []string{},
	}
	seen := map[string]struct{}{}
	for _, raw := range input.Roles {
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		role, parseErr := enums.ParseRole(raw)
		if parseErr != nil {
			result.Invalid = append(result.Invalid, raw)
			continue
		}
		if enums.ContainsRole(user.Roles, role) {
			result.AlreadyHeld = append(result.AlreadyHeld, raw)
			continue
		}
		result.Pending = append(result.Pending, raw)
	}

	if len(result.Pending) == 0 {
		return result, nil
	}

	token, digest, err := security.GenerateActionToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating role change token")
	}

	expiresAt := time.Now().Add(RoleChangeTTL)
	updates := map[string]any{
		"role_change_token_hash": digest,
		"role_change_roles":      result.Pending,
		"role_change_expires_at": expiresAt,
	}
	if err := s.repo.Updates(ctx, user.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "saving role change request")
	}

	resolveURL := fmt.Sprintf("%s/api/users/role-change/resolve?token=%s", s.cfg.App.BaseURL, token)
	result.ApproveURL = resolveURL + "&approve=true"
	result.RejectURL = resolveURL + "&approve=false"
	result.Token = token

	admin, err := s.repo.FindAdmin(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No admin account exists yet; the request stays pending
			// until one picks it up through the resolve endpoint.
			return result, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "finding admin")
	}

	msg := mailer.Message{
		ToEmail: admin.Email,
		ToName:  admin.Name,
		Subject: "Role change requested",
		PlainContent: fmt.Sprintf(
			"%s (%s) requested the roles %v.\nApprove: %s\nReject: %s",
			user.Name, user.Email, result.Pending, result.ApproveURL, result.RejectURL),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.clearRoleChange(ctx, user.ID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "sending role change email")
	}

	return result, nil
}

// ResolveRoleChange carries out an admin's decision on a pending role change.
// Approving merges the pending roles into the account; rejecting only clears
// the request. A token that no longer matches anything reports
// RoleChangeAlreadyResolved instead of failing, so a second click on either
// link is harmless.
func (s *service) ResolveRoleChange(ctx context.Context, token string, approve bool) (*RoleChangeResolution, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}

	digest := security.HashActionToken(token)
	user, err := s.repo.FindByRoleChangeTokenHash(ctx, digest)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &RoleChangeResolution{Status: RoleChangeAlreadyResolved}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading role change request")
	}

	if user.RoleChangeExpiresAt == nil || time.Now().After(*user.RoleChangeExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidOperation, "role change request has expired")
	}

	updates := map[string]any{
		"role_change_token_hash": nil,
		"role_change_roles":      nil,
		"role_change_expires_at": nil,
	}
	status := RoleChangeRejected
	if approve {
		merged := append([]string{}, user.Roles...)
		for _, raw := range user.RoleChangeRoles {
			if !enums.ContainsRole(merged, enums.Role(raw)) {
				merged = append(merged, raw)
			}
		}
		updates["roles"] = merged
		status = RoleChangeApproved
	}
	if err := s.repo.Updates(ctx, user.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "applying role change decision")
	}

	outcome := "rejected"
	if approve {
		outcome = "approved"
	}
	// The outcome notification is best-effort; the decision has landed.
	_ = s.mail.Send(ctx, mailer.Message{
		ToEmail:      user.Email,
		ToName:       user.Name,
		Subject:      "Your role change request was " + outcome,
		PlainContent: fmt.Sprintf("An administrator has %s your role change request.", outcome),
	})

	resolution := &RoleChangeResolution{Status: status}
	if approve {
		profile, err := s.GetProfile(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		resolution.Profile = profile
	}
	return resolution, nil
}

// clearRoleChange backs a pending request out again, used when the admin
// notification cannot be delivered.
func (s *service) clearRoleChange(ctx context.Context, userID uuid.UUID) {
	_ = s.repo.Updates(ctx, userID, map[string]any{
		"role_change_token_hash": nil,
		"role_change_roles":      nil,
		"role_change_expires_at": nil,
	})
}

func (s *service) List(ctx context.Context, params pagination.Params) (*UserList, error) {
	rows, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "listing users")
	}
	list := &UserList{Users: make([]Profile, 0, len(rows)), Total: total}
	for i := range rows {
		list.Users = append(list.Users, ToProfile(&rows[i]))
	}
	return list, nil
}

func (s *service) Delete(ctx context.Context, userID uuid.UUID) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "deleting user")
	}
	if user.ProfileImageID != nil {
		_ = s.images.Delete(ctx, *user.ProfileImageID)
	}
	return nil
}

func (s *service) findUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading user")
	}
	return user, nil
}
