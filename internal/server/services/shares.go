// Package services holds the share API business logic: policy checks,
// request validation and the ordered write plans that persist shares.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/cryptox"
	"github.com/dmitrijs2005/sharekeeper/internal/dbx"
	"github.com/dmitrijs2005/sharekeeper/internal/logging"
	"github.com/dmitrijs2005/sharekeeper/internal/server/config"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	msgSharingDisabled        = "Sharing disabled"
	msgSharingDisabledForUser = "Sharing disabled for user"
	msgInvalidReceiver        = "Invalid receiver uid"
	msgInvalidExpiration      = "Invalid expiration date"
	msgInvalidShareType       = "Invalid share type"
	msgSharingNotAllowed      = "Sharing not allowed"
	msgAlreadyShared          = "Password already shared with user"
	msgCSENotSupported        = "CSE type does not support sharing"
	msgAccessDenied           = "Access denied"
)

// Directory looks up share partners in the host user directory.
type Directory interface {
	SearchUsers(ctx context.Context, pattern string, limit int) ([]models.DirectoryUser, error)
	UserGroupIDs(ctx context.Context, userID string) ([]string, error)
	DisplayNamesInGroup(ctx context.Context, groupID, pattern string, limit int) ([]models.DirectoryUser, error)
}

// SharingPolicy answers the host's sharing policy questions. Implementations
// must not cache: a changed setting applies to the next call.
type SharingPolicy interface {
	ShareAPIEnabled(ctx context.Context) (bool, error)
	SharingDisabledForUser(ctx context.Context, userID string) (bool, error)
	ShareWithGroupMembersOnly(ctx context.Context) (bool, error)
	ResharingAllowed(ctx context.Context) (bool, error)
	UserEnumerationAllowed(ctx context.Context) (bool, error)
}

// CreateShareRequest describes a new share of PasswordID with Receiver.
// A nil Expires means the share never expires.
type CreateShareRequest struct {
	PasswordID string
	Receiver   string
	Type       string
	Expires    *time.Time
	Editable   bool
	Shareable  bool
}

// UpdateShareRequest overwrites the owner-controlled attributes of share ID.
type UpdateShareRequest struct {
	ID        string
	Expires   *time.Time
	Editable  bool
	Shareable bool
}

// SharingInfo is what the share dialog needs to render itself.
type SharingInfo struct {
	Enabled   bool     `json:"enabled"`
	Resharing bool     `json:"resharing"`
	Types     []string `json:"types"`
}

// ShareService implements the share API operations.
type ShareService struct {
	db               *sql.DB
	repomanager      repomanager.RepositoryManager
	revisions        *RevisionService
	directory        Directory
	policy           SharingPolicy
	logger           logging.Logger
	now              func() time.Time
	retractHasShares bool
}

func NewShareService(db *sql.DB, m repomanager.RepositoryManager, revisions *RevisionService,
	directory Directory, policy SharingPolicy, cfg *config.Config, logger logging.Logger) *ShareService {
	return &ShareService{
		db:               db,
		repomanager:      m,
		revisions:        revisions,
		directory:        directory,
		policy:           policy,
		logger:           logger,
		now:              time.Now,
		retractHasShares: cfg.RetractHasSharesOnDelete,
	}
}

// createPlan holds every write CreateShare performs, decided before any
// of them is applied.
type createPlan struct {
	password *models.Password
	// upgraded is the re-sealed copy of the current revision, nil when the
	// revision already uses the current scheme.
	upgraded *models.Revision
	share    *models.Share
}

// CreateShare validates req on behalf of userID and persists the share.
// It returns the new share ID.
func (s *ShareService) CreateShare(ctx context.Context, userID string, req CreateShareRequest) (string, error) {
	if err := s.checkSharingEnabled(ctx, userID); err != nil {
		return "", err
	}

	partners, err := s.sharePartners(ctx, userID, "")
	if err != nil {
		return "", err
	}
	if _, ok := partners[req.Receiver]; !ok {
		return "", common.Forbidden(msgInvalidReceiver)
	}

	if err := s.checkExpires(req.Expires); err != nil {
		return "", err
	}

	if req.Type != common.ShareTypeUser {
		return "", common.InvalidInput(msgInvalidShareType)
	}

	plan, err := s.planCreate(ctx, userID, req)
	if err != nil {
		return "", err
	}

	if err := s.applyCreate(ctx, plan); err != nil {
		return "", err
	}

	s.logger.Info(ctx, "share created",
		"share_id", plan.share.ID,
		"password_id", plan.password.ID,
		"receiver", plan.share.Receiver,
		"sse_upgraded", plan.upgraded != nil,
	)

	return plan.share.ID, nil
}

func (s *ShareService) planCreate(ctx context.Context, userID string, req CreateShareRequest) (*createPlan, error) {
	password, err := s.repomanager.Passwords(s.db).FindByID(ctx, req.PasswordID)
	if err != nil {
		return nil, fmt.Errorf("error searching password: %w", err)
	}
	if password.UserID != userID {
		return nil, fmt.Errorf("error searching password: %w", common.ErrorNotFound)
	}

	editable := req.Editable
	if password.IsShared() {
		source, err := s.repomanager.Shares(s.db).FindByID(ctx, password.ShareID)
		if err != nil {
			return nil, fmt.Errorf("error searching originating share: %w", err)
		}

		resharing, err := s.policy.ResharingAllowed(ctx)
		if err != nil {
			return nil, err
		}
		if !source.Shareable || !resharing {
			return nil, common.Forbidden(msgSharingNotAllowed)
		}
		if !source.Editable {
			editable = false
		}
	}

	_, err = s.repomanager.Shares(s.db).FindByPasswordAndReceiver(ctx, password.ID, req.Receiver)
	switch {
	case err == nil:
		return nil, common.Conflict(msgAlreadyShared)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error searching share: %w", err)
	}

	revision, err := s.repomanager.Revisions(s.db).FindByID(ctx, password.Revision)
	if err != nil {
		return nil, fmt.Errorf("error searching revision: %w", err)
	}
	if revision.CseType != cryptox.CSENone {
		return nil, common.Conflict(msgCSENotSupported)
	}

	plan := &createPlan{password: password}

	if revision.SseType != cryptox.SSECurrent {
		plan.upgraded, err = s.revisions.UpgradeSSE(revision)
		if err != nil {
			return nil, err
		}
	}

	plan.share = &models.Share{
		ID:            uuid.NewString(),
		UserID:        userID,
		PasswordID:    password.ID,
		Receiver:      req.Receiver,
		Type:          req.Type,
		Editable:      editable,
		Shareable:     req.Shareable,
		Expires:       req.Expires,
		SourceUpdated: true,
	}

	return plan, nil
}

// applyCreate writes the plan in one transaction: upgraded revision, share,
// then has_shares and the revision pointer when either changes. Only those
// two columns are written, and the pointer only moves off the revision the
// plan was built from.
func (s *ShareService) applyCreate(ctx context.Context, plan *createPlan) error {
	password := plan.password

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		target := password.Revision
		if plan.upgraded != nil {
			if err := s.repomanager.Revisions(tx).Create(ctx, plan.upgraded); err != nil {
				return fmt.Errorf("error creating revision: %w", err)
			}
			target = plan.upgraded.ID
		}

		if err := s.repomanager.Shares(tx).Create(ctx, plan.share); err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.Conflict(msgAlreadyShared)
			}
			return fmt.Errorf("error creating share: %w", err)
		}

		if plan.upgraded == nil && password.HasShares {
			return nil
		}

		if err := s.repomanager.Passwords(tx).MarkShared(ctx, password.ID, password.Revision, target); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}
		return nil
	})
}

// UpdateShare overwrites expiry and permissions of a share owned by userID
// and marks its source side as updated.
func (s *ShareService) UpdateShare(ctx context.Context, userID string, req UpdateShareRequest) (string, error) {
	if err := s.checkSharingEnabled(ctx, userID); err != nil {
		return "", err
	}

	if err := s.checkExpires(req.Expires); err != nil {
		return "", err
	}

	share, err := s.ownedShare(ctx, userID, req.ID)
	if err != nil {
		return "", err
	}

	share.Expires = req.Expires
	share.Editable = req.Editable
	share.Shareable = req.Shareable
	share.SourceUpdated = true

	if err := s.repomanager.Shares(s.db).Update(ctx, share); err != nil {
		return "", fmt.Errorf("error updating share: %w", err)
	}

	s.logger.Info(ctx, "share updated", "share_id", share.ID)

	return share.ID, nil
}

// DeleteShare removes a share owned by userID.
func (s *ShareService) DeleteShare(ctx context.Context, userID, shareID string) (string, error) {
	if err := s.checkSharingEnabled(ctx, userID); err != nil {
		return "", err
	}

	share, err := s.ownedShare(ctx, userID, shareID)
	if err != nil {
		return "", err
	}

	if !s.retractHasShares {
		if err := s.repomanager.Shares(s.db).Delete(ctx, share.ID); err != nil {
			return "", fmt.Errorf("error deleting share: %w", err)
		}
	} else {
		err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return s.deleteAndRetract(ctx, tx, share)
		})
		if err != nil {
			return "", err
		}
	}

	s.logger.Info(ctx, "share deleted", "share_id", share.ID, "password_id", share.PasswordID)

	return share.ID, nil
}

func (s *ShareService) deleteAndRetract(ctx context.Context, tx dbx.DBTX, share *models.Share) error {
	if err := s.repomanager.Shares(tx).Delete(ctx, share.ID); err != nil {
		return fmt.Errorf("error deleting share: %w", err)
	}

	remaining, err := s.repomanager.Shares(tx).CountByPassword(ctx, share.PasswordID)
	if err != nil {
		return fmt.Errorf("error counting shares: %w", err)
	}
	if remaining > 0 {
		return nil
	}

	password, err := s.repomanager.Passwords(tx).FindByID(ctx, share.PasswordID)
	if err != nil {
		return fmt.Errorf("error searching password: %w", err)
	}
	if !password.HasShares {
		return nil
	}

	if err := s.repomanager.Passwords(tx).ClearShared(ctx, password.ID); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}
	return nil
}

// GetSharingInfo reports whether userID may share, whether re-sharing is
// allowed and which share types exist.
func (s *ShareService) GetSharingInfo(ctx context.Context, userID string) (*SharingInfo, error) {
	enabled, err := s.policy.ShareAPIEnabled(ctx)
	if err != nil {
		return nil, err
	}
	if enabled {
		disabled, err := s.policy.SharingDisabledForUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		enabled = !disabled
	}

	resharing, err := s.policy.ResharingAllowed(ctx)
	if err != nil {
		return nil, err
	}

	return &SharingInfo{
		Enabled:   enabled,
		Resharing: resharing,
		Types:     []string{common.ShareTypeUser},
	}, nil
}

// FindSharePartners returns the users userID may share with whose id or
// display name contains pattern, keyed by user ID. The result is empty
// when the host does not allow user enumeration.
func (s *ShareService) FindSharePartners(ctx context.Context, userID, pattern string) (map[string]string, error) {
	if err := s.checkSharingEnabled(ctx, userID); err != nil {
		return nil, err
	}

	enumeration, err := s.policy.UserEnumerationAllowed(ctx)
	if err != nil {
		return nil, err
	}
	if !enumeration {
		return map[string]string{}, nil
	}

	return s.sharePartners(ctx, userID, pattern)
}

// sharePartners collects candidate receivers, never including userID.
// In the group-restricted mode the limit is checked between groups only,
// so the result may exceed it by up to one group's worth.
func (s *ShareService) sharePartners(ctx context.Context, userID, pattern string) (map[string]string, error) {
	groupsOnly, err := s.policy.ShareWithGroupMembersOnly(ctx)
	if err != nil {
		return nil, err
	}

	partners := make(map[string]string)
	add := func(users []models.DirectoryUser) {
		for _, u := range users {
			if u.ID == userID {
				continue
			}
			partners[u.ID] = u.DisplayName
		}
	}

	if !groupsOnly {
		users, err := s.directory.SearchUsers(ctx, pattern, common.UserSearchLimit)
		if err != nil {
			return nil, fmt.Errorf("error searching users: %w", err)
		}
		add(users)
		return partners, nil
	}

	groupIDs, err := s.directory.UserGroupIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error searching groups: %w", err)
	}
	for _, groupID := range groupIDs {
		users, err := s.directory.DisplayNamesInGroup(ctx, groupID, pattern, common.UserSearchLimit)
		if err != nil {
			return nil, fmt.Errorf("error searching group %s: %w", groupID, err)
		}
		add(users)
		if len(partners) >= common.UserSearchLimit {
			break
		}
	}

	return partners, nil
}

func (s *ShareService) checkSharingEnabled(ctx context.Context, userID string) error {
	enabled, err := s.policy.ShareAPIEnabled(ctx)
	if err != nil {
		return err
	}
	if !enabled {
		return common.Forbidden(msgSharingDisabled)
	}

	disabled, err := s.policy.SharingDisabledForUser(ctx, userID)
	if err != nil {
		return err
	}
	if disabled {
		return common.Forbidden(msgSharingDisabledForUser)
	}
	return nil
}

func (s *ShareService) checkExpires(expires *time.Time) error {
	if expires != nil && !expires.After(s.now()) {
		return common.InvalidInput(msgInvalidExpiration)
	}
	return nil
}

func (s *ShareService) ownedShare(ctx context.Context, userID, shareID string) (*models.Share, error) {
	share, err := s.repomanager.Shares(s.db).FindByID(ctx, shareID)
	if err != nil {
		return nil, fmt.Errorf("error searching share: %w", err)
	}
	if share.UserID != userID {
		return nil, common.Forbidden(msgAccessDenied)
	}
	return share, nil
}
