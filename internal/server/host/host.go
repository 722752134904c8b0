// Package host adapts the platform-owned services the share API depends on:
// the user/group directory, the key/value app configuration and the sharing
// policy derived from it.
//
// Every call reads the database; nothing is cached, so a policy change is
// visible on the next request.
package host

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/server/models"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/repomanager"
)

// Configuration keys read from the "core" app.
const (
	AppCore = "core"

	KeyShareAPIEnabled           = "shareapi_enabled"
	KeyExcludeGroups             = "shareapi_exclude_groups"
	KeyExcludeGroupsList         = "shareapi_exclude_groups_list"
	KeyOnlyShareWithGroupMembers = "shareapi_only_share_with_group_members"
	KeyAllowResharing            = "shareapi_allow_resharing"
	KeyAllowUserEnumeration      = "shareapi_allow_share_dialog_user_enumeration"
)

// Directory is the host user directory.
type Directory struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewDirectory(db *sql.DB, rm repomanager.RepositoryManager) *Directory {
	return &Directory{db: db, repomanager: rm}
}

func (d *Directory) SearchUsers(ctx context.Context, pattern string, limit int) ([]models.DirectoryUser, error) {
	return d.repomanager.Users(d.db).Search(ctx, pattern, limit)
}

func (d *Directory) UserGroupIDs(ctx context.Context, userID string) ([]string, error) {
	return d.repomanager.Groups(d.db).GroupIDsForUser(ctx, userID)
}

func (d *Directory) DisplayNamesInGroup(ctx context.Context, groupID, pattern string, limit int) ([]models.DirectoryUser, error) {
	return d.repomanager.Groups(d.db).SearchMembers(ctx, groupID, pattern, limit)
}

// AppConfig is the host key/value configuration store.
type AppConfig struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewAppConfig(db *sql.DB, rm repomanager.RepositoryManager) *AppConfig {
	return &AppConfig{db: db, repomanager: rm}
}

// GetAppValue returns the stored value, or def when the key is not set.
func (c *AppConfig) GetAppValue(ctx context.Context, app, key, def string) (string, error) {
	v, err := c.repomanager.Settings(c.db).Get(ctx, app, key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return def, nil
		}
		return "", err
	}
	return v, nil
}

// ValueReader is the part of AppConfig the policy needs.
type ValueReader interface {
	GetAppValue(ctx context.Context, app, key, def string) (string, error)
}

// GroupLookup is the part of Directory the policy needs.
type GroupLookup interface {
	UserGroupIDs(ctx context.Context, userID string) ([]string, error)
}

// Policy answers sharing policy questions from the app configuration.
type Policy struct {
	config ValueReader
	groups GroupLookup
}

func NewPolicy(config ValueReader, groups GroupLookup) *Policy {
	return &Policy{config: config, groups: groups}
}

func (p *Policy) flag(ctx context.Context, key, def string) (bool, error) {
	v, err := p.config.GetAppValue(ctx, AppCore, key, def)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	return v == "yes", nil
}

func (p *Policy) ShareAPIEnabled(ctx context.Context) (bool, error) {
	return p.flag(ctx, KeyShareAPIEnabled, "yes")
}

// SharingDisabledForUser is true when group exclusion is on and the user
// belongs to at least one excluded group.
func (p *Policy) SharingDisabledForUser(ctx context.Context, userID string) (bool, error) {
	exclude, err := p.flag(ctx, KeyExcludeGroups, "no")
	if err != nil || !exclude {
		return false, err
	}

	raw, err := p.config.GetAppValue(ctx, AppCore, KeyExcludeGroupsList, "[]")
	if err != nil {
		return false, fmt.Errorf("read %s: %w", KeyExcludeGroupsList, err)
	}
	var excluded []string
	if err := json.Unmarshal([]byte(raw), &excluded); err != nil {
		return false, fmt.Errorf("parse %s: %w", KeyExcludeGroupsList, err)
	}
	if len(excluded) == 0 {
		return false, nil
	}

	userGroups, err := p.groups.UserGroupIDs(ctx, userID)
	if err != nil {
		return false, err
	}
	set := make(map[string]struct{}, len(excluded))
	for _, g := range excluded {
		set[g] = struct{}{}
	}
	for _, g := range userGroups {
		if _, ok := set[g]; ok {
			return true, nil
		}
	}
	return false, nil
}

func (p *Policy) ShareWithGroupMembersOnly(ctx context.Context) (bool, error) {
	return p.flag(ctx, KeyOnlyShareWithGroupMembers, "no")
}

func (p *Policy) ResharingAllowed(ctx context.Context) (bool, error) {
	return p.flag(ctx, KeyAllowResharing, "yes")
}

func (p *Policy) UserEnumerationAllowed(ctx context.Context) (bool, error) {
	return p.flag(ctx, KeyAllowUserEnumeration, "no")
}
