package access

import (
	"context"
	"errors"
	"testing"

	"pm-backend/internal/application/identity"
	policies "pm-backend/internal/application/policies/workspace"
	"pm-backend/internal/application/workspaces"
	"pm-backend/internal/domain"
	"pm-backend/internal/pkg/constants"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc   *Service
	db    *gorm.DB
	ws    *domain.Workspace
	owner domain.User
}

func setupAccess(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.RolePermission{},
		&domain.Workspace{}, &domain.WorkspaceMember{}, &domain.MemberAudit{}))

	ids := &identity.Service{DB: db}
	wss := &workspaces.Service{DB: db}
	owner := createUser(t, db, "owner@x.com", "client")
	ws, err := wss.CreateWorkspace(context.Background(), owner.UserID, workspaces.CreateWorkspaceInput{Name: "CRM", Key: "CRM"})
	require.NoError(t, err)
	return &fixture{svc: &Service{Identity: ids, Memberships: wss}, db: db, ws: ws, owner: owner}
}

func createUser(t *testing.T, db *gorm.DB, email, role string) domain.User {
	u := domain.User{Fullname: "U", Email: email, PasswordHash: "x", OrgRole: role}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func addMember(t *testing.T, db *gorm.DB, ws uuid.UUID, u uuid.UUID, role constants.WorkspaceRole) {
	require.NoError(t, db.Create(&domain.WorkspaceMember{WorkspaceID: ws, UserID: u, Role: string(role)}).Error)
}

func grant(t *testing.T, db *gorm.DB, role, module, action string) {
	_, _, err := (&identity.Service{DB: db}).GrantPermission(context.Background(), identity.GrantInput{Role: role, Module: module, Action: action})
	require.NoError(t, err)
}

func TestCheck_OrgAdminOverridesStoredViewer(t *testing.T) {
	f := setupAccess(t)
	admin := createUser(t, f.db, "admin@x.com", "admin")
	addMember(t, f.db, f.ws.WorkspaceID, admin.UserID, constants.WorkspaceRoleViewer)

	d, err := f.svc.Check(context.Background(), admin.UserID, &f.ws.WorkspaceID, constants.ModuleProjects, constants.ActionDelete)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, policies.ReasonOrgAdmin, d.Reason)
	assert.Equal(t, constants.WorkspaceRoleViewer, d.StoredRole)
	assert.Equal(t, constants.WorkspaceRoleAdmin, d.EffectiveRole)
}

func TestCheck_ManagerGrantRestrictedByWorkspaceViewer(t *testing.T) {
	f := setupAccess(t)
	mgr := createUser(t, f.db, "mgr@x.com", "manager")
	addMember(t, f.db, f.ws.WorkspaceID, mgr.UserID, constants.WorkspaceRoleViewer)
	grant(t, f.db, "manager", constants.ModuleProjects, constants.ActionEdit)
	grant(t, f.db, "manager", constants.ModuleProjects, constants.ActionView)
	ctx := context.Background()

	d, err := f.svc.Check(ctx, mgr.UserID, &f.ws.WorkspaceID, constants.ModuleProjects, constants.ActionEdit)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, policies.ReasonWorkspaceViewerRestriction, d.Reason)

	ok, err := f.svc.Allowed(ctx, mgr.UserID, &f.ws.WorkspaceID, constants.ModuleProjects, constants.ActionView)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheck_ManagerWithoutMembershipMapsToAdmin(t *testing.T) {
	f := setupAccess(t)
	mgr := createUser(t, f.db, "mgr@x.com", "manager")
	d, err := f.svc.Check(context.Background(), mgr.UserID, &f.ws.WorkspaceID, constants.ModuleSprints, constants.ActionDelete)
	require.NoError(t, err)
	assert.Equal(t, constants.WorkspaceRoleNone, d.StoredRole)
	assert.Equal(t, constants.WorkspaceRoleAdmin, d.EffectiveRole)
	assert.True(t, d.Allowed)
}

func TestCheck_OwnerAndMemberFallback(t *testing.T) {
	f := setupAccess(t)
	ctx := context.Background()
	ok, err := f.svc.Allowed(ctx, f.owner.UserID, &f.ws.WorkspaceID, constants.ModuleProjects, constants.ActionDelete)
	require.NoError(t, err)
	assert.True(t, ok)

	member := createUser(t, f.db, "m@x.com", "client")
	addMember(t, f.db, f.ws.WorkspaceID, member.UserID, constants.WorkspaceRoleMember)
	ok, err = f.svc.Allowed(ctx, member.UserID, &f.ws.WorkspaceID, constants.ModuleProjects, constants.ActionDelete)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = f.svc.Allowed(ctx, member.UserID, &f.ws.WorkspaceID, constants.ModuleProjects, constants.ActionEdit)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheck_NoWorkspace_DefaultDeny(t *testing.T) {
	f := setupAccess(t)
	client := createUser(t, f.db, "c@x.com", "client")
	d, err := f.svc.Check(context.Background(), client.UserID, nil, constants.ModuleProjects, constants.ActionCreate)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, policies.ReasonDefaultDeny, d.Reason)
	assert.Equal(t, constants.WorkspaceRoleNone, d.EffectiveRole)
}

func TestCheck_Errors(t *testing.T) {
	f := setupAccess(t)
	ctx := context.Background()
	_, err := f.svc.Check(ctx, uuid.New(), nil, constants.ModuleProjects, constants.ActionView)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)

	missing := uuid.New()
	_, err = f.svc.Check(ctx, f.owner.UserID, &missing, constants.ModuleProjects, constants.ActionView)
	assert.ErrorIs(t, err, workspaces.ErrWorkspaceNotFound)
}

type failingLoader struct{}

func (failingLoader) LoadActor(ctx context.Context, userID uuid.UUID) (*policies.Actor, error) {
	return nil, errors.New("db down")
}

func TestAllowed_PropagatesStoreError(t *testing.T) {
	svc := &Service{Identity: failingLoader{}}
	ok, err := svc.Allowed(context.Background(), uuid.New(), nil, constants.ModuleProjects, constants.ActionView)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestEffectiveRole(t *testing.T) {
	f := setupAccess(t)
	po := createUser(t, f.db, "po@x.com", "po")
	addMember(t, f.db, f.ws.WorkspaceID, po.UserID, constants.WorkspaceRoleMember)

	v, err := f.svc.EffectiveRole(context.Background(), po.UserID, f.ws.WorkspaceID)
	require.NoError(t, err)
	assert.Equal(t, constants.OrgRolePO, v.OrgRole)
	assert.Equal(t, constants.WorkspaceRoleMember, v.StoredRole)
	assert.Equal(t, constants.WorkspaceRoleAdmin, v.EffectiveRole)

	v, err = f.svc.EffectiveRole(context.Background(), f.owner.UserID, f.ws.WorkspaceID)
	require.NoError(t, err)
	assert.Equal(t, constants.WorkspaceRoleOwner, v.EffectiveRole)
}
