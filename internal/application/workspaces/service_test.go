package workspaces

import (
	"context"
	"testing"

	policies "pm-backend/internal/application/policies/workspace"
	"pm-backend/internal/domain"
	"pm-backend/internal/pkg/constants"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupWorkspaces(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Workspace{}, &domain.WorkspaceMember{}, &domain.MemberAudit{}))
	return &Service{DB: db}
}

func createUser(t *testing.T, db *gorm.DB, email string) domain.User {
	u := domain.User{Fullname: "U " + email, Email: email, PasswordHash: "x", OrgRole: "client"}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func TestCreateWorkspace_CreatorBecomesOwner(t *testing.T) {
	svc := setupWorkspaces(t)
	ctx := context.Background()
	creator := createUser(t, svc.DB, "c@x.com")

	ws, err := svc.CreateWorkspace(ctx, creator.UserID, CreateWorkspaceInput{
		Name: " Client Portal ", Key: "cp", Settings: map[string]interface{}{"sprint_length_days": 14},
	})
	require.NoError(t, err)
	assert.Equal(t, "Client Portal", ws.Name)
	assert.Equal(t, "CP", ws.Key)

	role, err := svc.GetMemberRole(ctx, ws.WorkspaceID, creator.UserID)
	require.NoError(t, err)
	assert.Equal(t, constants.WorkspaceRoleOwner, role)

	_, err = svc.CreateWorkspace(ctx, creator.UserID, CreateWorkspaceInput{Name: "Other", Key: "CP"})
	assert.ErrorIs(t, err, ErrKeyTaken)
	_, err = svc.CreateWorkspace(ctx, creator.UserID, CreateWorkspaceInput{Name: "Other", Key: "c-p"})
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = svc.CreateWorkspace(ctx, creator.UserID, CreateWorkspaceInput{Name: "  ", Key: "OK"})
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestGetMemberRole_Absent(t *testing.T) {
	svc := setupWorkspaces(t)
	role, err := svc.GetMemberRole(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, constants.WorkspaceRoleNone, role)
}

func TestGetMemberRole_UnrecognizedStoredRole(t *testing.T) {
	svc := setupWorkspaces(t)
	ws, u := uuid.New(), uuid.New()
	require.NoError(t, svc.DB.Create(&domain.WorkspaceMember{WorkspaceID: ws, UserID: u, Role: "guest"}).Error)
	role, err := svc.GetMemberRole(context.Background(), ws, u)
	require.NoError(t, err)
	assert.Equal(t, constants.WorkspaceRoleNone, role)
}

func TestMemberLifecycle(t *testing.T) {
	svc := setupWorkspaces(t)
	ctx := context.Background()
	owner := createUser(t, svc.DB, "o@x.com")
	dev := createUser(t, svc.DB, "d@x.com")
	ws, err := svc.CreateWorkspace(ctx, owner.UserID, CreateWorkspaceInput{Name: "Billing", Key: "BILL"})
	require.NoError(t, err)

	in := MemberChangeInput{
		WorkspaceID: ws.WorkspaceID, ActorID: owner.UserID, ActorRole: constants.WorkspaceRoleOwner,
		TargetUserID: dev.UserID, Role: "member",
	}
	_, err = svc.AddMember(ctx, in)
	require.NoError(t, err)

	members, err := svc.ListMembers(ctx, ws.WorkspaceID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, owner.UserID, members[0].UserID)
	assert.Equal(t, "owner", members[0].Role)
	assert.Equal(t, "d@x.com", members[1].Email)

	in.Role = "viewer"
	m, err := svc.UpdateMemberRole(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "viewer", m.Role)
	role, err := svc.GetMemberRole(ctx, ws.WorkspaceID, dev.UserID)
	require.NoError(t, err)
	assert.Equal(t, constants.WorkspaceRoleViewer, role)

	require.NoError(t, svc.RemoveMember(ctx, in))
	role, err = svc.GetMemberRole(ctx, ws.WorkspaceID, dev.UserID)
	require.NoError(t, err)
	assert.Equal(t, constants.WorkspaceRoleNone, role)

	entries, err := svc.ListAudit(ctx, ws.WorkspaceID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	events := []string{entries[0].Event, entries[1].Event, entries[2].Event}
	assert.ElementsMatch(t, []string{domain.MemberEventAdded, domain.MemberEventRoleChanged, domain.MemberEventRemoved}, events)
}

func TestOwnerMembershipIsProtected(t *testing.T) {
	svc := setupWorkspaces(t)
	ctx := context.Background()
	owner := createUser(t, svc.DB, "o@x.com")
	admin := createUser(t, svc.DB, "a@x.com")
	ws, err := svc.CreateWorkspace(ctx, owner.UserID, CreateWorkspaceInput{Name: "Ops", Key: "OPS"})
	require.NoError(t, err)

	_, err = svc.UpdateMemberRole(ctx, MemberChangeInput{
		WorkspaceID: ws.WorkspaceID, ActorID: admin.UserID, ActorRole: constants.WorkspaceRoleAdmin,
		TargetUserID: owner.UserID, Role: "viewer",
	})
	assert.ErrorIs(t, err, policies.ErrWorkspaceOwnerCannotBeChanged)

	err = svc.RemoveMember(ctx, MemberChangeInput{
		WorkspaceID: ws.WorkspaceID, ActorID: admin.UserID, ActorRole: constants.WorkspaceRoleAdmin,
		TargetUserID: owner.UserID,
	})
	assert.ErrorIs(t, err, policies.ErrWorkspaceOwnerCannotBeChanged)

	_, err = svc.AddMember(ctx, MemberChangeInput{
		WorkspaceID: ws.WorkspaceID, ActorID: owner.UserID, ActorRole: constants.WorkspaceRoleOwner,
		TargetUserID: admin.UserID, Role: "owner",
	})
	assert.ErrorIs(t, err, policies.ErrOwnerRoleNotAssignable)
}

func TestListForUser(t *testing.T) {
	svc := setupWorkspaces(t)
	ctx := context.Background()
	a := createUser(t, svc.DB, "a@x.com")
	b := createUser(t, svc.DB, "b@x.com")
	_, err := svc.CreateWorkspace(ctx, a.UserID, CreateWorkspaceInput{Name: "A", Key: "AA"})
	require.NoError(t, err)
	_, err = svc.CreateWorkspace(ctx, b.UserID, CreateWorkspaceInput{Name: "B", Key: "BB"})
	require.NoError(t, err)

	mine, err := svc.ListForUser(ctx, a.UserID, constants.OrgRoleManager, false)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "AA", mine[0].Key)
	assert.Equal(t, "owner", mine[0].StoredRole)
	assert.Equal(t, "owner", mine[0].MyRole)

	all, err := svc.ListForUser(ctx, a.UserID, constants.OrgRolePO, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	byKey := map[string]WorkspaceWithRole{}
	for _, w := range all {
		byKey[w.Key] = w
	}
	// po is admin everywhere, including the workspace it never joined
	assert.Equal(t, "owner", byKey["AA"].StoredRole)
	assert.Equal(t, "admin", byKey["AA"].MyRole)
	assert.Equal(t, "", byKey["BB"].StoredRole)
	assert.Equal(t, "admin", byKey["BB"].MyRole)

	none, err := svc.ListForUser(ctx, uuid.New(), constants.OrgRoleViewer, false)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpdateAndDeleteWorkspace(t *testing.T) {
	svc := setupWorkspaces(t)
	ctx := context.Background()
	a := createUser(t, svc.DB, "a@x.com")
	ws, err := svc.CreateWorkspace(ctx, a.UserID, CreateWorkspaceInput{Name: "A", Key: "AA"})
	require.NoError(t, err)

	_, err = svc.UpdateWorkspace(ctx, ws.WorkspaceID, map[string]interface{}{})
	assert.ErrorIs(t, err, ErrNoUpdateFields)
	_, err = svc.UpdateWorkspace(ctx, ws.WorkspaceID, map[string]interface{}{"key": "ZZ"})
	assert.ErrorIs(t, err, ErrNoValidUpdateFields)

	updated, err := svc.UpdateWorkspace(ctx, ws.WorkspaceID, map[string]interface{}{"name": "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "AA", updated.Key)

	require.NoError(t, svc.DeleteWorkspace(ctx, ws.WorkspaceID))
	_, err = svc.GetWorkspace(ctx, ws.WorkspaceID)
	assert.ErrorIs(t, err, ErrWorkspaceNotFound)
	role, err := svc.GetMemberRole(ctx, ws.WorkspaceID, a.UserID)
	require.NoError(t, err)
	assert.Equal(t, constants.WorkspaceRoleNone, role)
	assert.ErrorIs(t, svc.DeleteWorkspace(ctx, ws.WorkspaceID), ErrWorkspaceNotFound)
}
