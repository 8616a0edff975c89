package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"pm-backend/internal/application/identity"
	"pm-backend/internal/domain"
	"pm-backend/internal/middleware"
	"pm-backend/internal/pkg/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupUserTest(t *testing.T) (*Handlers, *gorm.DB, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.RolePermission{}))
	return &Handlers{Identity: &identity.Service{DB: db, Rdb: rdb}}, db, rdb
}

func createUser(t *testing.T, db *gorm.DB, email, role string) domain.User {
	u := domain.User{Fullname: "U", Email: email, PasswordHash: "x", OrgRole: role}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func appAs(h *Handlers, userID uuid.UUID, role string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		middleware.SetUser(c, &middleware.SessionUser{UserID: userID.String(), OrgRole: role})
		return c.Next()
	})
	app.Patch("/update-role", h.UpdateRole)
	return app
}

func patchRole(t *testing.T, app *fiber.App, userID, role string) int {
	body, _ := json.Marshal(map[string]string{"user_id": userID, "role": role})
	req := httptest.NewRequest("PATCH", "/update-role", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestUpdateRole_AdminPromotesAndSessionsAreDestroyed(t *testing.T) {
	h, db, rdb := setupUserTest(t)
	admin := createUser(t, db, "a@test.com", "admin")
	target := createUser(t, db, "v@test.com", "viewer")
	ctx := context.Background()
	require.NoError(t, rdb.Set(ctx, constants.SessionRedisPrefix+"sid1", "{}", 0).Err())
	require.NoError(t, rdb.SAdd(ctx, constants.UserSessionsPrefix+target.UserID.String(), "sid1").Err())

	status := patchRole(t, appAs(h, admin.UserID, "admin"), target.UserID.String(), "manager")
	assert.Equal(t, fiber.StatusOK, status)

	var got domain.User
	require.NoError(t, db.First(&got, "user_id = ?", target.UserID).Error)
	assert.Equal(t, "manager", got.OrgRole)
	n, _ := rdb.Exists(ctx, constants.SessionRedisPrefix+"sid1").Result()
	assert.Equal(t, int64(0), n)
}

func TestUpdateRole_StaleSessionRoleIsNotTrusted(t *testing.T) {
	h, db, _ := setupUserTest(t)
	demoted := createUser(t, db, "d@test.com", "viewer")
	target := createUser(t, db, "t@test.com", "viewer")

	// session still says admin, stored role is viewer
	status := patchRole(t, appAs(h, demoted.UserID, "admin"), target.UserID.String(), "manager")
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestUpdateRole_AdminRoleNameCanAssign(t *testing.T) {
	h, db, _ := setupUserTest(t)
	createUser(t, db, "a@test.com", "admin")
	lead := domain.User{Fullname: "L", Email: "l@test.com", PasswordHash: "x", OrgRole: "manager",
		RoleNames: datatypes.JSONSlice[string]{"admin"}}
	require.NoError(t, db.Create(&lead).Error)
	target := createUser(t, db, "t@test.com", "viewer")

	status := patchRole(t, appAs(h, lead.UserID, "manager"), target.UserID.String(), "accountant")
	assert.Equal(t, fiber.StatusOK, status)

	var got domain.User
	require.NoError(t, db.First(&got, "user_id = ?", target.UserID).Error)
	assert.Equal(t, "accountant", got.OrgRole)
}

func TestUpdateRole_Validation(t *testing.T) {
	h, db, _ := setupUserTest(t)
	admin := createUser(t, db, "a@test.com", "admin")
	app := appAs(h, admin.UserID, "admin")

	assert.Equal(t, fiber.StatusBadRequest, patchRole(t, app, "", "manager"))
	assert.Equal(t, fiber.StatusBadRequest, patchRole(t, app, "not-a-uuid", "manager"))
	assert.Equal(t, fiber.StatusBadRequest, patchRole(t, app, uuid.NewString(), "superuser"))
	assert.Equal(t, fiber.StatusNotFound, patchRole(t, app, uuid.NewString(), "manager"))
	assert.Equal(t, fiber.StatusBadRequest, patchRole(t, app, admin.UserID.String(), "viewer"))
}

func TestUpdateRole_LastAdminIsProtected(t *testing.T) {
	h, db, _ := setupUserTest(t)
	admin := createUser(t, db, "a@test.com", "admin")
	other := createUser(t, db, "b@test.com", "admin")
	require.NoError(t, db.Model(&domain.User{}).Where("user_id = ?", admin.UserID).Update("org_role", "admin").Error)

	// two admins: demoting one is fine
	assert.Equal(t, fiber.StatusOK, patchRole(t, appAs(h, admin.UserID, "admin"), other.UserID.String(), "po"))
	// other is now po and cannot act
	assert.Equal(t, fiber.StatusForbidden, patchRole(t, appAs(h, other.UserID, "po"), admin.UserID.String(), "po"))
}
