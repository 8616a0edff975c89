package auth

import (
	"context"
	"testing"

	"pm-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupAuthDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))
	hash, err := HashPassword("s3cret!pw")
	require.NoError(t, err)
	require.NoError(t, db.Create(&domain.User{
		Fullname: "Pat Lee", Email: "pat@example.com", PasswordHash: hash, OrgRole: "po",
	}).Error)
	return db
}

func TestLoginUser_MissingFields(t *testing.T) {
	db := setupAuthDB(t)
	_, err := LoginUser(db, LoginInput{Email: "pat@example.com"})
	assert.Equal(t, ErrEmailPasswordRequired, err)
}

func TestLoginUser_UnknownEmail(t *testing.T) {
	db := setupAuthDB(t)
	_, err := LoginUser(db, LoginInput{Email: "nobody@example.com", Password: "x"})
	assert.Equal(t, ErrInvalidEmail, err)
}

func TestLoginUser_WrongPassword(t *testing.T) {
	db := setupAuthDB(t)
	_, err := LoginUser(db, LoginInput{Email: "pat@example.com", Password: "wrong"})
	assert.Equal(t, ErrIncorrectPassword, err)
}

func TestGormUserFinder_Success(t *testing.T) {
	db := setupAuthDB(t)
	f := &GormUserFinder{DB: db}
	u, err := f.FindByEmailAndPassword(context.Background(), "PAT@example.com", "s3cret!pw")
	require.NoError(t, err)
	assert.Equal(t, "po", u.OrgRole)
}
