package controllers

import (
	"context"
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"bus_tracker/internal/apperr"
	"bus_tracker/internal/models"
)

var mobilePattern = regexp.MustCompile(`^\d{10}$`)

// UserStore is the user lookup used by login and profile.
type UserStore interface {
	FindUserByMobile(ctx context.Context, mobile string) (models.User, error)
	FindUser(ctx context.Context, id uint) (models.User, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	GenerateToken(userID uint) (string, error)
}

type AuthController struct {
	users  UserStore
	tokens TokenIssuer
}

func NewAuthController(users UserStore, tokens TokenIssuer) *AuthController {
	return &AuthController{users: users, tokens: tokens}
}

// Login exchanges mobile number and password for a bearer token.
func (a *AuthController) Login(c *gin.Context) {
	var body struct {
		MobileNo string `json:"mobile_no" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide mobile number and password"})
		return
	}
	if !mobilePattern.MatchString(body.MobileNo) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Mobile number must be 10 digits"})
		return
	}

	user, err := a.users.FindUserByMobile(c.Request.Context(), body.MobileNo)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		respondError(c, "login", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
		logrus.WithField("user_id", user.ID).Warn("login: password mismatch")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := a.tokens.GenerateToken(user.ID)
	if err != nil {
		respondError(c, "login: sign token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// Profile returns the caller's account without the password hash.
func (a *AuthController) Profile(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	user, err := a.users.FindUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "profile", err)
		return
	}
	c.JSON(http.StatusOK, user)
}
