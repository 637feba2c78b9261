package controllers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteen-app/middlewares"
	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/repository"
	"github.com/yeremiapane/canteen-app/session"
	"github.com/yeremiapane/canteen-app/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthController struct {
	DB         *gorm.DB
	users      *repository.UserRepository
	serviceKey string
}

func NewAuthController(db *gorm.DB, serviceKey string) *AuthController {
	return &AuthController{DB: db, users: repository.NewUserRepository(db), serviceKey: serviceKey}
}

func sessionOf(u *models.User) session.Session {
	emailName := u.EmailName
	if emailName == "" {
		emailName, _, _ = strings.Cut(u.Email, "@")
	}
	return session.Session{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		EmailName: emailName,
		Role:      u.Role,
		Phone:     u.Phone,
	}
}

// sessionView adds the avatar initials to the session payload.
func sessionView(s *session.Session) gin.H {
	return gin.H{
		"id":         s.ID,
		"email":      s.Email,
		"name":       s.Name,
		"email_name": s.EmailName,
		"role":       s.Role,
		"phone":      s.Phone,
		"initials":   s.Initials(),
		"is_staff":   s.IsStaff(),
	}
}

// Register creates a customer account. Staff and admin accounts need the
// service key.
func (ac *AuthController) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
		Phone    string `json:"phone"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	switch role {
	case "", models.RoleCustomer:
		role = models.RoleCustomer
	case models.RoleStaff, models.RoleAdmin:
		key := c.GetHeader(middlewares.APIKeyHeader)
		if ac.serviceKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(ac.serviceKey)) != 1 {
			utils.RespondError(c, http.StatusForbidden, errors.New("staff accounts require the service key"))
			return
		}
	default:
		utils.RespondError(c, http.StatusBadRequest, errors.New("unknown role"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user := models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Phone:    req.Phone,
		Password: string(hashed),
		Role:     role,
	}
	user.EmailName, _, _ = strings.Cut(email, "@")

	if existing, err := ac.users.GetByEmail(c.Request.Context(), email); err == nil && existing != nil {
		utils.RespondError(c, http.StatusConflict, errors.New("email already registered"))
		return
	}
	if err := ac.users.Create(c.Request.Context(), &user); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("New user registered: %s (role=%s)", user.Email, user.Role)
	utils.RespondJSON(c, http.StatusCreated, "User registered", gin.H{
		"user_id": user.ID,
	})
}

// Login checks the password and returns a JWT with the session inside.
func (ac *AuthController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := ac.users.GetByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}

	sess := sessionOf(user)
	token, err := utils.GenerateToken(sess)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Login successful for user: %s, role: %s", user.Email, user.Role)
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token":   token,
		"session": sessionView(&sess),
	})
}

// Logout revokes the presented token.
func (ac *AuthController) Logout(c *gin.Context) {
	token, _ := c.Get(middlewares.ContextToken)
	if s, ok := token.(string); ok && s != "" {
		utils.BlacklistToken(s)
	}
	utils.RespondJSON(c, http.StatusOK, "Logged out", nil)
}

// Session returns the session carried by the token.
func (ac *AuthController) Session(c *gin.Context) {
	sess, err := middlewares.CurrentSession(c)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session", sessionView(sess))
}
