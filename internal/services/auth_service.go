package services

import (
	cryptorand "crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/votearena/backend/internal/models"
	"golang.org/x/crypto/argon2"
)

// Initial wallet balance granted on registration, by role.
const voterStartingBalance = 1000

type AuthService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *validator.Validate
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"` // User email
	Password string `json:"password" validate:"required,min=6" example:"password123"`   // User password
}

// RegisterRequest represents the registration request payload
// @Description Registration request structure
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email" example:"user@example.com"`       // User email address
	Password string `json:"password" validate:"required,min=6" example:"password123"`         // User password
	Username string `json:"username" validate:"required,min=2,max=30" example:"ada"`          // Unique username
	FullName string `json:"fullName" validate:"required,min=2" example:"Ada Obi"`             // Display name
	Role     string `json:"role" validate:"required,oneof=voter candidate" example:"voter"`   // Account role
	Bio      string `json:"bio" validate:"max=500"`                                           // Optional bio
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token string      `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."` // JWT token
	User  models.User `json:"user"`                                                    // User information
}

func NewAuthService(db *sql.DB, redisClient *redis.Client) *AuthService {
	return &AuthService{
		db:        db,
		redis:     redisClient,
		validator: validator.New(),
	}
}

func (s *AuthService) sendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	SendErrorResponse(w, message, statusCode, validationErr)
}

// Register handles user registration
// @Summary Register a new user
// @Description Register a new voter or candidate account; voters start with a seeded wallet balance
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 200 {object} AuthResponse "Registration successful"
// @Failure 400 {string} string "Invalid request"
// @Failure 409 {string} string "Email already exists"
// @Failure 500 {string} string "Internal server error"
// @Router /auth/register [post]
func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Registration attempt from IP: %s", r.RemoteAddr)

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req RegisterRequest
	if err := dec.Decode(&req); err != nil {
		log.Printf("[AUTH] Registration failed - invalid request: %v", err)
		s.sendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		log.Printf("[AUTH] Multiple JSON objects detected")
		s.sendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		log.Printf("[AUTH] Registration validation failed: %v", err)
		s.sendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	log.Printf("[AUTH] Registration request for email: %s", req.Email)

	hashedPassword, err := hashPassword(req.Password)
	if err != nil {
		log.Printf("[AUTH] Password hashing failed for %s: %v", req.Email, err)
		s.sendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return
	}

	startingBalance := int64(0)
	if req.Role == models.RoleVoter {
		startingBalance = voterStartingBalance
	}

	// Start transaction
	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("[AUTH] Transaction start failed for %s: %v", req.Email, err)
		s.sendErrorResponse(w, "Failed to create user", http.StatusInternalServerError, nil)
		return
	}
	defer tx.Rollback()

	var userID int
	err = tx.QueryRow(`
		INSERT INTO users (email, username, full_name, password, role, bio, total_votes_given, total_votes_received)
		VALUES ($1, $2, $3, $4, $5, $6, 0, 0) RETURNING id`,
		strings.ToLower(req.Email), req.Username, req.FullName, hashedPassword, req.Role, req.Bio).Scan(&userID)
	if err != nil {
		log.Printf("[AUTH] User creation failed for %s: %v", req.Email, err)
		s.sendErrorResponse(w, "Email Already Exists", http.StatusConflict, nil)
		return
	}

	// Create wallet seeded with the role's starting balance
	_, err = tx.Exec(`
		INSERT INTO wallets (user_id, balance, version, updated_at) VALUES ($1, $2, $3, NOW())`,
		userID, startingBalance, 1)
	if err != nil {
		log.Printf("[AUTH] Wallet creation failed for %s: %v", req.Email, err)
		s.sendErrorResponse(w, "Failed to create wallet", http.StatusInternalServerError, nil)
		return
	}

	// Commit transaction
	if err = tx.Commit(); err != nil {
		log.Printf("[AUTH] Transaction commit failed for %s: %v", req.Email, err)
		s.sendErrorResponse(w, "Failed to create user", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] User created successfully - ID: %d, Email: %s", userID, req.Email)

	token, err := generateJWT(userID, req.Role)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for user %d: %v", userID, err)
		s.sendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	response := AuthResponse{
		Token: token,
		User: models.User{
			ID:       userID,
			Email:    strings.ToLower(req.Email),
			Username: req.Username,
			FullName: req.FullName,
			Role:     req.Role,
			Bio:      req.Bio,
		},
	}

	log.Printf("[AUTH] Registration successful for user %d", userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// Login handles user authentication
// @Summary Login user
// @Description Authenticate user with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse "Login successful"
// @Failure 400 {string} string "Invalid request"
// @Failure 401 {string} string "Invalid credentials"
// @Failure 500 {string} string "Internal server error"
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req LoginRequest
	if err := dec.Decode(&req); err != nil {
		log.Printf("[AUTH] Login failed - invalid request: %v", err)
		s.sendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		log.Printf("[AUTH] Multiple JSON objects detected")
		s.sendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.Struct(&req); err != nil {
		log.Printf("[AUTH] Login validation failed: %v", err)
		s.sendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var user models.User
	var hashedPassword string
	err := s.db.QueryRow(`
		SELECT id, email, username, full_name, role, COALESCE(bio, ''), password
		FROM users WHERE email = $1`,
		strings.ToLower(req.Email)).Scan(&user.ID, &user.Email, &user.Username, &user.FullName, &user.Role, &user.Bio, &hashedPassword)
	if err != nil {
		log.Printf("[AUTH] User not found for email: %s", req.Email)
		s.sendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	if !verifyPassword(req.Password, hashedPassword) {
		log.Printf("[AUTH] Invalid password for user: %s", req.Email)
		s.sendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	_, _ = s.db.Exec(`UPDATE users SET last_login = NOW() WHERE id = $1`, user.ID)

	token, err := generateJWT(user.ID, user.Role)
	if err != nil {
		log.Printf("[AUTH] JWT generation failed for user %d: %v", user.ID, err)
		s.sendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	log.Printf("[AUTH] Login successful for user %d", user.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{Token: token, User: user})
}

// Logout invalidates the session token
// @Summary Logout user
// @Description Blacklist the presented token until it expires
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" && s.redis != nil {
		key := fmt.Sprintf("token_blacklist:%s", parts[1])
		expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
		if err := s.redis.Set(r.Context(), key, "1", expiry).Err(); err != nil {
			log.Printf("[AUTH] Failed to blacklist token: %v", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Logged out"})
}

// GetUserAccount retrieves the authenticated user's profile
// @Summary Get user account details
// @Description Get the authenticated user's profile, wallet balance and cached counters
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{user=models.User,balance=int64}
// @Failure 401 {string} string "Unauthorized"
// @Failure 500 {string} string "Internal server error"
// @Router /auth/account [get]
func (s *AuthService) GetUserAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := contextUserID(r)
	if !ok {
		log.Printf("[AUTH] Unauthorized account request - no user ID in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var user models.User
	var balance int64
	err := s.db.QueryRow(`
		SELECT u.id, u.email, u.username, u.full_name, u.role, COALESCE(u.bio, ''),
		       u.total_votes_given, u.total_votes_received, w.balance
		FROM users u
		INNER JOIN wallets w ON w.user_id = u.id
		WHERE u.id = $1`,
		userID).Scan(&user.ID, &user.Email, &user.Username, &user.FullName, &user.Role, &user.Bio,
		&user.TotalVotesGiven, &user.TotalVotesReceived, &balance)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Printf("[AUTH] User not found for ID: %d", userID)
			http.Error(w, "User not found", http.StatusNotFound)
		} else {
			log.Printf("[AUTH] Failed to fetch user details for ID %d: %v", userID, err)
			http.Error(w, "Failed to fetch user details", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"user":    user,
		"balance": balance,
	})
}

// Follow adds the target user to the caller's following set
// @Summary Follow a user
// @Description Follow another user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID to follow"
// @Success 200 {object} map[string]any
// @Failure 404 {object} ErrorResponse
// @Router /users/{userId}/follow [post]
func (s *AuthService) Follow(w http.ResponseWriter, r *http.Request) {
	s.setFollow(w, r, true)
}

// Unfollow removes the target user from the caller's following set
// @Summary Unfollow a user
// @Description Stop following another user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID to unfollow"
// @Success 200 {object} map[string]any
// @Failure 404 {object} ErrorResponse
// @Router /users/{userId}/follow [delete]
func (s *AuthService) Unfollow(w http.ResponseWriter, r *http.Request) {
	s.setFollow(w, r, false)
}

func (s *AuthService) setFollow(w http.ResponseWriter, r *http.Request, follow bool) {
	userID, ok := contextUserID(r)
	if !ok {
		s.sendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	targetID, err := strconv.Atoi(chi.URLParam(r, "userId"))
	if err != nil || targetID == userID {
		s.sendErrorResponse(w, "Invalid user id", http.StatusBadRequest, nil)
		return
	}

	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, targetID).Scan(&exists); err != nil || !exists {
		SendDomainError(w, ErrUserNotFound)
		return
	}

	if follow {
		_, err = s.db.Exec(`
			INSERT INTO followers (follower_id, followee_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, userID, targetID)
	} else {
		_, err = s.db.Exec(`
			DELETE FROM followers WHERE follower_id = $1 AND followee_id = $2`, userID, targetID)
	}
	if err != nil {
		log.Printf("[AUTH] Follow update failed for user %d -> %d: %v", userID, targetID, err)
		s.sendErrorResponse(w, "Failed to update follow state", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":   true,
		"following": follow,
		"userId":    targetID,
	})
}

func generateJWT(userID int, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour).Unix(),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return string(hash) == string(computedHash)
}
