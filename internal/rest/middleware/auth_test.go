package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/planpilot/planpilot/internal/api/dto"
	"github.com/planpilot/planpilot/internal/auth"
	"github.com/planpilot/planpilot/internal/domain/user"
	"github.com/planpilot/planpilot/internal/service"
	"github.com/planpilot/planpilot/internal/testutil"
	"github.com/planpilot/planpilot/internal/types"
	"github.com/stretchr/testify/suite"
)

type AuthMiddlewareSuite struct {
	testutil.BaseServiceTestSuite
	authService service.AuthService
}

func TestAuthMiddleware(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareSuite))
}

func (s *AuthMiddlewareSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	gin.SetMode(gin.TestMode)
	s.authService = service.NewAuthService(service.ServiceParams{
		Logger:   s.GetLogger(),
		Config:   s.GetConfig(),
		DB:       s.GetDB(),
		UserRepo: s.GetStores().UserRepo,
		Auth:     auth.NewProvider(s.GetConfig()),
		Now:      s.NowFunc(),
	})
}

// newRouter builds a minimal admin-gated route using the given provider.
func (s *AuthMiddlewareSuite) newRouter(provider *auth.Provider) *gin.Engine {
	router := gin.New()
	router.Use(ErrorHandler(s.GetLogger()))
	router.GET("/admin",
		AuthMiddleware(provider, s.authService),
		AdminOnly(),
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"user_id": types.GetUserID(c.Request.Context())})
		})
	return router
}

func (s *AuthMiddlewareSuite) get(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if token != "" {
		req.Header.Set(types.HeaderAuthorization, "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func (s *AuthMiddlewareSuite) TestMissingTokenRejected() {
	router := s.newRouter(auth.NewProvider(s.GetConfig()))
	w := s.get(router, "")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *AuthMiddlewareSuite) TestRegularUserNotAdmin() {
	resp, err := s.authService.Signup(s.GetContext(), &dto.SignupRequest{
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	s.NoError(err)

	router := s.newRouter(auth.NewProvider(s.GetConfig()))
	w := s.get(router, resp.Token)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *AuthMiddlewareSuite) TestConfiguredAdminUserGranted() {
	resp, err := s.authService.Signup(s.GetContext(), &dto.SignupRequest{
		Email:    "ops@example.com",
		Password: "correct-horse",
	})
	s.NoError(err)

	// Admin access granted through configuration, without an is_admin flag on
	// the stored user. The provider is built after the grant because it copies
	// the auth config at construction.
	s.GetConfig().Auth.AdminUserIDs = []string{resp.UserID}
	router := s.newRouter(auth.NewProvider(s.GetConfig()))

	w := s.get(router, resp.Token)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), resp.UserID)
}

func (s *AuthMiddlewareSuite) TestFlaggedAdminUserGranted() {
	provider := auth.NewProvider(s.GetConfig())

	hash, err := provider.HashPassword("correct-horse")
	s.NoError(err)
	admin := &user.User{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USER),
		Email:        "admin@example.com",
		PasswordHash: hash,
		IsAdmin:      true,
		BaseModel: types.BaseModel{
			CreatedAt: s.GetNow(),
			UpdatedAt: s.GetNow(),
		},
	}
	s.NoError(s.GetStores().UserRepo.Create(s.GetContext(), admin))

	token, err := provider.GenerateToken(admin.ID)
	s.NoError(err)

	router := s.newRouter(provider)
	w := s.get(router, token)
	s.Equal(http.StatusOK, w.Code)
}
