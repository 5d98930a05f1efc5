package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	accountapp "github.com/oksasatya/go-account-service/internal/application"
	"github.com/oksasatya/go-account-service/pkg/response"
	"github.com/oksasatya/go-account-service/pkg/validation"
)

// MaxAvatarBytes caps avatar uploads.
const MaxAvatarBytes = 5 << 20

type AccountHandler struct {
	Svc    *accountapp.Service
	Logger *logrus.Logger
}

func NewAccountHandler(svc *accountapp.Service, logger *logrus.Logger) *AccountHandler {
	return &AccountHandler{Svc: svc, Logger: logger}
}

type createAccountRequest struct {
	EmailAddress string `json:"emailAddress" binding:"required,email"`
	Password     string `json:"password" binding:"required,pwd"`
	FirstName    string `json:"firstName" binding:"name"`
	LastName     string `json:"lastName" binding:"name"`
}

type updateAccountRequest struct {
	EmailAddress *string `json:"emailAddress" binding:"omitempty,email"`
	FirstName    *string `json:"firstName" binding:"omitempty,name"`
	LastName     *string `json:"lastName" binding:"omitempty,name"`
}

// fail writes the error envelope for a service error.
func fail(c *gin.Context, err error) {
	response.Error[any](c, accountapp.StatusCode(err), accountapp.Message(err), nil)
}

func (h *AccountHandler) Create(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	a, err := h.Svc.CreateAccount(c.Request.Context(), accountapp.CreateAccountInput{
		Email:     req.EmailAddress,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, accountapp.NewAccountView(a), "account created", nil)
}

func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.Svc.ListAccounts(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		fail(c, err)
		return
	}
	views := accountapp.NewAccountViews(accounts)
	response.Success(c, http.StatusOK, views, "accounts", map[string]any{"count": len(views)})
}

func (h *AccountHandler) Get(c *gin.Context) {
	a, err := h.Svc.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, accountapp.NewAccountView(a), "account", nil)
}

func (h *AccountHandler) Update(c *gin.Context) {
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	a, err := h.Svc.UpdateAccount(c.Request.Context(), c.Param("id"), accountapp.UpdateAccountInput{
		Email:     req.EmailAddress,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, accountapp.NewAccountView(a), "account updated", nil)
}

func (h *AccountHandler) Delete(c *gin.Context) {
	a, err := h.Svc.DeleteAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, accountapp.NewAccountView(a), "account deleted", nil)
}

func (h *AccountHandler) Deactivate(c *gin.Context) {
	a, err := h.Svc.DeactivateAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, accountapp.NewAccountView(a), "account deactivated", nil)
}

// ResetPassword answers without the new password; it only goes out by email.
func (h *AccountHandler) ResetPassword(c *gin.Context) {
	a, err := h.Svc.ResetPassword(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, accountapp.NewAccountView(a), "password reset; the new password was sent by email", nil)
}

func (h *AccountHandler) UploadAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxAvatarBytes+1<<10)
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "file is required", nil)
		return
	}
	if fh.Size > MaxAvatarBytes {
		response.Error[any](c, http.StatusRequestEntityTooLarge, "file too large", map[string]any{"max_bytes": MaxAvatarBytes})
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "cannot read file", nil)
		return
	}
	defer func() { _ = f.Close() }()

	a, err := h.Svc.UploadAvatar(c.Request.Context(), c.Param("id"), f, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, accountapp.NewAccountView(a), "avatar updated", nil)
}

func (h *AccountHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "q is required", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	docs, err := h.Svc.SearchAccounts(c.Request.Context(), q, size)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, docs, "search results", map[string]any{"count": len(docs)})
}
