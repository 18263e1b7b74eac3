package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prepwise/prepwise/internal/auth"
	"github.com/prepwise/prepwise/internal/domain"
)

type userView struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	CreateTime time.Time `json:"createdAt"`
}

func viewUser(u *domain.User) userView {
	return userView{
		ID:         u.UserID,
		Name:       u.Name,
		Email:      u.Email,
		CreateTime: u.CreateTime,
	}
}

type credentialsView struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

func (a *API) register(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !a.bindJSON(c, &req) {
		return
	}

	creds, err := a.auth.Register(c.Request.Context(), auth.RegisterParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, credentialsView{
		Token: creds.Token,
		User:  viewUser(creds.User),
	})
}

func (a *API) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !a.bindJSON(c, &req) {
		return
	}

	creds, err := a.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, credentialsView{
		Token: creds.Token,
		User:  viewUser(creds.User),
	})
}

func (a *API) me(c *gin.Context) {
	u, err := a.auth.GetUser(c.Request.Context(), a.userID(c))
	if err != nil {
		a.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, viewUser(u))
}
