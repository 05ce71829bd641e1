package routes

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"helperhand-server/services"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func registerCustomer(accounts Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if !bindJSON(c, &req) {
			return
		}

		res, err := accounts.RegisterCustomer(c.Request.Context(), services.RegisterInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			Phone:    req.Phone,
			Address:  req.Address,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		log.Printf("✅ Customer registered: %s", res.Principal.Email)
		respondData(c, http.StatusCreated, "Account created successfully", res)
	}
}

func login(accounts Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if !bindJSON(c, &req) {
			return
		}

		res, err := accounts.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "Login successful", res)
	}
}

func workerLogin(accounts Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if !bindJSON(c, &req) {
			return
		}

		res, err := accounts.LoginWorker(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "Login successful", res)
	}
}

func currentPrincipal(c *gin.Context) {
	p := principal(c)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"id":    p.ID,
			"name":  p.Name,
			"email": p.Email,
			"kind":  p.Kind.String(),
		},
	})
}
