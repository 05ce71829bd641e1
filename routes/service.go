package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"helperhand-server/services"
)

type serviceRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Icon        string          `json:"icon"`
	IsActive    *bool           `json:"is_active"`
	Image       string          `json:"image"`
}

func (r serviceRequest) input() services.ServiceInput {
	return services.ServiceInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Icon:        r.Icon,
		IsActive:    r.IsActive,
		Image:       r.Image,
	}
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func listServices(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := catalog.ListServices(c.Request.Context(), false)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "", list)
	}
}

func listAllServices(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := catalog.ListServices(c.Request.Context(), true)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "", list)
	}
}

func createService(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req serviceRequest
		if !bindJSON(c, &req) {
			return
		}

		service, err := catalog.CreateService(c.Request.Context(), principal(c), req.input())
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusCreated, "Service created successfully", service)
	}
}

func updateService(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req serviceRequest
		if !bindJSON(c, &req) {
			return
		}

		service, err := catalog.UpdateService(c.Request.Context(), principal(c), c.Param("id"), req.input())
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "Service updated successfully", service)
	}
}

func deleteService(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := catalog.DeleteService(c.Request.Context(), principal(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Service deleted successfully"})
	}
}

func submitContact(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contactRequest
		if !bindJSON(c, &req) {
			return
		}

		msg, err := catalog.SubmitContact(c.Request.Context(), services.ContactInput{
			Name:    req.Name,
			Email:   req.Email,
			Message: req.Message,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusCreated, "Thanks, we will get back to you soon", msg)
	}
}

func listContacts(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := catalog.ListContacts(c.Request.Context(), principal(c))
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "", list)
	}
}

func deleteContact(catalog Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := catalog.DeleteContact(c.Request.Context(), principal(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Message deleted"})
	}
}
