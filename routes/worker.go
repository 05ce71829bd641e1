package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"helperhand-server/apperror"
	"helperhand-server/repository"
	"helperhand-server/services"
)

type workerRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Phone    string   `json:"phone"`
	Services []string `json:"services"`
	Address  []string `json:"address"`
	Pincode  string   `json:"pincode"`
	Ages     []int    `json:"ages"`
	Gender   string   `json:"gender"`
	Image    string   `json:"image"`
}

func (r workerRequest) input() services.WorkerInput {
	return services.WorkerInput{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Phone:    r.Phone,
		Services: r.Services,
		Address:  r.Address,
		Pincode:  r.Pincode,
		Ages:     r.Ages,
		Gender:   r.Gender,
		Image:    r.Image,
	}
}

// workerPatch leaves omitted fields untouched.
type workerPatch struct {
	Name     *string   `json:"name"`
	Phone    *string   `json:"phone"`
	Password *string   `json:"password"`
	Services *[]string `json:"services"`
	Address  *[]string `json:"address"`
	Pincode  *string   `json:"pincode"`
	Ages     *[]int    `json:"ages"`
	Gender   *string   `json:"gender"`
	Image    *string   `json:"image"`
}

type approvalRequest struct {
	Approval string `json:"approval"`
}

func createWorker(workers Workers) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req workerRequest
		if !bindJSON(c, &req) {
			return
		}

		worker, err := workers.Create(c.Request.Context(), principal(c), req.input())
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusCreated, "Worker created successfully", worker)
	}
}

func registerWorker(workers Workers) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req workerRequest
		if !bindJSON(c, &req) {
			return
		}

		worker, token, err := workers.Register(c.Request.Context(), req.input())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Registration received, awaiting admin approval",
			"data":    gin.H{"worker": worker, "token": token},
		})
	}
}

func listWorkers(workers Workers) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := repository.WorkerFilter{Service: c.Query("service")}
		if raw := c.Query("active"); raw != "" {
			active, err := strconv.ParseBool(raw)
			if err != nil {
				respondError(c, apperror.Validation("active must be true or false"))
				return
			}
			filter.Active = &active
		}

		list, err := workers.List(c.Request.Context(), principal(c), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "", list)
	}
}

func getWorker(workers Workers) gin.HandlerFunc {
	return func(c *gin.Context) {
		worker, err := workers.Get(c.Request.Context(), principal(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "", worker)
	}
}

func getMyWorkerProfile(workers Workers) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := principal(c)
		worker, err := workers.Get(c.Request.Context(), p, p.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "", worker)
	}
}

func updateWorker(workers Workers) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req workerPatch
		if !bindJSON(c, &req) {
			return
		}

		worker, err := workers.Update(c.Request.Context(), principal(c), c.Param("id"), services.WorkerUpdate{
			Name:     req.Name,
			Phone:    req.Phone,
			Password: req.Password,
			Services: req.Services,
			Address:  req.Address,
			Pincode:  req.Pincode,
			Ages:     req.Ages,
			Gender:   req.Gender,
			Image:    req.Image,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "Worker updated successfully", worker)
	}
}

func setWorkerApproval(workers Workers) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req approvalRequest
		if !bindJSON(c, &req) {
			return
		}

		worker, err := workers.SetApproval(c.Request.Context(), principal(c), c.Param("id"), req.Approval)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "Worker approval updated", worker)
	}
}

func deleteWorker(workers Workers) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := workers.Delete(c.Request.Context(), principal(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Worker deleted successfully"})
	}
}

func toggleActive(workers Workers) gin.HandlerFunc {
	return func(c *gin.Context) {
		worker, err := workers.ToggleActive(c.Request.Context(), principal(c))
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "Availability updated", worker)
	}
}

func uploadWorkerImage(workers Workers) gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile("image")
		if err != nil {
			respondError(c, apperror.Validation("An image file is required"))
			return
		}

		worker, err := workers.UploadImage(c.Request.Context(), principal(c), header)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "Profile image updated", worker)
	}
}
