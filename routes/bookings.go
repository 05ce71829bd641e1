package routes

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"helperhand-server/apperror"
	"helperhand-server/models"
	"helperhand-server/repository"
	"helperhand-server/services"
	"helperhand-server/types"
)

type createBookingRequest struct {
	Service     string    `json:"service"`
	BookingDate time.Time `json:"booking_date"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	Details     string    `json:"details"`
}

type assignRequest struct {
	WorkerID string `json:"worker_id"`
	Note     string `json:"note"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type feedbackRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

func createBooking(bookings services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createBookingRequest
		if !bindJSON(c, &req) {
			return
		}

		booking, err := bookings.Create(c.Request.Context(), principal(c), services.CreateBookingInput{
			Service:     req.Service,
			BookingDate: req.BookingDate,
			Name:        req.Name,
			Phone:       req.Phone,
			Address:     req.Address,
			Details:     req.Details,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusCreated, "Booking created successfully", booking)
	}
}

func listMyBookings(bookings services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := bookings.ListMine(c.Request.Context(), principal(c))
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "", list)
	}
}

func listAllBookings(bookings services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter repository.BookingFilter
		if raw := strings.TrimSpace(c.Query("status")); raw != "" {
			status, err := models.ParseBookingStatus(raw)
			if err != nil {
				respondError(c, apperror.Validation("Invalid status filter %q", raw))
				return
			}
			filter.Status = &status
		}

		list, err := bookings.ListAll(c.Request.Context(), principal(c), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "", list)
	}
}

func getBooking(bookings services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		booking, err := bookings.Get(c.Request.Context(), principal(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "", booking)
	}
}

func eligibleWorkers(bookings services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		candidates, err := bookings.Candidates(c.Request.Context(), principal(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "", candidates)
	}
}

func assignBooking(bookings services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req assignRequest
		if !bindJSON(c, &req) {
			return
		}

		res, err := bookings.Assign(c.Request.Context(), principal(c), c.Param("id"), services.AssignInput{
			WorkerID: req.WorkerID,
			Note:     req.Note,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		message := "Worker assigned successfully"
		if res.Busy {
			message = "Worker assigned; note the worker already has a booking that day"
		}
		respondData(c, http.StatusOK, message, res)
	}
}

type bookingOp func(ctx context.Context, p types.Principal, id string) (*models.Booking, error)

// bookingAction adapts the body-less lifecycle transitions.
func bookingAction(op bookingOp, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		booking, err := op(c.Request.Context(), principal(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, message, booking)
	}
}

func overrideStatus(bookings services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statusRequest
		if !bindJSON(c, &req) {
			return
		}

		booking, err := bookings.OverrideStatus(c.Request.Context(), principal(c), c.Param("id"), req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "Booking status updated", booking)
	}
}

func workerUpdateStatus(bookings services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statusRequest
		if !bindJSON(c, &req) {
			return
		}

		booking, err := bookings.WorkerUpdateStatus(c.Request.Context(), principal(c), c.Param("id"), req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, "Booking status updated", booking)
	}
}

func deleteBooking(bookings services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := bookings.Delete(c.Request.Context(), principal(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Booking deleted successfully"})
	}
}

func submitFeedback(bookings services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req feedbackRequest
		if !bindJSON(c, &req) {
			return
		}

		fb, err := bookings.SubmitFeedback(c.Request.Context(), principal(c), c.Param("bookingId"), services.FeedbackInput{
			Rating: req.Rating,
			Review: req.Review,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusCreated, "Feedback submitted", fb)
	}
}

func getFeedback(bookings services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		fb, err := bookings.GetFeedback(c.Request.Context(), principal(c), c.Param("bookingId"))
		if err != nil {
			respondError(c, err)
			return
		}
		// fb is nil when the customer has not rated yet
		respondData(c, http.StatusOK, "", fb)
	}
}

func downloadReceipt(reports Reports) gin.HandlerFunc {
	return func(c *gin.Context) {
		pdf, filename, err := reports.Receipt(c.Request.Context(), principal(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, "application/pdf", pdf)
	}
}
