package handlers

import (
	"log"
	"time"

	"worklink_backend/models"
	"worklink_backend/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type JobHandler struct {
	DB            *gorm.DB
	Notifications *services.NotificationService
}

func NewJobHandler(db *gorm.DB, notifications *services.NotificationService) *JobHandler {
	return &JobHandler{DB: db, Notifications: notifications}
}

// ListCategories returns the fixed set of job categories.
func (h *JobHandler) ListCategories(c *fiber.Ctx) error {
	var categories []models.Category
	if err := h.DB.Order("name").Find(&categories).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch categories"})
	}
	return c.JSON(fiber.Map{"data": categories})
}

// CreateJobPostRequest defines the payload for publishing a job post.
type CreateJobPostRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Salary      float64 `json:"salary"`
	Category    string  `json:"category"`
	Location    string  `json:"location"`
}

// CreateJobPost publishes a job opening. Recruiters only.
func (h *JobHandler) CreateJobPost(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	role, _ := c.Locals("role").(string)
	if role != "recruiter" && role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only recruiters can post jobs"})
	}

	var req CreateJobPostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title is required"})
	}

	job := models.JobPost{
		RecruiterID: userID,
		Title:       req.Title,
		Description: req.Description,
		Salary:      req.Salary,
		Category:    req.Category,
		Location:    req.Location,
		Status:      "open",
	}
	if err := h.DB.Create(&job).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not create job post"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": job})
}

// ListJobPosts returns one page of open job posts, optionally filtered by
// category.
func (h *JobHandler) ListJobPosts(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := h.DB.Model(&models.JobPost{}).Where("status = ?", "open")
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch jobs"})
	}

	var jobs []models.JobPost
	err := query.Preload("Recruiter").
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&jobs).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch jobs"})
	}

	return c.JSON(models.SuccessResponse(
		"Jobs fetched successfully",
		jobs,
		models.NewPaginationMeta(page, pageSize, total),
	))
}

// SubmitProposalRequest defines the payload for applying to a job.
type SubmitProposalRequest struct {
	CoverLetter string `json:"cover_letter"`
}

// SubmitProposal records a candidate's application and notifies the
// recruiter. Applying twice to the same job is rejected.
func (h *JobHandler) SubmitProposal(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	jobID, err := c.ParamsInt("jobID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid job ID"})
	}

	var req SubmitProposalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}

	var job models.JobPost
	if err := h.DB.First(&job, jobID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Job not found"})
	}
	if job.Status != "open" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Job is no longer open"})
	}
	if job.RecruiterID == userID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot apply to your own job post"})
	}

	var existing int64
	h.DB.Model(&models.Proposal{}).
		Where("job_post_id = ? AND candidate_id = ?", jobID, userID).
		Count(&existing)
	if existing > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "You already applied to this job"})
	}

	proposal := models.Proposal{
		JobPostID:   uint(jobID),
		CandidateID: userID,
		CoverLetter: req.CoverLetter,
		Status:      "submitted",
	}
	if err := h.DB.Create(&proposal).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not submit proposal"})
	}

	var candidate models.User
	if err := h.DB.First(&candidate, userID).Error; err == nil {
		if err := h.Notifications.NotifyApplicationReceived(c.Context(), job.RecruiterID, &proposal, candidate.FullName, job.Title); err != nil {
			log.Printf("Failed to record application notification: %v", err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": proposal})
}

// ListJobProposals returns the applications for one of the caller's job
// posts. Recruiters only see their own jobs.
func (h *JobHandler) ListJobProposals(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	jobID, err := c.ParamsInt("jobID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid job ID"})
	}

	var job models.JobPost
	if err := h.DB.First(&job, jobID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Job not found"})
	}
	if job.RecruiterID != userID {
		log.Printf("Potential abuse by user %d: listing proposals of job %d owned by %d", userID, job.ID, job.RecruiterID)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not allowed to perform this action"})
	}

	var proposals []models.Proposal
	if err := h.DB.Preload("Candidate").
		Where("job_post_id = ?", jobID).
		Order("created_at DESC").
		Find(&proposals).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch proposals"})
	}

	return c.JSON(fiber.Map{"data": proposals})
}

// ViewProposal opens one application. The first view stamps it as viewed and
// notifies the candidate; later views change nothing.
func (h *JobHandler) ViewProposal(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	proposalID, err := c.ParamsInt("proposalID")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid proposal ID"})
	}

	var proposal models.Proposal
	if err := h.DB.Preload("JobPost").Preload("Candidate").
		First(&proposal, proposalID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Proposal not found"})
	}

	if proposal.JobPost.RecruiterID != userID {
		log.Printf("Potential abuse by user %d: viewing proposal %d of job owned by %d", userID, proposal.ID, proposal.JobPost.RecruiterID)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You are not allowed to perform this action"})
	}

	if proposal.ViewedAt == nil {
		now := time.Now()
		updates := map[string]interface{}{"viewed_at": &now}
		if proposal.Status == "submitted" {
			updates["status"] = "viewed"
		}
		if err := h.DB.Model(&proposal).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not update proposal"})
		}

		if err := h.Notifications.NotifyProposalViewed(c.Context(), &proposal, proposal.JobPost.Title); err != nil {
			log.Printf("Failed to record proposal-viewed notification: %v", err)
		}
	}

	return c.JSON(fiber.Map{"data": proposal})
}
