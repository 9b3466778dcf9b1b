package handlers

import (
	"errors"
	"net/http"

	"github.com/cinebot/cinebot/internal/common"
	"github.com/cinebot/cinebot/internal/httpapi/middleware"
	"github.com/cinebot/cinebot/internal/recommend"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func chatIDFromContext(c *gin.Context) (int64, bool) {
	v, ok := c.Get(middleware.ChatIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func (h *Handler) Ping(c *gin.Context) {
	common.Ok(c, gin.H{"pong": true})
}

type recommendReq struct {
	Text string `json:"text" binding:"required"`
}

type movieView struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ReleaseYear string `json:"release_year"`
}

// CreateRecommendation runs the full flow synchronously; the narrative
// call makes this a slow endpoint, the job variant is preferred.
func (h *Handler) CreateRecommendation(c *gin.Context) {
	chatID, ok := chatIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req recommendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	res, err := h.RecSvc.Recommend(c.Request.Context(), chatID, req.Text)
	if err != nil {
		h.Log.Error().Err(err).Int64("chat_id", chatID).Msg("recommendation failed")
		common.Fail(c, http.StatusInternalServerError, 50001, "recommendation failed")
		return
	}

	movies := make([]movieView, 0, len(res.Movies))
	for _, m := range res.Movies {
		movies = append(movies, movieView{ID: m.ID, Title: m.Title, ReleaseYear: m.ReleaseYear()})
	}

	common.Ok(c, gin.H{
		"outcome": res.Outcome,
		"genre":   res.Genre,
		"reply":   res.Reply,
		"movies":  movies,
		"logged":  res.Logged,
	})
}

type createJobReq struct {
	Text           string `json:"text" binding:"required"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (h *Handler) CreateRecommendationJob(c *gin.Context) {
	chatID, ok := chatIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req createJobReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	jobID, err := recommend.NewJobID()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to create job")
		return
	}

	job := &recommend.Job{
		ID:     jobID,
		ChatID: chatID,
		Query:  req.Text,
		Status: recommend.JobQueued,
	}
	if req.IdempotencyKey != "" {
		job.IdempotencyKey = &req.IdempotencyKey
	}

	job, created, err := h.Repo.CreateJobOrGetExisting(c.Request.Context(), job)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to create job")
		return
	}

	if created {
		if err := h.Publisher.PublishJob(c.Request.Context(), job.ID); err != nil {
			h.Log.Error().Err(err).Str("job_id", job.ID).Msg("publish job failed")
			_ = h.Repo.MarkJobFailed(c.Request.Context(), job.ID, "enqueue failed")
			common.Fail(c, http.StatusInternalServerError, 50003, "failed to enqueue job")
			return
		}
	}

	common.OkStatus(c, http.StatusAccepted, gin.H{
		"job_id": job.ID,
		"status": job.Status,
	})
}

func (h *Handler) GetRecommendationJob(c *gin.Context) {
	chatID, ok := chatIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	job, err := h.Repo.GetJobByID(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40004, "job not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to load job")
		return
	}
	if job.ChatID != chatID {
		common.Fail(c, http.StatusNotFound, 40004, "job not found")
		return
	}

	resp := gin.H{
		"job_id": job.ID,
		"status": job.Status,
	}
	if job.Outcome != nil {
		resp["outcome"] = *job.Outcome
	}
	if job.Reply != nil {
		resp["reply"] = *job.Reply
	}
	if job.Error != nil {
		resp["error"] = *job.Error
	}
	common.Ok(c, resp)
}
