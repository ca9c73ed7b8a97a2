package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"voice-808/internal/domain"
	"voice-808/internal/service"
	"voice-808/internal/storage"
)

const (
	maxHistoryLimit = 200
	recentActivity  = 3
)

type generateRequest struct {
	Text     string            `json:"text"`
	Type     string            `json:"type"`
	Voice    string            `json:"voice" binding:"omitempty,voice"`
	Speakers map[string]string `json:"speakers" binding:"omitempty,dive,voice"`
}

type GenerateResponse struct {
	ID             int64   `json:"id"`
	AudioURL       string  `json:"audio_url"`
	Duration       float64 `json:"duration"`
	CharactersUsed int     `json:"characters_used"`
	Status         string  `json:"status"`
}

type GenerationResponse struct {
	ID         int64    `json:"id"`
	Type       string   `json:"type"`
	Text       string   `json:"text"`
	AudioURL   *string  `json:"audioUrl"`
	CreatedAt  string   `json:"createdAt"`
	Speakers   []string `json:"speakers,omitempty"`
	Voice      string   `json:"voice,omitempty"`
	Duration   *float64 `json:"duration"`
	Characters int      `json:"characters"`
	Status     string   `json:"status"`
}

type UsageResponse struct {
	ID                    int64   `json:"id"`
	UserID                int64   `json:"user_id"`
	Month                 string  `json:"month"`
	CharactersUsed        int64   `json:"characters_used"`
	APICalls              int64   `json:"api_calls"`
	AudioGeneratedSeconds float64 `json:"audio_generated_seconds"`
	CreatedAt             string  `json:"created_at"`
	UpdatedAt             string  `json:"updated_at"`
}

type StatsResponse struct {
	TotalGenerations int64          `json:"totalGenerations"`
	TotalCharacters  int64          `json:"totalCharacters"`
	TotalDuration    float64        `json:"totalDuration"`
	ThisMonthUsage   *UsageResponse `json:"thisMonthUsage"`
}

type PaginationResponse struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

type HistoryResponse struct {
	Generations []GenerationResponse `json:"generations"`
	Stats       StatsResponse        `json:"stats"`
	Pagination  PaginationResponse   `json:"pagination"`
}

type MonthlyUsageResponse struct {
	CharactersUsed       int64   `json:"charactersUsed"`
	CharactersLimit      int64   `json:"charactersLimit"`
	CharactersPercentage int     `json:"charactersPercentage"`
	APICalls             int64   `json:"apiCalls"`
	APICallsLimit        int64   `json:"apiCallsLimit"`
	APICallsPercentage   int     `json:"apiCallsPercentage"`
	AudioGenerated       float64 `json:"audioGenerated"`
}

type ActivityResponse struct {
	Action string `json:"action"`
	Time   string `json:"time"`
	Status string `json:"status"`
}

type TotalStatsResponse struct {
	TotalGenerations int64   `json:"totalGenerations"`
	TotalCharacters  int64   `json:"totalCharacters"`
	TotalDuration    float64 `json:"totalDuration"`
}

type UserStatsResponse struct {
	TotalStats     TotalStatsResponse   `json:"totalStats"`
	MonthlyUsage   MonthlyUsageResponse `json:"monthlyUsage"`
	RecentActivity []ActivityResponse   `json:"recentActivity"`
}

func (h *Handler) generate(c *gin.Context) {
	user := currentUser(c)

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		for _, fe := range fieldErrors(err) {
			if fe.Tag() == "voice" {
				c.JSON(http.StatusBadRequest, gin.H{"error": unsupportedVoice(fe)})
				return
			}
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	kind := domain.GenerationType(req.Type)
	if kind == "" {
		kind = domain.GenerationTypeTTS
	}

	res, err := h.voice.Generate(c.Request.Context(), user.ID, service.GenerateRequest{
		Type:     kind,
		Text:     req.Text,
		Voice:    req.Voice,
		Speakers: req.Speakers,
	})
	if err != nil {
		switch {
		case service.IsValidationError(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrQuotaExceeded):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Monthly usage limit reached"})
		case errors.Is(err, domain.ErrSynthesisFailed):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate audio"})
		default:
			h.log.WithError(err).WithField("user_id", user.ID).Error("voice generation")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during voice generation"})
		}
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{
		ID:             res.ID,
		AudioURL:       res.AudioURL,
		Duration:       res.Duration,
		CharactersUsed: res.CharactersUsed,
		Status:         string(res.Status),
	})
}

func (h *Handler) history(c *gin.Context) {
	user := currentUser(c)

	limit, err := queryInt(c, "limit", service.DefaultHistoryLimit)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}
	kind := domain.GenerationType(c.Query("type"))
	if !kind.Valid() {
		kind = ""
	}

	page, err := h.voice.History(c.Request.Context(), user.ID, kind, limit, offset)
	if err != nil {
		h.log.WithError(err).WithField("user_id", user.ID).Error("voice history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred while fetching history"})
		return
	}

	resp := HistoryResponse{
		Generations: make([]GenerationResponse, len(page.Items)),
		Stats:       statsToResponse(page.Stats),
		Pagination: PaginationResponse{
			Limit:   page.Limit,
			Offset:  page.Offset,
			HasMore: page.HasMore,
		},
	}
	for i := range page.Items {
		resp.Generations[i] = generationToResponse(page.Items[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) stats(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()
	fail := func(err error) {
		h.log.WithError(err).WithField("user_id", user.ID).Error("user stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred while fetching user stats"})
	}

	stats, err := h.usage.Stats(ctx, user.ID)
	if err != nil {
		fail(err)
		return
	}
	quota, err := h.usage.Quota(ctx, user.ID)
	if err != nil {
		fail(err)
		return
	}
	recent, err := h.voice.Recent(ctx, user.ID, recentActivity)
	if err != nil {
		fail(err)
		return
	}

	c.JSON(http.StatusOK, UserStatsResponse{
		TotalStats: TotalStatsResponse{
			TotalGenerations: stats.TotalGenerations,
			TotalCharacters:  stats.TotalCharacters,
			TotalDuration:    stats.TotalDuration,
		},
		MonthlyUsage:   quotaToResponse(quota),
		RecentActivity: activityToResponse(recent),
	})
}

func (h *Handler) archive(c *gin.Context) {
	user := currentUser(c)
	files, err := h.voice.ArchivedFiles(c.Request.Context(), user.ID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", user.ID).Error("list archived audio")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred while listing archived audio"})
		return
	}
	if files == nil {
		files = []storage.ArchivedFile{}
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func generationToResponse(item service.HistoryItem) GenerationResponse {
	gen := item.Generation
	resp := GenerationResponse{
		ID:         gen.ID,
		Type:       string(gen.Type),
		Text:       gen.Text,
		CreatedAt:  gen.CreatedAt.UTC().Format(time.RFC3339),
		Duration:   gen.Duration,
		Characters: gen.Characters,
		Status:     string(gen.Status),
	}
	if gen.AudioURL != nil {
		v := item.AudioURL
		resp.AudioURL = &v
	}
	switch gen.Type {
	case domain.GenerationTypeMultiSpeaker:
		resp.Speakers = item.Speakers
		if resp.Speakers == nil {
			resp.Speakers = []string{}
		}
	case domain.GenerationTypeTTS:
		resp.Voice = item.Voice
	}
	return resp
}

func statsToResponse(stats *domain.UserStats) StatsResponse {
	if stats == nil {
		return StatsResponse{}
	}
	resp := StatsResponse{
		TotalGenerations: stats.TotalGenerations,
		TotalCharacters:  stats.TotalCharacters,
		TotalDuration:    stats.TotalDuration,
	}
	if u := stats.ThisMonthUsage; u != nil {
		resp.ThisMonthUsage = &UsageResponse{
			ID:                    u.ID,
			UserID:                u.UserID,
			Month:                 u.Month,
			CharactersUsed:        u.CharactersUsed,
			APICalls:              u.APICalls,
			AudioGeneratedSeconds: u.AudioGeneratedSeconds,
			CreatedAt:             u.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt:             u.UpdatedAt.UTC().Format(time.RFC3339),
		}
	}
	return resp
}

func quotaToResponse(q *domain.Quota) MonthlyUsageResponse {
	return MonthlyUsageResponse{
		CharactersUsed:       q.CharactersUsed,
		CharactersLimit:      q.CharactersLimit,
		CharactersPercentage: q.CharactersPercentage,
		APICalls:             q.APICalls,
		APICallsLimit:        q.APICallsLimit,
		APICallsPercentage:   q.APICallsPercentage,
		AudioGenerated:       q.AudioGenerated,
	}
}

func activityToResponse(gens []domain.VoiceGeneration) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(gens))
	for _, gen := range gens {
		action := "Generated TTS"
		if gen.Type == domain.GenerationTypeMultiSpeaker {
			action = "Multi-speaker conversation"
		}
		status := string(gen.Status)
		if gen.Status == domain.GenerationStatusCompleted {
			status = "success"
		}
		out = append(out, ActivityResponse{
			Action: action,
			Time:   gen.CreatedAt.UTC().Format(time.RFC3339),
			Status: status,
		})
	}
	return out
}
