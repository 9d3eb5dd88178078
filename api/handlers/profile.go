package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Armin247/Aliva/database"
	"github.com/Armin247/Aliva/models"

	"github.com/gin-gonic/gin"
)

// ProfileHandler 健康档案处理器
type ProfileHandler struct {
	Profiles database.ProfileStore
}

// GetProfile 获取当前用户档案
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID := c.GetString("userID")

	profile, err := h.Profiles.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// SaveProfile 保存档案，首次保存即创建
func (h *ProfileHandler) SaveProfile(c *gin.Context) {
	userID := c.GetString("userID")

	var req models.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	profile, err := h.Profiles.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
			return
		}
		profile = &models.UserProfile{UserID: userID, Plan: models.PlanFree}
	}

	req.Apply(profile)

	if err := h.Profiles.UpsertProfile(ctx, profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile saved successfully",
		"profile": profile,
	})
}

// LogWeight 追加一条体重记录
func (h *ProfileHandler) LogWeight(c *gin.Context) {
	userID := c.GetString("userID")

	var req models.WeightLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}

	profile, err := h.Profiles.AppendWeight(c.Request.Context(), userID, models.WeightEntry{
		Date:     date,
		WeightKg: req.WeightKg,
	})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log weight"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Weight logged successfully",
		"weightHistory": profile.WeightHistory,
	})
}
