package handlers

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/Armin247/Aliva/database"
	"github.com/Armin247/Aliva/models"

	"github.com/gin-gonic/gin"
)

// Paystack在回调里携带的签名头
const paystackSignatureHeader = "x-paystack-signature"

// PaymentHandler 支付网关回调处理器
type PaymentHandler struct {
	Profiles  database.ProfileStore
	Payments  database.PaymentStore
	SecretKey string
}

// Webhook 处理Paystack回调
// 对原始请求体做HMAC-SHA512校验，charge.success时更新用户套餐；
// 报文解析成功后一律返回200，避免网关反复重试
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	signature := c.GetHeader(paystackSignatureHeader)
	if !h.verifySignature(body, signature) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	var event models.PaystackWebhook
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	if event.Event == "charge.success" {
		h.applyChargeSuccess(c, &event)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// applyChargeSuccess 按订单元数据升级用户套餐
func (h *PaymentHandler) applyChargeSuccess(c *gin.Context, event *models.PaystackWebhook) {
	userID := event.Data.Metadata.UserID
	if userID == "" {
		log.Printf("Payment %s has no userId metadata, skipping", event.Data.Reference)
		return
	}

	interval := models.PlanInterval(event.Data.Metadata.Interval)
	if interval != models.IntervalAnnually {
		interval = models.IntervalMonthly
	}
	expiresAt := models.PlanExpiry(interval, time.Now())

	ctx := c.Request.Context()
	if err := h.Profiles.SetPlan(ctx, userID, models.PlanPremium, expiresAt); err != nil {
		// 网关约定必须回200，失败只能记日志等人工对账
		log.Printf("Failed to apply plan for %s (ref %s): %v", userID, event.Data.Reference, err)
		return
	}

	record := models.PaymentEvent{
		Reference: event.Data.Reference,
		Event:     event.Event,
		UserID:    userID,
		Plan:      models.PlanPremium,
		Interval:  interval,
		Amount:    event.Data.Amount,
	}
	if err := h.Payments.SaveEvent(ctx, &record); err != nil {
		log.Printf("Failed to save payment event %s: %v", event.Data.Reference, err)
	}

	log.Printf("Plan upgraded for %s until %s (ref %s)", userID, expiresAt.Format(time.RFC3339), event.Data.Reference)
}

// verifySignature 校验回调签名
func (h *PaymentHandler) verifySignature(body []byte, signature string) bool {
	if h.SecretKey == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(h.SecretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
