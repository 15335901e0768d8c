package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kidzy-server/internal/auth"
	"kidzy-server/internal/gallery"
	"kidzy-server/internal/library"
	"kidzy-server/internal/payment"
	"kidzy-server/internal/storybook"
	"kidzy-server/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps - сервисы, которые обслуживает HTTP API.
type Deps struct {
	Auth     *auth.Service
	Stories  *storybook.Service
	Gallery  *gallery.Service
	Library  *library.Service
	// Payments может быть nil, если Razorpay не настроен.
	Payments *payment.Service
	Updates  *ConnectionManager
	Verify   auth.TokenVerifier
}

type Handler struct {
	auth     *auth.Service
	stories  *storybook.Service
	gallery  *gallery.Service
	library  *library.Service
	payments *payment.Service
	updates  *ConnectionManager
	verify   auth.TokenVerifier
	logger   *zap.Logger
}

func NewHandler(deps Deps, logger *zap.Logger) *Handler {
	return &Handler{
		auth:     deps.Auth,
		stories:  deps.Stories,
		gallery:  deps.Gallery,
		library:  deps.Library,
		payments: deps.Payments,
		updates:  deps.Updates,
		verify:   deps.Verify,
		logger:   logger.Named("HTTPHandler"),
	}
}

// RegisterRoutes регистрирует маршруты API. generationLimit применяется к запросам,
// запускающим генерацию.
func (h *Handler) RegisterRoutes(router *gin.Engine, generationLimit gin.HandlerFunc) {
	router.GET("/health", h.health)

	api := router.Group("/api/v1")
	api.GET("/health", h.health)

	catalog := api.Group("/catalog")
	{
		catalog.GET("/themes", h.listThemes)
		catalog.GET("/paper-sizes", h.listPaperSizes)
		catalog.GET("/pricing", h.listPricing)
		catalog.GET("/scenarios", h.listScenarios)
	}

	api.POST("/auth/signup", h.signup)
	api.GET("/auth/errors/*code", h.authErrorMessage)
	api.POST("/navigation", h.navigate)
	api.POST("/payments/webhook", h.paymentWebhook)
	api.GET("/downloads/:ticket", h.download)
	api.GET("/ws", h.serveWS)

	secured := api.Group("")
	secured.Use(auth.Middleware(h.verify, h.logger))
	{
		secured.GET("/me", h.getProfile)
		secured.PATCH("/me", h.updateProfile)
		secured.POST("/auth/logout", h.logout)

		secured.POST("/avatars", generationLimit, h.generateAvatar)

		secured.POST("/stories", generationLimit, h.createStory)
		secured.GET("/stories", h.listStories)
		secured.POST("/stories/:storyID/open", generationLimit, h.openStory)

		sessions := secured.Group("/stories/sessions/:id")
		{
			sessions.GET("", h.getStorySession)
			sessions.POST("/fill", generationLimit, h.fillPages)
			sessions.POST("/pages/:pageID/regenerate", generationLimit, h.regeneratePage)
			sessions.PATCH("/pages/:pageID", h.editPage)
			sessions.POST("/color-guide", h.colorGuide)
			sessions.POST("/navigate", h.navigateStory)
			sessions.POST("/save", h.saveStory)
			sessions.GET("/print", h.printLayout)
		}

		secured.POST("/gallery", generationLimit, h.startGallery)
		secured.GET("/gallery/:id", h.getGallery)
		secured.POST("/gallery/:id/items/:itemID/retry", generationLimit, h.retryGalleryItem)
		secured.GET("/gallery/:id/items/:itemID/download", h.downloadTicket)

		secured.GET("/photos", h.listPhotos)

		secured.POST("/payments/orders", h.createOrder)
		secured.POST("/payments/confirm", h.confirmPayment)
		secured.POST("/payments/failure", h.failPayment)
		secured.GET("/payments", h.paymentHistory)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Каталог ---

type paperSizeResponse struct {
	Name        models.PaperSize `json:"name"`
	AspectRatio string           `json:"aspectRatio"`
}

func (h *Handler) listThemes(c *gin.Context) {
	c.JSON(http.StatusOK, models.DataResponse{Data: models.ThemeCategories})
}

func (h *Handler) listPaperSizes(c *gin.Context) {
	sizes := make([]paperSizeResponse, 0, len(models.AllPaperSizes))
	for _, s := range models.AllPaperSizes {
		sizes = append(sizes, paperSizeResponse{Name: s, AspectRatio: s.AspectRatio()})
	}
	c.JSON(http.StatusOK, models.DataResponse{Data: sizes})
}

func (h *Handler) listPricing(c *gin.Context) {
	c.JSON(http.StatusOK, models.DataResponse{Data: models.PricingTiers})
}

func (h *Handler) listScenarios(c *gin.Context) {
	c.JSON(http.StatusOK, models.DataResponse{Data: models.GalleryScenarios})
}

// --- Навигация и авторизация ---

type navigationRequest struct {
	State models.AppState        `json:"state" binding:"required"`
	Event models.NavigationEvent `json:"event" binding:"required"`
}

// navigate вычисляет следующий экран. Пользователь считается вошедшим,
// если передан действительный Bearer токен.
func (h *Handler) navigate(c *gin.Context) {
	var req navigationRequest
	if !bindJSON(c, &req) {
		return
	}
	authenticated := false
	if token := bearerToken(c); token != "" {
		if _, err := h.verify(c.Request.Context(), token); err == nil {
			authenticated = true
		}
	}
	next, err := req.State.Transition(req.Event, authenticated)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": next, "authenticated": authenticated})
}

// authErrorMessage переводит код ошибки браузерного SDK (auth/...) в сообщение для пользователя.
func (h *Handler) authErrorMessage(c *gin.Context) {
	message, ignore := auth.ProviderMessage(strings.TrimPrefix(c.Param("code"), "/"))
	c.JSON(http.StatusOK, gin.H{"message": message, "ignore": ignore})
}

func (h *Handler) signup(c *gin.Context) {
	var req auth.SignupRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.auth.Signup(c.Request.Context(), req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) getProfile(c *gin.Context) {
	uid, _ := auth.UserID(c)
	user, err := h.auth.Profile(c.Request.Context(), uid)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) updateProfile(c *gin.Context) {
	uid, _ := auth.UserID(c)
	var req auth.ProfileUpdate
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.auth.UpdateProfile(c.Request.Context(), uid, req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) logout(c *gin.Context) {
	uid, _ := auth.UserID(c)
	if err := h.auth.Logout(c.Request.Context(), uid); err != nil {
		h.handleAuthError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Книга ---

func (h *Handler) generateAvatar(c *gin.Context) {
	uid, _ := auth.UserID(c)
	var cfg models.StoryConfig
	if !bindJSON(c, &cfg) {
		return
	}
	avatar, err := h.stories.GenerateAvatar(c.Request.Context(), uid, cfg)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, avatar)
}

func (h *Handler) createStory(c *gin.Context) {
	uid, _ := auth.UserID(c)
	var cfg models.StoryConfig
	if !bindJSON(c, &cfg) {
		return
	}
	sess, err := h.stories.CreateSession(c.Request.Context(), uid, cfg)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, sess)
}

func (h *Handler) listStories(c *gin.Context) {
	uid, _ := auth.UserID(c)
	stories, err := h.library.ListStories(c.Request.Context(), uid)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.DataResponse{Data: stories})
}

func (h *Handler) openStory(c *gin.Context) {
	uid, _ := auth.UserID(c)
	sess, err := h.stories.OpenSaved(c.Request.Context(), uid, c.Param("storyID"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) getStorySession(c *gin.Context) {
	uid, _ := auth.UserID(c)
	sess, err := h.stories.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) fillPages(c *gin.Context) {
	uid, _ := auth.UserID(c)
	sess, err := h.stories.StartFill(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, sess)
}

func (h *Handler) regeneratePage(c *gin.Context) {
	uid, _ := auth.UserID(c)
	pageID, ok := pageIDParam(c)
	if !ok {
		return
	}
	sess, err := h.stories.RegeneratePage(c.Request.Context(), uid, c.Param("id"), pageID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, sess)
}

type editPageRequest struct {
	Text string `json:"text"`
}

func (h *Handler) editPage(c *gin.Context) {
	uid, _ := auth.UserID(c)
	pageID, ok := pageIDParam(c)
	if !ok {
		return
	}
	var req editPageRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, err := h.stories.EditPageText(c.Request.Context(), uid, c.Param("id"), pageID, req.Text)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// colorGuide отдает гид, если он готов (200), иначе ставит генерацию в очередь (202).
func (h *Handler) colorGuide(c *gin.Context) {
	uid, _ := auth.UserID(c)
	guide, pending, err := h.stories.ColorGuide(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	status := http.StatusOK
	if pending {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"colorGuide": guide, "pending": pending})
}

type navigateStoryRequest struct {
	Direction storybook.Direction `json:"direction" binding:"required"`
}

func (h *Handler) navigateStory(c *gin.Context) {
	uid, _ := auth.UserID(c)
	var req navigateStoryRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, err := h.stories.Navigate(c.Request.Context(), uid, c.Param("id"), req.Direction)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.View)
}

func (h *Handler) saveStory(c *gin.Context) {
	uid, _ := auth.UserID(c)
	saved, err := h.stories.SaveToLibrary(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *Handler) printLayout(c *gin.Context) {
	uid, _ := auth.UserID(c)
	layout, err := h.stories.PrintLayout(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, layout)
}

// --- Фотосессия ---

func (h *Handler) startGallery(c *gin.Context) {
	uid, _ := auth.UserID(c)
	var cfg models.StoryConfig
	if !bindJSON(c, &cfg) {
		return
	}
	sess, err := h.gallery.Start(c.Request.Context(), uid, cfg)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, sess)
}

func (h *Handler) getGallery(c *gin.Context) {
	uid, _ := auth.UserID(c)
	sess, err := h.gallery.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) retryGalleryItem(c *gin.Context) {
	uid, _ := auth.UserID(c)
	sess, err := h.gallery.Retry(c.Request.Context(), uid, c.Param("id"), c.Param("itemID"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, sess)
}

type downloadTicketResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *Handler) downloadTicket(c *gin.Context) {
	uid, _ := auth.UserID(c)
	ticket, expiresAt, err := h.gallery.DownloadTicket(c.Request.Context(), uid, c.Param("id"), c.Param("itemID"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, downloadTicketResponse{URL: "/api/v1/downloads/" + ticket, ExpiresAt: expiresAt})
}

// download отдает файл по тикету. Снимок в хранилище отдается редиректом.
func (h *Handler) download(c *gin.Context) {
	file, err := h.gallery.Download(c.Request.Context(), c.Param("ticket"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if file.RedirectURL != "" {
		c.Redirect(http.StatusFound, file.RedirectURL)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.FileName))
	c.Data(http.StatusOK, file.Image.MIMEType, file.Image.Data)
}

func (h *Handler) listPhotos(c *gin.Context) {
	uid, _ := auth.UserID(c)
	photos, err := h.library.ListPhotos(c.Request.Context(), uid)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.DataResponse{Data: photos})
}

// --- Оплата ---

type createOrderRequest struct {
	Type   models.PurchaseType `json:"type" binding:"required"`
	ItemID string              `json:"itemId" binding:"required"`
}

type confirmPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

type failPaymentRequest struct {
	OrderID   string `json:"orderId" binding:"required"`
	PaymentID string `json:"paymentId"`
	Reason    string `json:"reason"`
}

func (h *Handler) paymentsEnabled(c *gin.Context) bool {
	if h.payments == nil {
		models.SendJSONError(c, "Payments are not configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (h *Handler) createOrder(c *gin.Context) {
	if !h.paymentsEnabled(c) {
		return
	}
	uid, _ := auth.UserID(c)
	var req createOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.payments.CreateOrder(c.Request.Context(), uid, req.Type, req.ItemID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) confirmPayment(c *gin.Context) {
	if !h.paymentsEnabled(c) {
		return
	}
	uid, _ := auth.UserID(c)
	var req confirmPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	tx, err := h.payments.Confirm(c.Request.Context(), uid, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *Handler) failPayment(c *gin.Context) {
	if !h.paymentsEnabled(c) {
		return
	}
	uid, _ := auth.UserID(c)
	var req failPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	tx, err := h.payments.Fail(c.Request.Context(), uid, req.OrderID, req.PaymentID, req.Reason)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *Handler) paymentHistory(c *gin.Context) {
	if !h.paymentsEnabled(c) {
		return
	}
	uid, _ := auth.UserID(c)
	txs, err := h.payments.History(c.Request.Context(), uid)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.DataResponse{Data: txs})
}

// paymentWebhook принимает события Razorpay. Подпись проверяется по сырому телу.
func (h *Handler) paymentWebhook(c *gin.Context) {
	if !h.paymentsEnabled(c) {
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		models.SendJSONError(c, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if err := h.payments.HandleWebhook(c.Request.Context(), body, c.GetHeader("X-Razorpay-Signature")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- helpers ---

func pageIDParam(c *gin.Context) (int, bool) {
	pageID, err := strconv.Atoi(c.Param("pageID"))
	if err != nil || pageID < 0 {
		models.SendJSONError(c, "Invalid page ID", http.StatusBadRequest)
		return 0, false
	}
	return pageID, true
}

func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
