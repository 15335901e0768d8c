package constants

// События, которые отправляются клиенту через WebSocket.
const (
	WSEventPageLoading       = "page_loading"
	WSEventPageGenerated     = "page_generated"
	WSEventPageError         = "page_error"
	WSEventFillCompleted     = "fill_completed"
	WSEventColorGuideReady   = "color_guide_ready"
	WSEventColorGuideError   = "color_guide_error"
	WSEventGalleryItemReady  = "gallery_item_ready"
	WSEventGalleryItemError  = "gallery_item_error"
	WSEventGalleryCompleted  = "gallery_completed"
	WSEventPurchaseCompleted = "purchase_completed"
	WSEventGalleryUnlocked   = "gallery_unlocked"
	WSEventPaymentFailed     = "payment_failed"
)
