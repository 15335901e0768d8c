package models

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse - стандартная структура для ответа об ошибке в формате JSON.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SendJSONError отправляет стандартизированный ответ об ошибке и прерывает цепочку обработчиков.
func SendJSONError(c *gin.Context, message string, statusCode int) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{Error: message})
}

// DataResponse оборачивает полезную нагрузку успешного ответа.
type DataResponse struct {
	Data interface{} `json:"data"`
}
