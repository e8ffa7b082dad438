package models

// ErrorResponse - стандартная структура для ответа об ошибке в формате JSON.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse - ответ-подтверждение без данных (например, после удаления).
type MessageResponse struct {
	Message string `json:"message"`
}

// Тексты ошибок, которые видит клиент. Клиент показывает их как есть.
const (
	MsgGenerateStoryFailed = "Error generating story"
	MsgGenerateAudioFailed = "Failed to generate audio"
	MsgUpdateStoryFailed   = "Error updating story"
	MsgDeleteStoryFailed   = "Error deleting story"
	MsgFetchStoriesFailed  = "Error fetching stories"
	MsgChatFailed          = "Error processing your request"
	MsgMethodNotAllowed    = "Method not allowed"
	MsgStoryNotFound       = "Story not found"
	MsgInvalidRequest      = "Invalid request body"
	MsgInvalidStoryID      = "Invalid story id"

	MsgStoryDeleted = "Story deleted successfully"
)
