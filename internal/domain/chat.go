package domain

import "time"

// RouteResult es la respuesta del proveedor que atendio la llamada.
type RouteResult struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// ChatResponse es lo que recibe la UI por cada mensaje enviado.
type ChatResponse struct {
	Text           string    `json:"text"`
	ConversationID string    `json:"conversation_id"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	Timestamp      time.Time `json:"timestamp"`
}

// ProviderStatus describe un proveedor configurado para el endpoint de estado.
type ProviderStatus struct {
	Name         string `json:"name"`
	DefaultModel string `json:"default_model"`
	Available    bool   `json:"available"`
	Streaming    bool   `json:"streaming"`
}
